package embedding

import (
	"errors"
	"fmt"

	"github.com/upb/nse-market-bot/internal/vector"
)

// ErrEmptyFeatures is returned when a backend produced no token features.
var ErrEmptyFeatures = errors.New("no features to pool")

// MeanPool averages token-level feature rows into a single vector.
// All rows must have the same, non-zero width.
func MeanPool(rows [][]float32) ([]float32, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyFeatures
	}

	width := len(rows[0])
	sum := make([]float64, width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("feature row %d has %d values, expected %d: %w",
				i, len(row), width, vector.ErrDimensionMismatch)
		}
		for j, v := range row {
			sum[j] += float64(v)
		}
	}

	out := make([]float32, width)
	n := float64(len(rows))
	for j := range sum {
		out[j] = float32(sum[j] / n)
	}
	return out, nil
}

// Normalize scales v to unit length. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	return vector.Normalize(v)
}
