package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/nse-market-bot/internal/vector"
)

func TestMeanPool(t *testing.T) {
	t.Run("averages rows", func(t *testing.T) {
		out, err := MeanPool([][]float32{{1, 2}, {3, 4}, {5, 6}})
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 4}, out)
	})

	t.Run("single row passes through", func(t *testing.T) {
		out, err := MeanPool([][]float32{{0.25, -0.5}})
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, -0.5}, out)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := MeanPool(nil)
		assert.ErrorIs(t, err, ErrEmptyFeatures)
		_, err = MeanPool([][]float32{{}})
		assert.ErrorIs(t, err, ErrEmptyFeatures)
	})

	t.Run("ragged rows", func(t *testing.T) {
		_, err := MeanPool([][]float32{{1, 2}, {3}})
		assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	})
}
