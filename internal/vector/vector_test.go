package vector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		v := Normalize([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
		assert.InDelta(t, 1.0, Norm(v), 1e-6)
	})

	t.Run("zero vector unchanged", func(t *testing.T) {
		v := Normalize([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("does not modify input", func(t *testing.T) {
		in := []float32{1, 1}
		_ = Normalize(in)
		assert.Equal(t, []float32{1, 1}, in)
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, expected: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, expected: -1},
		{name: "magnitude independent", a: []float32{2, 0}, b: []float32{5, 0}, expected: 1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, sim, 1e-6)
		})
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := CosineSimilarity([]float32{1}, []float32{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestCosineSimilarityBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := make([]float32, 384)
		b := make([]float32, 384)
		for j := range a {
			a[j] = float32(rng.NormFloat64())
			b[j] = float32(rng.NormFloat64())
		}
		sim, err := CosineSimilarity(Normalize(a), Normalize(b))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sim, -1.0)
		assert.LessOrEqual(t, sim, 1.0)

		dist, err := CosineDistance(Normalize(a), Normalize(b))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, dist, 0.0)
		assert.LessOrEqual(t, dist, 2.0)
	}
}

func TestPgVectorLiteral(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		assert.Equal(t, "[]", FormatPgVector(nil))
		assert.Equal(t, "[0.5,-1,2.25]", FormatPgVector([]float32{0.5, -1, 2.25}))
	})

	t.Run("parse both bracket styles", func(t *testing.T) {
		v, err := ParsePgVector("[0.5, -1, 2.25]")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, -1, 2.25}, v)

		v, err = ParsePgVector("{1,2}")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, v)
	})

	t.Run("parse empty", func(t *testing.T) {
		v, err := ParsePgVector("[]")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("parse invalid component", func(t *testing.T) {
		_, err := ParsePgVector("[1,abc]")
		assert.Error(t, err)
	})

	t.Run("format then parse keeps float32 precision", func(t *testing.T) {
		in := []float32{0.1, float32(math.Pi), -0.000123}
		out, err := ParsePgVector(FormatPgVector(in))
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}
