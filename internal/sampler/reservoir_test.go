package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/finsent/internal/models"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSample_Reproducible(t *testing.T) {
	stream := seq(10000)

	a, err := Sample(stream, 200, 42)
	require.NoError(t, err)
	b, err := Sample(stream, 200, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Sample(stream, 200, 43)
	require.NoError(t, err)
	assert.Len(t, c, 200)
	assert.NotEqual(t, a, c)
}

func TestSample_NoDuplicates(t *testing.T) {
	got, err := Sample(seq(5000), 300, 7)
	require.NoError(t, err)
	seen := make(map[int]bool, len(got))
	for _, v := range got {
		assert.False(t, seen[v], "item %d sampled twice", v)
		seen[v] = true
	}
}

func TestSample_ExactlyK(t *testing.T) {
	got, err := Sample(seq(5), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, seq(5), got)
}

func TestSample_InsufficientData(t *testing.T) {
	_, err := Sample(seq(3), 4, 1)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestNewReservoir_InvalidK(t *testing.T) {
	_, err := NewReservoir[int](0, 1)
	assert.Error(t, err)
}

func TestSample_InclusionProbability(t *testing.T) {
	const (
		n      = 50
		k      = 10
		trials = 20000
	)
	hits := make([]int, n)
	stream := seq(n)
	for seed := int64(0); seed < trials; seed++ {
		got, err := Sample(stream, k, seed)
		require.NoError(t, err)
		for _, v := range got {
			hits[v]++
		}
	}
	want := float64(k) / float64(n)
	for i, h := range hits {
		p := float64(h) / trials
		assert.InDelta(t, want, p, 0.02, "item %d inclusion %.4f", i, p)
	}
}
