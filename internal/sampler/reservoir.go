// Package sampler draws fixed-size, seed-reproducible samples from streams.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/rewired-gh/finsent/internal/models"
)

// Reservoir keeps a uniform sample of k items from a stream of unknown
// length. The same seed and arrival order always yield the same sample.
type Reservoir[T any] struct {
	k     int
	seen  int
	items []T
	rng   *rand.Rand
}

// NewReservoir returns an empty reservoir of capacity k seeded with seed.
func NewReservoir[T any](k int, seed int64) (*Reservoir[T], error) {
	if k < 1 {
		return nil, fmt.Errorf("sample size must be at least 1, got %d", k)
	}
	return &Reservoir[T]{
		k:     k,
		items: make([]T, 0, k),
		rng:   rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}, nil
}

// Add offers the next stream item. The first k fill the reservoir; the item
// at 0-based index i >= k replaces slot j for j drawn uniformly from [0, i]
// when j < k.
func (r *Reservoir[T]) Add(item T) {
	i := r.seen
	r.seen++
	if i < r.k {
		r.items = append(r.items, item)
		return
	}
	if j := r.rng.IntN(i + 1); j < r.k {
		r.items[j] = item
	}
}

// Seen returns the number of items offered so far.
func (r *Reservoir[T]) Seen() int { return r.seen }

// Result returns the sample. It fails with ErrInsufficientData when fewer
// than k items were offered.
func (r *Reservoir[T]) Result() ([]T, error) {
	if r.seen < r.k {
		return nil, fmt.Errorf("%w: asked for %d items but the stream had %d", models.ErrInsufficientData, r.k, r.seen)
	}
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out, nil
}

// Sample runs a reservoir over items.
func Sample[T any](items []T, k int, seed int64) ([]T, error) {
	r, err := NewReservoir[T](k, seed)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		r.Add(it)
	}
	return r.Result()
}
