package stage

import (
	"encoding/json"
	"errors"

	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/sampler"
	"github.com/rewired-gh/finsent/internal/stream"
)

// Sample writes k input lines chosen by a seeded reservoir, byte for byte.
// Fewer than k valid records fails with models.ErrInsufficientData and
// writes nothing.
func Sample(in, out string, k int, seed int64) (*Summary, error) {
	s := begin("sample", in, out)
	defer s.end()

	res, err := sampler.NewReservoir[[]byte](k, seed)
	if err != nil {
		return s, err
	}
	r, err := stream.Open(in)
	if err != nil {
		return s, err
	}
	defer r.Close()

	counts, err := stream.Each(r, func(_ json.RawMessage, raw []byte) error {
		res.Add(append([]byte(nil), raw...))
		return nil
	})
	s.Skipped = counts.Malformed
	s.Truncated = counts.Truncated
	if err != nil && !errors.Is(err, models.ErrIOFailure) {
		return s, err
	}
	readErr := err

	picked, err := res.Result()
	if err != nil {
		return s, errors.Join(err, readErr)
	}
	w, err := stream.Create(out)
	if err != nil {
		return s, err
	}
	for _, line := range picked {
		if err := w.WriteLine(line); err != nil {
			w.Abort()
			return s, err
		}
	}
	err = commit(w, readErr)
	s.Processed = w.Written()
	return s, err
}
