package stage

import (
	"encoding/json"

	"github.com/rewired-gh/finsent/internal/stream"
)

// Verify reads a file end to end and counts its complete records. A broken
// or truncated stream returns a models.ErrIOFailure error alongside the
// salvaged count.
func Verify(in string) (*Summary, error) {
	s := begin("verify", in, "")
	defer s.end()

	r, err := stream.Open(in)
	if err != nil {
		return s, err
	}
	defer r.Close()
	counts, err := stream.Each(r, func(json.RawMessage, []byte) error { return nil })
	s.Processed = counts.Read
	s.Skipped = counts.Malformed
	s.Truncated = counts.Truncated
	return s, err
}
