package stage

import (
	"context"
	"errors"

	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/predictor"
	"github.com/rewired-gh/finsent/internal/scheduler"
	"github.com/rewired-gh/finsent/internal/stream"
)

// Infer scores every sentence through the Batch Scheduler. A predictor
// failure stops the run and discards the output.
func Infer(ctx context.Context, in, out string, p predictor.Predictor, cfg scheduler.Config) (*Summary, error) {
	s := begin("infer", in, out)
	defer s.end()

	r, err := stream.Open(in)
	if err != nil {
		return s, err
	}
	defer r.Close()
	w, err := stream.Create(out)
	if err != nil {
		return s, err
	}

	sched, err := scheduler.New(p, cfg, func(a models.Article) error {
		return w.Encode(a)
	})
	if err != nil {
		w.Abort()
		return s, err
	}

	counts, err := stream.Each(r, func(a models.Article, _ []byte) error {
		return sched.Add(ctx, a)
	})
	s.Skipped = counts.Malformed
	s.Truncated = counts.Truncated
	if err == nil || errors.Is(err, models.ErrIOFailure) {
		// Score what was read before a truncation too.
		if ferr := sched.Flush(ctx); ferr != nil {
			err = ferr
		}
	}
	err = commit(w, err)
	s.Processed = w.Written()
	s.Scheduler = sched.Stats()
	return s, err
}
