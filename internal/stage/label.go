package stage

import (
	"context"

	"github.com/rewired-gh/finsent/internal/labeler"
	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/stream"
)

// Label asks the labeler for a gold verdict per article. An article whose
// retries run out is logged and skipped; the rest of the file continues.
func Label(ctx context.Context, in, out string, l *labeler.Labeler) (*Summary, error) {
	s := begin("label", in, out)
	defer s.end()
	err := transform(s, func(a models.Article, _ []byte, w *stream.Writer) error {
		rec, err := l.Label(ctx, a)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Skipped++
			logger.Error("Labeling failed for %q: %v", models.Truncate(a.Key(), 60), err)
			return nil
		}
		return w.Encode(rec)
	})
	return s, err
}
