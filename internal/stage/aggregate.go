package stage

import (
	"errors"

	"github.com/rewired-gh/finsent/internal/aggregate"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/stream"
)

// Aggregate turns scored articles into verdicts. Articles that break the
// scoring contract are skipped and counted.
func Aggregate(in, out string, engine *aggregate.Engine) (*Summary, error) {
	s := begin("aggregate", in, out)
	defer s.end()
	err := transform(s, func(a models.Article, raw []byte, w *stream.Writer) error {
		v, err := engine.Aggregate(&a)
		if err != nil {
			kind := models.ErrMalformedArticle
			if errors.Is(err, models.ErrContractViolation) {
				kind = models.ErrContractViolation
			}
			skip(s, kind, a.Key(), raw, err)
			return nil
		}
		s.Labels[v.Overall.Label.Index()]++
		s.Confidence.Add(v.Overall.Confidence)
		return w.Encode(v)
	})
	return s, err
}
