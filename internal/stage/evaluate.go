package stage

import (
	"errors"
	"fmt"

	"github.com/rewired-gh/finsent/internal/evaluate"
	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/report"
	"github.com/rewired-gh/finsent/internal/stream"
)

// Evaluate scores a prediction file against a gold file and writes the
// report artifacts into dir. Records that fail validation are skipped and
// counted. A truncated input is evaluated on what was salvaged and the
// ErrIOFailure is returned after the artifacts are written.
func Evaluate(predPath, goldPath, dir string, bins int) (*Summary, error) {
	s := begin("evaluate", predPath+" + "+goldPath, dir)
	defer s.end()

	pred, predErr := readVerdicts(s, "predictions", predPath)
	if predErr != nil && !errors.Is(predErr, models.ErrIOFailure) {
		return s, predErr
	}
	gold, goldErr := readVerdicts(s, "gold", goldPath)
	if goldErr != nil && !errors.Is(goldErr, models.ErrIOFailure) {
		return s, goldErr
	}

	r, err := evaluate.Evaluate(pred, gold, bins)
	if err != nil {
		return s, err
	}
	s.Report = r
	s.Processed = r.Matched
	if err := report.Write(dir, r); err != nil {
		return s, err
	}
	return s, errors.Join(predErr, goldErr)
}

// readVerdicts loads every valid verdict from path. On a broken stream it
// returns what was salvaged together with the ErrIOFailure error.
func readVerdicts(s *Summary, side, path string) ([]models.ArticleVerdict, error) {
	r, err := stream.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", side, err)
	}
	defer r.Close()

	var out []models.ArticleVerdict
	counts, err := stream.Each(r, func(v models.ArticleVerdict, raw []byte) error {
		if verr := v.Validate(); verr != nil {
			skip(s, models.ErrMalformedRecord, v.HeadlineSummary, raw, fmt.Errorf("%s: %w", side, verr))
			return nil
		}
		out = append(out, v)
		return nil
	})
	s.Skipped += counts.Malformed
	if counts.Truncated {
		s.Truncated = true
		logger.Warn("%s %s is truncated; evaluating the %d records salvaged", side, path, len(out))
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", side, err)
	}
	return out, nil
}
