// Package evaluate scores article verdicts against gold labels: a per-label
// classification report, a row-normalised confusion matrix, and the expected
// calibration error of the overall confidence.
package evaluate

import (
	"fmt"
	"sort"

	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
)

// DefaultBins is the number of equal-width confidence bins.
const DefaultBins = 10

// Pair is one joined prediction.
type Pair struct {
	Key        string
	Gold       models.Label
	Predicted  models.Label
	Confidence float64 // in [0,1]
}

// Correct reports whether the prediction matches gold.
func (p Pair) Correct() bool { return p.Gold == p.Predicted }

// Index keys records by headline_summary. Later records replace earlier ones;
// the replaced keys are returned so callers can flag them.
func Index(records []models.ArticleVerdict) (map[string]models.ArticleVerdict, []string) {
	idx := make(map[string]models.ArticleVerdict, len(records))
	var dups []string
	for _, r := range records {
		if _, ok := idx[r.HeadlineSummary]; ok {
			dups = append(dups, r.HeadlineSummary)
		}
		idx[r.HeadlineSummary] = r
	}
	return idx, dups
}

// Join pairs predictions and gold on their shared keys, in key order. Both
// maps must hold validated records.
func Join(pred, gold map[string]models.ArticleVerdict) ([]Pair, error) {
	keys := make([]string, 0, len(gold))
	for k := range gold {
		if _, ok := pred[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, models.ErrNoOverlap
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		g, p := gold[k], pred[k]
		pairs = append(pairs, Pair{
			Key:        k,
			Gold:       g.Overall.Label,
			Predicted:  p.Overall.Label,
			Confidence: p.Overall.Confidence / 100,
		})
	}
	return pairs, nil
}

// Report is everything an evaluation run produces.
type Report struct {
	Matched        int
	PredOnly       int
	GoldOnly       int
	PredDuplicates []string
	GoldDuplicates []string

	Classification Classification
	Confusion      Confusion
	Calibration    Calibration
}

// Evaluate joins predictions with gold and computes the report. Inputs are
// read only and must already have passed ArticleVerdict.Validate. It fails with models.ErrNoOverlap when no key is shared.
func Evaluate(pred, gold []models.ArticleVerdict, bins int) (*Report, error) {
	if bins < 1 {
		return nil, fmt.Errorf("bins must be at least 1, got %d", bins)
	}
	predIdx, predDups := Index(pred)
	goldIdx, goldDups := Index(gold)
	if len(predDups) > 0 {
		logger.Warn("%d duplicate headline_summary keys in predictions; last record wins", len(predDups))
	}
	if len(goldDups) > 0 {
		logger.Warn("%d duplicate headline_summary keys in gold; last record wins", len(goldDups))
	}

	pairs, err := Join(predIdx, goldIdx)
	if err != nil {
		return nil, err
	}

	return &Report{
		Matched:        len(pairs),
		PredOnly:       len(predIdx) - len(pairs),
		GoldOnly:       len(goldIdx) - len(pairs),
		PredDuplicates: predDups,
		GoldDuplicates: goldDups,
		Classification: Classify(pairs),
		Confusion:      NewConfusion(pairs),
		Calibration:    Calibrate(pairs, bins),
	}, nil
}
