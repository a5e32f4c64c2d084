// Package aggregate fuses sentence-level sentiment into article and sector verdicts.
//
// The overall label is a majority vote over every sentence, ties going to the
// label that comes first in models.LabelOrder. Its confidence is the mean over
// only the sentences that carry the winning label. Sector verdicts repeat the
// same vote over the sentences attributed to each sector, ignoring sentences
// below the confidence floor; a sector with no qualifying sentences inherits
// the overall verdict.
package aggregate

import (
	"fmt"
	"math"

	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/tickers"
)

// Config holds the aggregation thresholds.
type Config struct {
	ConfidenceFloor float64
	HeadlineMarker  string
}

// DefaultConfig returns the thresholds used by the pipeline.
func DefaultConfig() Config {
	return Config{
		ConfidenceFloor: 60,
		HeadlineMarker:  " <HEADLINE>",
	}
}

// Engine aggregates scored articles. It holds no mutable state.
type Engine struct {
	resolver tickers.SectorResolver
	config   Config
}

// New builds an Engine around a sector attribution strategy.
func New(resolver tickers.SectorResolver, config Config) *Engine {
	return &Engine{resolver: resolver, config: config}
}

type vote struct {
	label      models.Label
	confidence float64
}

// Aggregate turns one scored article into its verdict. The article is not
// modified.
func (e *Engine) Aggregate(a *models.Article) (models.ArticleVerdict, error) {
	if err := a.CheckScored(); err != nil {
		return models.ArticleVerdict{}, err
	}

	all := make([]vote, len(a.Sentiments))
	for i, s := range a.Sentiments {
		all[i] = vote{s.Label, s.Confidence}
	}
	overall := decide(all)

	bySector := make(map[string][]vote)
	for i, s := range a.Sentiments {
		if s.Confidence < e.config.ConfidenceFloor {
			continue
		}
		for _, sector := range e.resolver.Resolve(a.Sentences[i]) {
			bySector[sector] = append(bySector[sector], vote{s.Label, s.Confidence})
		}
	}

	sectors := make(map[string]models.SectorVerdict, len(a.Sectors))
	for sector, weight := range a.Sectors {
		v := overall
		if votes := bySector[sector]; len(votes) > 0 {
			v = decide(votes)
		}
		sectors[sector] = models.SectorVerdict{
			Weight:     Round(weight, 4),
			Label:      v.Label,
			Confidence: v.Confidence,
		}
	}

	tks := a.Tickers
	if tks == nil {
		tks = []string{}
	}

	return models.ArticleVerdict{
		Date:            a.Date,
		HeadlineSummary: a.HeadlineKey(e.config.HeadlineMarker),
		Overall:         overall,
		Tickers:         tks,
		SectorsSummary:  sectors,
	}, nil
}

// decide runs the majority vote and the same-label mean over votes.
// votes must not be empty.
func decide(votes []vote) models.Overall {
	label := Majority(labelsOf(votes))
	var sum float64
	var n int
	for _, v := range votes {
		if v.label == label {
			sum += v.confidence
			n++
		}
	}
	return models.Overall{Label: label, Confidence: Round(sum/float64(n), 2)}
}

func labelsOf(votes []vote) []models.Label {
	out := make([]models.Label, len(votes))
	for i, v := range votes {
		out[i] = v.label
	}
	return out
}

// Majority returns the most frequent label. Equal counts resolve to the label
// earliest in models.LabelOrder. It panics on an empty or invalid input, which
// callers rule out by validating first.
func Majority(labels []models.Label) models.Label {
	var counts [models.NumLabels]int
	for _, l := range labels {
		i := l.Index()
		if i < 0 {
			panic(fmt.Sprintf("aggregate: invalid label %q", l))
		}
		counts[i]++
	}
	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		panic("aggregate: majority of no labels")
	}
	return models.LabelOrder[best]
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
