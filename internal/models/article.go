package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SentenceScore is the classifier output for one sentence.
type SentenceScore struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the label and the [0,100] confidence range.
func (s SentenceScore) Validate() error {
	if !s.Label.Valid() {
		return fmt.Errorf("invalid label %q", s.Label)
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("confidence %v outside [0,100]", s.Confidence)
	}
	return nil
}

// Article is one news item as it moves through the upstream stages.
// Sentence 0 is the headline carrying the headline marker suffix.
type Article struct {
	ID         string             `json:"id,omitempty"`
	Date       string             `json:"date,omitempty"`
	Headline   string             `json:"headline,omitempty"`
	Body       string             `json:"body,omitempty"`
	Sentences  []string           `json:"sentences"`
	Tickers    []string           `json:"tickers"`
	Sectors    map[string]float64 `json:"sectors,omitempty"`
	Sentiments []SentenceScore    `json:"sentiments,omitempty"`
}

// SectorWeightTolerance bounds how far a non-empty weight map may sum from 1.
const SectorWeightTolerance = 0.01

// UnmarshalJSON normalises drifted upstream field names onto the canonical
// schema: "published" for "date" and "headline_summary" for "headline".
func (a *Article) UnmarshalJSON(data []byte) error {
	type plain Article
	var raw struct {
		plain
		Published       string `json:"published"`
		HeadlineSummary string `json:"headline_summary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Article(raw.plain)
	if a.Date == "" {
		a.Date = raw.Published
	}
	if a.Headline == "" {
		a.Headline = raw.HeadlineSummary
	}
	return nil
}

// Key identifies the article in logs.
func (a *Article) Key() string {
	switch {
	case a.ID != "":
		return a.ID
	case a.Headline != "":
		return Truncate(a.Headline, 60)
	case len(a.Sentences) > 0:
		return Truncate(a.Sentences[0], 60)
	}
	return a.Date
}

// HeadlineKey is the join key aggregation writes as headline_summary:
// sentence 0 with marker stripped, or Headline when there are no sentences.
func (a *Article) HeadlineKey(marker string) string {
	if len(a.Sentences) > 0 {
		return strings.TrimSuffix(a.Sentences[0], marker)
	}
	return a.Headline
}

// CheckScored verifies the invariants an article must meet before aggregation.
func (a *Article) CheckScored() error {
	if a.Sentiments == nil {
		return fmt.Errorf("%w: sentiments missing", ErrContractViolation)
	}
	if len(a.Sentiments) == 0 {
		return fmt.Errorf("%w: no sentiments to vote on", ErrMalformedArticle)
	}
	if len(a.Sentences) != len(a.Sentiments) {
		return fmt.Errorf("%w: %d sentences but %d sentiments",
			ErrMalformedArticle, len(a.Sentences), len(a.Sentiments))
	}
	for i, s := range a.Sentiments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: sentence %d: %v", ErrMalformedArticle, i, err)
		}
	}
	if len(a.Sectors) > 0 {
		var sum float64
		for sector, w := range a.Sectors {
			if w < 0 || w > 1 || math.IsNaN(w) {
				return fmt.Errorf("%w: sector %q weight %v outside [0,1]", ErrMalformedArticle, sector, w)
			}
			sum += w
		}
		if math.Abs(sum-1) > SectorWeightTolerance {
			return fmt.Errorf("%w: sector weights sum to %.4f", ErrMalformedArticle, sum)
		}
	}
	return nil
}
