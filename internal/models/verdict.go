package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Overall is a label with its confidence on the 0-100 scale.
type Overall struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// UnmarshalJSON also accepts a bare label string, as some gold files carry.
func (o *Overall) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var l Label
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		*o = Overall{Label: l}
		return nil
	}
	type plain Overall
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Overall(p)
	return nil
}

// SectorVerdict is the per-sector slice of an ArticleVerdict.
type SectorVerdict struct {
	Weight     float64 `json:"weight"`
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ArticleVerdict is the terminal, persisted output of aggregation.
type ArticleVerdict struct {
	Date            string                   `json:"date"`
	HeadlineSummary string                   `json:"headline_summary"`
	Overall         Overall                  `json:"overall"`
	Tickers         []string                 `json:"tickers"`
	SectorsSummary  map[string]SectorVerdict `json:"sectors_summary"`

	// HeadlineRewrite keeps a labeler's own summary line; HeadlineSummary
	// stays the join key.
	HeadlineRewrite string `json:"headline_rewrite,omitempty"`
}

// GoldRecord has the verdict shape but is authoritative.
type GoldRecord = ArticleVerdict

// UnmarshalJSON accepts "published"/"headline" spellings and the legacy
// {"gold": {"overall": ...}} layout.
func (v *ArticleVerdict) UnmarshalJSON(data []byte) error {
	type plain ArticleVerdict
	var raw struct {
		plain
		Published string `json:"published"`
		Headline  string `json:"headline"`
		Gold      *struct {
			Overall Overall `json:"overall"`
		} `json:"gold"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ArticleVerdict(raw.plain)
	if v.Date == "" {
		v.Date = raw.Published
	}
	if v.HeadlineSummary == "" {
		v.HeadlineSummary = raw.Headline
	}
	if v.Overall.Label == "" && raw.Gold != nil {
		v.Overall = raw.Gold.Overall
	}
	return nil
}

// Validate checks the fields evaluation depends on.
func (v *ArticleVerdict) Validate() error {
	if v.HeadlineSummary == "" {
		return errors.New("headline_summary must not be empty")
	}
	if !v.Overall.Label.Valid() {
		return fmt.Errorf("overall label %q invalid", v.Overall.Label)
	}
	if c := v.Overall.Confidence; math.IsNaN(c) || c < 0 || c > 100 {
		return fmt.Errorf("overall confidence %v outside [0,100]", c)
	}
	for name, s := range v.SectorsSummary {
		if !s.Label.Valid() {
			return fmt.Errorf("sector %q label %q invalid", name, s.Label)
		}
	}
	return nil
}
