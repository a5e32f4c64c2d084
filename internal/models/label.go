// Package models defines the pipeline records: articles, sentence scores, verdicts, and gold labels.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Label is a three-way sentiment class.
type Label string

const (
	Negative Label = "NEG"
	Neutral  Label = "NEU"
	Positive Label = "POS"
)

// NumLabels is the size of the label set.
const NumLabels = 3

// LabelOrder is the fixed preference order used to break count ties.
// It carries no severity meaning.
var LabelOrder = [NumLabels]Label{Negative, Neutral, Positive}

// ParseLabel accepts the canonical short codes as well as the long names
// classifiers and LLMs tend to emit, case-insensitively.
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEG", "NEGATIVE":
		return Negative, nil
	case "NEU", "NEUTRAL":
		return Neutral, nil
	case "POS", "POSITIVE":
		return Positive, nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// Index returns the position of l in LabelOrder, or -1.
func (l Label) Index() int {
	for i, o := range LabelOrder {
		if o == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the three canonical labels.
func (l Label) Valid() bool {
	return l.Index() >= 0
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("label must be a string: %w", err)
	}
	parsed, err := ParseLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
