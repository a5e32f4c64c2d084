// Package tickers finds ticker symbols in text and maps them to sectors.
package tickers

import (
	"fmt"
	"regexp"
)

// Extractor finds ticker symbols in a piece of text, in order of appearance.
// Duplicates are kept so callers can decide how to count them.
type Extractor interface {
	ExtractTickers(text string) []string
}

var (
	parenPattern   = regexp.MustCompile(`\(([A-Z]{1,5})\)`)
	cashtagPattern = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
	tokenPattern   = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// ParenExtractor matches symbols written in parentheses, as in "Apple (AAPL)".
type ParenExtractor struct{}

func (ParenExtractor) ExtractTickers(text string) []string {
	return submatches(parenPattern, text)
}

// CashtagExtractor matches "$AAPL"-style cashtags.
type CashtagExtractor struct{}

func (CashtagExtractor) ExtractTickers(text string) []string {
	return submatches(cashtagPattern, text)
}

// WhitelistExtractor accepts any bare 1-5 letter uppercase token that is a
// known symbol.
type WhitelistExtractor struct {
	Known map[string]struct{}
}

// NewWhitelistExtractor builds a whitelist from the symbols of a table.
func NewWhitelistExtractor(t *Table) *WhitelistExtractor {
	known := make(map[string]struct{}, t.Len())
	for sym := range t.sectors {
		known[sym] = struct{}{}
	}
	return &WhitelistExtractor{Known: known}
}

func (w *WhitelistExtractor) ExtractTickers(text string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		if _, ok := w.Known[tok]; ok {
			out = append(out, tok)
		}
	}
	return out
}

func submatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// NewExtractor returns the extractor registered under name.
func NewExtractor(name string, t *Table) (Extractor, error) {
	switch name {
	case "", "paren":
		return ParenExtractor{}, nil
	case "cashtag":
		return CashtagExtractor{}, nil
	case "whitelist":
		if t == nil {
			return nil, fmt.Errorf("whitelist extractor needs a ticker table")
		}
		return NewWhitelistExtractor(t), nil
	}
	return nil, fmt.Errorf("unknown ticker extractor %q", name)
}
