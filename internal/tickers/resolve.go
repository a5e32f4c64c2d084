package tickers

import "fmt"

// SectorResolver decides which sectors a sentence's sentiment counts toward.
type SectorResolver interface {
	Resolve(sentence string) []string
}

// FirstMatch attributes the whole sentence to the sector of the first ticker
// found, or to Fallback when there is none or it is unmapped. Sentences naming
// tickers from several sectors still land in a single sector.
type FirstMatch struct {
	Extractor Extractor
	Table     *Table
	Fallback  string
}

func (f FirstMatch) Resolve(sentence string) []string {
	found := f.Extractor.ExtractTickers(sentence)
	if len(found) == 0 {
		return []string{f.Fallback}
	}
	return []string{f.Table.SectorOr(found[0], f.Fallback)}
}

// AllMatches attributes the sentence to every distinct sector among its
// tickers, in order of first appearance.
type AllMatches struct {
	Extractor Extractor
	Table     *Table
	Fallback  string
}

func (a AllMatches) Resolve(sentence string) []string {
	found := a.Extractor.ExtractTickers(sentence)
	if len(found) == 0 {
		return []string{a.Fallback}
	}
	seen := make(map[string]bool, len(found))
	var out []string
	for _, tk := range found {
		s := a.Table.SectorOr(tk, a.Fallback)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// NewResolver builds the attribution strategy named by cfg ("first" or "all").
func NewResolver(strategy string, ex Extractor, t *Table, fallback string) (SectorResolver, error) {
	switch strategy {
	case "", "first":
		return FirstMatch{Extractor: ex, Table: t, Fallback: fallback}, nil
	case "all":
		return AllMatches{Extractor: ex, Table: t, Fallback: fallback}, nil
	}
	return nil, fmt.Errorf("unknown attribution strategy %q", strategy)
}
