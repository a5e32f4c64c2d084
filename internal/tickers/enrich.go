package tickers

import "github.com/rewired-gh/finsent/internal/models"

// Enrich fills in an article's tickers when upstream left them empty and
// derives sector weights from the mapped share of its tickers. Tickers the
// table cannot place are ignored for weighting. An article with no mapped
// tickers ends up with an empty sector map.
func Enrich(a *models.Article, ex Extractor, t *Table) {
	if len(a.Tickers) == 0 {
		seen := make(map[string]bool)
		tickers := []string{}
		for _, s := range a.Sentences {
			for _, tk := range ex.ExtractTickers(s) {
				if !seen[tk] {
					seen[tk] = true
					tickers = append(tickers, tk)
				}
			}
		}
		a.Tickers = tickers
	}

	counts := make(map[string]int)
	total := 0
	for _, tk := range a.Tickers {
		if s, ok := t.Sector(tk); ok {
			counts[s]++
			total++
		}
	}
	a.Sectors = make(map[string]float64, len(counts))
	for s, n := range counts {
		a.Sectors[s] = float64(n) / float64(total)
	}
}
