package stage

import (
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/segment"
	"github.com/rewired-gh/finsent/internal/stream"
	"github.com/rewired-gh/finsent/internal/tickers"
)

// Segment cleans raw articles and splits them into sentences.
func Segment(in, out, marker string) (*Summary, error) {
	s := begin("segment", in, out)
	defer s.end()
	err := transform(s, func(a models.Article, _ []byte, w *stream.Writer) error {
		segment.Segment(&a, marker)
		return w.Encode(a)
	})
	return s, err
}

// Enrich fills in missing tickers and the sector weight map.
func Enrich(in, out string, ex tickers.Extractor, table *tickers.Table) (*Summary, error) {
	s := begin("enrich", in, out)
	defer s.end()
	err := transform(s, func(a models.Article, raw []byte, w *stream.Writer) error {
		if len(a.Sentences) == 0 {
			skip(s, models.ErrMalformedArticle, a.Key(), raw, errNoSentences)
			return nil
		}
		tickers.Enrich(&a, ex, table)
		return w.Encode(a)
	})
	return s, err
}
