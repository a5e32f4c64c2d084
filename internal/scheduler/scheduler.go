// Package scheduler batches articles for the sentence classifier.
//
// Articles are buffered into outer batches. Each batch's sentences are
// flattened into one list and sent to the predictor in bounded sub-batches,
// then the scores are split back onto their articles by cumulative sentence
// counts. Articles leave in the order they arrived.
package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/predictor"
)

// Config sizes the two batching levels. Workers > 1 scores that many outer
// batches concurrently; the predictor must then be safe for concurrent use.
type Config struct {
	ArticleBatchSize int
	SubBatchSize     int
	Workers          int
}

// DefaultConfig returns the sizes used by the pipeline.
func DefaultConfig() Config {
	return Config{
		ArticleBatchSize: 100,
		SubBatchSize:     32,
		Workers:          1,
	}
}

// EmitFunc receives each scored article.
type EmitFunc func(models.Article) error

// Stats counts the work done so far.
type Stats struct {
	Articles       int
	Sentences      int
	Batches        int
	PredictorCalls int
}

// Scheduler is not safe for concurrent use; one goroutine feeds it.
type Scheduler struct {
	predictor predictor.Predictor
	config    Config
	emit      EmitFunc

	buffer  []models.Article
	pending [][]models.Article
	stats   Stats
}

// New creates a scheduler that hands scored articles to emit.
func New(p predictor.Predictor, config Config, emit EmitFunc) (*Scheduler, error) {
	if config.ArticleBatchSize < 1 || config.SubBatchSize < 1 {
		return nil, fmt.Errorf("batch sizes must be positive (article=%d, sub=%d)",
			config.ArticleBatchSize, config.SubBatchSize)
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Scheduler{
		predictor: p,
		config:    config,
		emit:      emit,
		buffer:    make([]models.Article, 0, config.ArticleBatchSize),
	}, nil
}

// Add buffers an article, scoring and emitting once enough batches are full.
func (s *Scheduler) Add(ctx context.Context, a models.Article) error {
	s.buffer = append(s.buffer, a)
	if len(s.buffer) < s.config.ArticleBatchSize {
		return nil
	}
	s.pending = append(s.pending, s.buffer)
	s.buffer = make([]models.Article, 0, s.config.ArticleBatchSize)
	if len(s.pending) < s.config.Workers {
		return nil
	}
	return s.drain(ctx)
}

// Flush scores and emits everything still buffered.
func (s *Scheduler) Flush(ctx context.Context) error {
	if len(s.buffer) > 0 {
		s.pending = append(s.pending, s.buffer)
		s.buffer = make([]models.Article, 0, s.config.ArticleBatchSize)
	}
	return s.drain(ctx)
}

// Stats returns the counters for batches emitted so far.
func (s *Scheduler) Stats() Stats { return s.stats }

func (s *Scheduler) drain(ctx context.Context) error {
	batches := s.pending
	s.pending = nil
	if len(batches) == 0 {
		return nil
	}

	results := make([]scored, len(batches))
	if len(batches) == 1 {
		r, err := s.score(ctx, s.stats.Batches, batches[0])
		if err != nil {
			return err
		}
		results[0] = r
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, b := range batches {
			seq := s.stats.Batches + i
			g.Go(func() error {
				r, err := s.score(gctx, seq, b)
				results[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	// Only this goroutine emits, in batch then article order.
	for _, r := range results {
		for _, a := range r.articles {
			if err := s.emit(a); err != nil {
				return err
			}
		}
		s.stats.Batches++
		s.stats.Articles += len(r.articles)
		s.stats.Sentences += r.sentences
		s.stats.PredictorCalls += r.calls
	}
	logger.Debug("Scored %d batches (%d articles so far)", len(batches), s.stats.Articles)
	return nil
}

type scored struct {
	articles  []models.Article
	sentences int
	calls     int
}

// score runs one outer batch through the predictor. Any predictor failure
// fails the whole batch so no article is emitted half-scored.
func (s *Scheduler) score(ctx context.Context, seq int, batch []models.Article) (scored, error) {
	var flat []string
	for _, a := range batch {
		flat = append(flat, a.Sentences...)
	}

	all := make([]models.SentenceScore, 0, len(flat))
	calls := 0
	for start := 0; start < len(flat); start += s.config.SubBatchSize {
		end := min(start+s.config.SubBatchSize, len(flat))
		sub := flat[start:end]
		got, err := s.predictor.Predict(ctx, sub)
		calls++
		if err != nil {
			return scored{}, fmt.Errorf("batch %d, sentences [%d:%d): %w", seq, start, end, err)
		}
		if len(got) != len(sub) {
			return scored{}, fmt.Errorf("batch %d, sentences [%d:%d): %w: got %d scores for %d sentences",
				seq, start, end, models.ErrExternalService, len(got), len(sub))
		}
		for i, sc := range got {
			if err := sc.Validate(); err != nil {
				return scored{}, fmt.Errorf("batch %d, sentence %d: %w: %v", seq, start+i, models.ErrExternalService, err)
			}
		}
		all = append(all, got...)
	}

	out := make([]models.Article, len(batch))
	lo := 0
	for i, a := range batch {
		hi := lo + len(a.Sentences)
		a.Sentiments = make([]models.SentenceScore, hi-lo)
		copy(a.Sentiments, all[lo:hi])
		out[i] = a
		lo = hi
	}
	return scored{articles: out, sentences: len(flat), calls: calls}, nil
}
