// Package stage runs pipeline stages over NDJSON files. Every runner reads its
// input as a stream, writes its output atomically and returns a Summary.
package stage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/finsent/internal/evaluate"
	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/scheduler"
	"github.com/rewired-gh/finsent/internal/stats"
	"github.com/rewired-gh/finsent/internal/stream"
)

// ErrTooManySkipped marks a run whose skip ratio exceeded the configured limit.
var ErrTooManySkipped = errors.New("too many skipped records")

var errNoSentences = errors.New("article has no sentences")

// Summary describes one stage run.
type Summary struct {
	Stage     string
	Input     string
	Output    string
	Processed int
	Skipped   int
	Truncated bool
	StartedAt time.Time
	Duration  time.Duration

	// Filled by the stages that produce them.
	Labels     [models.NumLabels]int
	Confidence stats.Welford
	Scheduler  scheduler.Stats
	Report     *evaluate.Report
}

func begin(stage, in, out string) *Summary {
	return &Summary{Stage: stage, Input: in, Output: out, StartedAt: time.Now()}
}

func (s *Summary) end() {
	s.Duration = time.Since(s.StartedAt)
}

// SkipRatio is skipped/(processed+skipped).
func (s *Summary) SkipRatio() float64 {
	total := s.Processed + s.Skipped
	if total == 0 {
		return 0
	}
	return float64(s.Skipped) / float64(total)
}

// CheckSkipRatio fails when more than max of the records were skipped.
func (s *Summary) CheckSkipRatio(max float64) error {
	if r := s.SkipRatio(); r > max {
		return fmt.Errorf("%w: %d of %d records (%.2f%% > %.2f%%)",
			ErrTooManySkipped, s.Skipped, s.Processed+s.Skipped, r*100, max*100)
	}
	return nil
}

// Run converts the summary into a history record. err is the run's final
// error, if any.
func (s *Summary) Run(id string, err error) *models.StageRun {
	run := &models.StageRun{
		ID:        id,
		Stage:     s.Stage,
		Input:     s.Input,
		Output:    s.Output,
		Processed: s.Processed,
		Skipped:   s.Skipped,
		Status:    models.RunOK,
		StartedAt: s.StartedAt,
		Duration:  s.Duration,
	}
	switch {
	case err == nil:
	case errors.Is(err, models.ErrIOFailure), errors.Is(err, ErrTooManySkipped):
		run.Status = models.RunPartial
		run.Error = err.Error()
	default:
		run.Status = models.RunFailed
		run.Error = err.Error()
	}
	return run
}

// Lines renders the summary for the terminal, one fact per line.
func (s *Summary) Lines() []string {
	lines := []string{
		fmt.Sprintf("%s: %d processed, %d skipped in %v", s.Stage, s.Processed, s.Skipped, s.Duration.Round(time.Millisecond)),
	}
	if s.Truncated {
		lines = append(lines, fmt.Sprintf("input truncated; salvaged %d records", s.Processed))
	}
	if st := s.Scheduler; st.Batches > 0 {
		lines = append(lines, fmt.Sprintf("%d sentences in %d batches, %d predictor calls", st.Sentences, st.Batches, st.PredictorCalls))
	}
	if s.Confidence.Count > 0 {
		lines = append(lines, fmt.Sprintf("overall confidence mean %.2f, stddev %.2f, min %.2f, max %.2f",
			s.Confidence.Mean, s.Confidence.StdDev(), s.Confidence.Min, s.Confidence.Max))
		parts := make([]string, 0, models.NumLabels)
		for i, l := range models.LabelOrder {
			parts = append(parts, fmt.Sprintf("%s %d", l, s.Labels[i]))
		}
		lines = append(lines, "labels: "+strings.Join(parts, ", "))
	}
	if r := s.Report; r != nil {
		lines = append(lines,
			fmt.Sprintf("matched %d (prediction-only %d, gold-only %d)", r.Matched, r.PredOnly, r.GoldOnly),
			fmt.Sprintf("Macro F1: %.4f  Accuracy: %.4f  ECE: %.3f", r.Classification.MacroAvg.F1, r.Classification.Accuracy, r.Calibration.ECE),
		)
	}
	return lines
}

// transform streams s.Input through fn into s.Output. fn returns an error
// only to stop the run; per-record problems are counted in s.Skipped.
func transform[T any](s *Summary, fn func(rec T, raw []byte, w *stream.Writer) error) error {
	r, err := stream.Open(s.Input)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := stream.Create(s.Output)
	if err != nil {
		return err
	}
	counts, err := stream.Each(r, func(rec T, raw []byte) error {
		return fn(rec, raw, w)
	})
	s.Skipped += counts.Malformed
	s.Truncated = counts.Truncated
	err = commit(w, err)
	s.Processed = w.Written()
	return err
}

// commit keeps the output of a clean run or of a truncated input, and drops
// it on any other failure.
func commit(w *stream.Writer, err error) error {
	if err != nil && !errors.Is(err, models.ErrIOFailure) {
		w.Abort()
		return err
	}
	if cerr := w.Commit(); cerr != nil {
		return cerr
	}
	return err
}

// skip logs a rejected record.
func skip(s *Summary, kind error, key string, raw []byte, cause error) {
	s.Skipped++
	rerr := models.NewRecordError(kind, key, 0, string(raw), cause)
	logger.Warn("Skipping record in %s: %v (%s)", s.Input, rerr, rerr.Excerpt)
}
