package models

import (
	"errors"
	"time"
)

// Run statuses.
const (
	RunOK      = "ok"
	RunFailed  = "failed"
	RunPartial = "partial"
)

// StageRun records one execution of a pipeline stage.
type StageRun struct {
	ID        string
	Stage     string
	Input     string
	Output    string
	Processed int
	Skipped   int
	Status    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// SkipRatio is skipped/(processed+skipped), or 0 for an empty run.
func (r *StageRun) SkipRatio() float64 {
	total := r.Processed + r.Skipped
	if total == 0 {
		return 0
	}
	return float64(r.Skipped) / float64(total)
}

func (r *StageRun) Validate() error {
	if r.ID == "" {
		return errors.New("run ID must not be empty")
	}
	if r.Stage == "" {
		return errors.New("stage must not be empty")
	}
	if r.Processed < 0 || r.Skipped < 0 {
		return errors.New("counts must not be negative")
	}
	switch r.Status {
	case RunOK, RunFailed, RunPartial:
	default:
		return errors.New("unknown run status " + r.Status)
	}
	return nil
}

// EvaluationSummary is the headline result of one evaluate run.
type EvaluationSummary struct {
	RunID      string
	Matched    int
	Accuracy   float64
	MacroF1    float64
	WeightedF1 float64
	ECE        float64
	Bins       int
	CreatedAt  time.Time
}
