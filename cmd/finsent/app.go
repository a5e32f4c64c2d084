package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/rewired-gh/finsent/internal/config"
	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/metrics"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/stage"
	"github.com/rewired-gh/finsent/internal/storage"
	"github.com/rewired-gh/finsent/internal/telegram"
)

// app carries what every subcommand shares.
type app struct {
	configPath string
	cfg        *config.Config
	store      *storage.Storage
	metrics    *metrics.Metrics
	notifier   *telegram.Client
	out        io.Writer
}

func (a *app) setup() error {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("Configuration loaded from %s", a.configPath)

	a.metrics = metrics.New()

	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage.MaxRuns, cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.store = store
	}

	if cfg.Telegram.Enabled {
		c, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		a.notifier = c
		logger.Debug("Telegram client initialized")
	}
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}
}

// finish reports a stage run everywhere it is configured to go and returns
// the error the process should exit with.
func (a *app) finish(ctx context.Context, sum *stage.Summary, err error) error {
	if sum == nil {
		return err
	}
	if err == nil {
		err = sum.CheckSkipRatio(a.cfg.Pipeline.MaxSkipRatio)
	}
	for _, line := range sum.Lines() {
		fmt.Fprintln(a.out, line)
	}

	run := sum.Run(uuid.NewString(), err)
	if err != nil {
		logger.Error("Stage %s %s: %v", sum.Stage, run.Status, err)
	}

	a.observe(sum, run)

	var eval *models.EvaluationSummary
	if sum.Report != nil && run.Status == models.RunOK {
		eval = &models.EvaluationSummary{
			RunID:      run.ID,
			Matched:    sum.Report.Matched,
			Accuracy:   sum.Report.Classification.Accuracy,
			MacroF1:    sum.Report.Classification.MacroAvg.F1,
			WeightedF1: sum.Report.Classification.WeightedAvg.F1,
			ECE:        sum.Report.Calibration.ECE,
			Bins:       len(sum.Report.Calibration.Bins),
			CreatedAt:  time.Now(),
		}
	}

	if a.store != nil {
		if serr := a.store.AddRun(run); serr != nil {
			logger.Warn("Failed to record run: %v", serr)
		} else if eval != nil {
			if serr := a.store.SaveEvaluation(run.ID, sum.Report, eval.CreatedAt); serr != nil {
				logger.Warn("Failed to record evaluation: %v", serr)
			}
		}
	}

	if a.notifier != nil {
		if nerr := a.notifier.SendRun(ctx, run, sum.Lines()[1:]...); nerr != nil {
			logger.Warn("Failed to send Telegram notification: %v", nerr)
		}
		if eval != nil {
			if nerr := a.notifier.SendEvaluation(ctx, *eval); nerr != nil {
				logger.Warn("Failed to send Telegram notification: %v", nerr)
			}
		}
	}
	return err
}

func (a *app) observe(sum *stage.Summary, run *models.StageRun) {
	m := a.metrics
	m.ObserveStage(sum.Stage, sum.Processed, sum.Skipped, sum.Duration, run.Status == models.RunOK, time.Now())
	if sum.Truncated {
		m.Records.WithLabelValues(sum.Stage, "truncated").Inc()
	}
	m.PredictorCalls.Add(float64(sum.Scheduler.PredictorCalls))
	m.Sentences.Add(float64(sum.Scheduler.Sentences))
	for i, l := range models.LabelOrder {
		if n := sum.Labels[i]; n > 0 {
			m.Verdicts.WithLabelValues(string(l)).Add(float64(n))
		}
	}
	if sum.Stage == "label" {
		m.LabelerFailures.Add(float64(sum.Skipped))
	}
	if r := sum.Report; r != nil {
		m.ECE.Set(r.Calibration.ECE)
		m.MacroF1.Set(r.Classification.MacroAvg.F1)
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := m.WriteTextfile(path); err != nil {
			logger.Warn("Failed to write metrics textfile: %v", err)
		}
	}
}
