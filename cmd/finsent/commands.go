package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/finsent/internal/aggregate"
	"github.com/rewired-gh/finsent/internal/config"
	"github.com/rewired-gh/finsent/internal/labeler"
	"github.com/rewired-gh/finsent/internal/predictor"
	"github.com/rewired-gh/finsent/internal/scheduler"
	"github.com/rewired-gh/finsent/internal/stage"
	"github.com/rewired-gh/finsent/internal/tickers"
)

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:          "finsent",
		Short:        "Sector-level news sentiment pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to configuration file")

	root.AddCommand(
		segmentCmd(a),
		enrichCmd(a),
		inferCmd(a),
		aggregateCmd(a),
		sampleCmd(a),
		labelCmd(a),
		evaluateCmd(a),
		verifyCmd(a),
		runsCmd(a),
	)
	return root, a
}

func segmentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "segment <in> <out>",
		Short: "Clean raw articles and split them into sentences",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := stage.Segment(args[0], args[1], a.cfg.Aggregate.HeadlineMarker)
			return a.finish(cmd.Context(), sum, err)
		},
	}
}

func enrichCmd(a *app) *cobra.Command {
	var mapPath string
	cmd := &cobra.Command{
		Use:   "enrich <in> <out>",
		Short: "Extract tickers and attach sector weights",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, ex, err := a.loadTickers(mapPath)
			if err != nil {
				return err
			}
			sum, err := stage.Enrich(args[0], args[1], ex, table)
			return a.finish(cmd.Context(), sum, err)
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "ticker to sector CSV (overrides aggregate.ticker_map)")
	return cmd
}

func inferCmd(a *app) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "infer <in> <out>",
		Short: "Score every sentence with the sentence classifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := a.cfg.Predictor
			if url == "" {
				url = pc.URL
			}
			client := predictor.NewClient(url, predictor.ClientConfig{
				Timeout:        pc.Timeout,
				MaxRetries:     pc.MaxRetries,
				RetryDelayBase: pc.RetryDelayBase,
			})
			sched := scheduler.Config{
				ArticleBatchSize: a.cfg.Pipeline.ArticleBatchSize,
				SubBatchSize:     a.cfg.Pipeline.SubBatchSize,
				Workers:          a.cfg.Pipeline.Workers,
			}
			sum, err := stage.Infer(cmd.Context(), args[0], args[1], client, sched)
			return a.finish(cmd.Context(), sum, err)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "classifier endpoint (overrides predictor.url)")
	return cmd
}

func aggregateCmd(a *app) *cobra.Command {
	var mapPath string
	cmd := &cobra.Command{
		Use:   "aggregate <in> <out>",
		Short: "Fuse sentence scores into article and sector verdicts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, ex, err := a.loadTickers(mapPath)
			if err != nil {
				return err
			}
			ac := a.cfg.Aggregate
			resolver, err := tickers.NewResolver(ac.Attribution, ex, table, ac.FallbackSector)
			if err != nil {
				return err
			}
			engine := aggregate.New(resolver, aggregate.Config{
				ConfidenceFloor: ac.ConfidenceFloor,
				HeadlineMarker:  ac.HeadlineMarker,
			})
			sum, err := stage.Aggregate(args[0], args[1], engine)
			return a.finish(cmd.Context(), sum, err)
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "ticker to sector CSV (overrides aggregate.ticker_map)")
	return cmd
}

func sampleCmd(a *app) *cobra.Command {
	var k int
	var seed int64
	cmd := &cobra.Command{
		Use:   "sample <in> <out>",
		Short: "Draw a seeded, reproducible sample of k records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("k") {
				k = a.cfg.Sample.K
			}
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.Sample.Seed
			}
			sum, err := stage.Sample(args[0], args[1], k, seed)
			return a.finish(cmd.Context(), sum, err)
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "sample size (overrides sample.k)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides sample.seed)")
	return cmd
}

func labelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "label <in> <out>",
		Short: "Ask an LLM for gold verdicts on sampled articles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := a.cfg.Labeler
			cfg := labeler.Config{
				Provider:       lc.Provider,
				Model:          lc.Model,
				APIKey:         lc.APIKey,
				BaseURL:        lc.BaseURL,
				MaxAttempts:    lc.MaxAttempts,
				Backoff:        lc.Backoff,
				MaxSentences:   lc.MaxSentences,
				HeadlineMarker: a.cfg.Aggregate.HeadlineMarker,
			}
			if cfg.APIKey == "" {
				return fmt.Errorf("labeler.api_key is required (set FINSENT_LABELER_API_KEY)")
			}
			completer, err := labeler.NewCompleter(cfg)
			if err != nil {
				return err
			}
			sum, err := stage.Label(cmd.Context(), args[0], args[1], labeler.New(completer, cfg))
			return a.finish(cmd.Context(), sum, err)
		},
	}
}

func evaluateCmd(a *app) *cobra.Command {
	var bins int
	cmd := &cobra.Command{
		Use:   "evaluate <pred> <gold> [results-dir]",
		Short: "Score verdicts against gold labels and write the report",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Evaluate.ResultsDir
			if len(args) == 3 {
				dir = args[2]
			}
			if !cmd.Flags().Changed("bins") {
				bins = a.cfg.Evaluate.Bins
			}
			sum, err := stage.Evaluate(args[0], args[1], dir, bins)
			return a.finish(cmd.Context(), sum, err)
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 0, "number of calibration bins (overrides evaluate.bins)")
	return cmd
}

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <in>",
		Short: "Read a file end to end and report truncation or corruption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := stage.Verify(args[0])
			return a.finish(cmd.Context(), sum, err)
		},
	}
}

func runsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent stage runs and evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.store == nil {
				return fmt.Errorf("storage is disabled")
			}
			runs, err := a.store.RecentRuns(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTAGE\tSTATUS\tPROCESSED\tSKIPPED\tDURATION\tID")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%v\t%s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.Stage, r.Status,
					r.Processed, r.Skipped, r.Duration.Round(time.Millisecond), r.ID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			evals, err := a.store.RecentEvaluations(limit)
			if err != nil {
				return err
			}
			if len(evals) == 0 {
				return nil
			}
			fmt.Fprintln(a.out)
			tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tMATCHED\tACCURACY\tMACRO_F1\tECE\tRUN")
			for _, e := range evals {
				fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.4f\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Matched, e.Accuracy, e.MacroF1, e.ECE, e.RunID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

// loadTickers loads the sector table and builds the configured extractor.
func (a *app) loadTickers(mapPath string) (*tickers.Table, tickers.Extractor, error) {
	if mapPath == "" {
		mapPath = a.cfg.Aggregate.TickerMap
	}
	table, err := tickers.LoadTable(mapPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ticker map: %w", err)
	}
	ex, err := tickers.NewExtractor(a.cfg.Aggregate.Extractor, table)
	if err != nil {
		return nil, nil, err
	}
	return table, ex, nil
}
