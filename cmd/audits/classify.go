package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/algorithm-audits/audits/internal/ledger"
	"github.com/algorithm-audits/audits/internal/lmstudio"
	"github.com/algorithm-audits/audits/internal/pipeline"
	"github.com/algorithm-audits/audits/internal/storage"
)

type classifyOptions struct {
	input      string
	output     string
	logPath    string
	ledgerPath string
	noLedger   bool
	workers    int
	limit      int
	model      string
	baseURL    string
}

// ClassifyResponse is the JSON output of the classify command.
type ClassifyResponse struct {
	pipeline.Summary
	Output      string `json:"output"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

func newClassifyCmd(a *app) *cobra.Command {
	opts := &classifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify candidate studies with a local LM Studio model",
		Long: `Classify candidate studies with a local LM Studio model.

Each study in the input CSV is asked "is this an algorithm audit?". For audits
the model also extracts method, domain, organization and behavior, and the row
is appended to the output CSV. Studies already recorded in the progress ledger,
or listed in a progress log given with --log, are skipped, so an interrupted
run can simply be restarted.

Usage:
  audits classify --input studies.csv --output audits.csv
  audits classify --input studies.csv --output audits.csv --log classify_output.log --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				opts.workers = a.cfg.Classify.Workers
			}
			if !cmd.Flags().Changed("ledger") {
				opts.ledgerPath = a.cfg.Ledger.Path
			}
			if !cmd.Flags().Changed("model") {
				opts.model = a.cfg.LMStudio.Model
			}
			if !cmd.Flags().Changed("base-url") {
				opts.baseURL = a.cfg.LMStudio.BaseURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := lmstudio.NewClient(
				lmstudio.WithBaseURL(opts.baseURL),
				lmstudio.WithModel(opts.model),
				lmstudio.WithTimeout(time.Duration(a.cfg.LMStudio.TimeoutSecs)*time.Second),
				lmstudio.WithRateLimit(a.cfg.LMStudio.RatePerSec),
				lmstudio.WithAbstractMax(a.cfg.Classify.AbstractMaxChars),
			)
			return a.runClassify(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), client, opts)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "Studies CSV (Scopus-style export)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Audit CSV to append to")
	cmd.Flags().StringVar(&opts.logPath, "log", "", "Progress log to resume from and append to")
	cmd.Flags().StringVar(&opts.ledgerPath, "ledger", "", "Progress database (default from config)")
	cmd.Flags().BoolVar(&opts.noLedger, "no-ledger", false, "Do not read or write the progress database")
	cmd.Flags().IntVar(&opts.workers, "workers", pipeline.DefaultWorkers, "Concurrent model requests")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Classify at most N remaining studies (0 = all)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name (default from config)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "LM Studio base URL (default from config)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

// modelClient is what classify needs from the LM Studio client.
type modelClient interface {
	pipeline.Classifier
	IsAvailable(ctx context.Context) error
	HasModel(ctx context.Context) (bool, error)
	ModelName() string
}

func (a *app) runClassify(ctx context.Context, stdout, stderr io.Writer, client modelClient, opts *classifyOptions) error {
	logger := zap.L()

	if err := client.IsAvailable(ctx); err != nil {
		return withExit(ExitConfigError, err)
	}
	if ok, err := client.HasModel(ctx); err == nil && !ok {
		logger.Warn("model not listed by LM Studio", zap.String("model", client.ModelName()))
	}

	studies, err := storage.ReadStudies(opts.input)
	if err != nil {
		return withExit(ExitDataError, err)
	}

	done := pipeline.TitleSet{}
	var legacy pipeline.TitleSet
	if opts.logPath != "" {
		legacy, err = pipeline.ReadProgressLog(opts.logPath)
		if err != nil {
			return withExit(ExitDataError, err)
		}
		done.AddAll(slices.Collect(maps.Keys(legacy)))
	}

	var (
		led   *ledger.Ledger
		runID string
	)
	if !opts.noLedger {
		led, err = ledger.Open(opts.ledgerPath)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		defer led.Close()

		titles, err := led.Titles(ctx)
		if err != nil {
			return err
		}
		done.AddAll(titles)

		run, err := led.StartRun(ctx, opts.input, client.ModelName())
		if err != nil {
			return err
		}
		runID = run.ID
		if len(legacy) > 0 {
			added, err := led.ImportTitles(ctx, runID, slices.Sorted(maps.Keys(legacy)))
			if err != nil {
				return err
			}
			logger.Info("imported progress log", zap.String("log", opts.logPath), zap.Int("titles", added))
		}
	}

	tasks, skipped := pipeline.Plan(studies, done, opts.limit)
	header := fmt.Sprintf("Loaded %d studies, %d already processed, %d remaining.", len(studies), skipped, len(tasks))
	logger.Info("classification starting",
		zap.Int("studies", len(studies)),
		zap.Int("skipped", skipped),
		zap.Int("remaining", len(tasks)),
		zap.String("model", client.ModelName()),
		zap.String("run_id", runID),
	)

	progress := stderr
	if opts.logPath != "" {
		f, err := os.OpenFile(opts.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		defer f.Close()
		progress = io.MultiWriter(stderr, f)
	}
	fmt.Fprintln(progress, header)

	sink, err := storage.OpenAuditWriter(opts.output)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithWorkers(opts.workers),
		pipeline.WithProgressEvery(a.cfg.Classify.ProgressEvery),
		pipeline.WithLogger(logger),
		pipeline.WithProgressWriter(progress),
	}
	if led != nil {
		pipeOpts = append(pipeOpts, pipeline.WithRecorder(led, runID))
	}

	summary, runErr := pipeline.New(client, sink, pipeOpts...).Run(ctx, tasks, len(studies))
	summary.Skipped = skipped
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}

	resp := ClassifyResponse{
		Summary:     summary,
		Output:      opts.output,
		Interrupted: errors.Is(runErr, context.Canceled),
	}
	if a.human {
		fmt.Fprintf(stdout, "Done. Processed %d, found %d new audits (%d failures). Appended to %s\n",
			summary.Processed, summary.Audits, summary.Failures, opts.output)
		if resp.Interrupted {
			fmt.Fprintln(stdout, "Interrupted: rerun the same command to resume.")
		}
	} else if err := outputJSON(stdout, resp); err != nil {
		return err
	}
	return runErr
}
