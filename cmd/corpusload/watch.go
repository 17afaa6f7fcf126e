package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/dgallion1/corpusload/internal/report"
	"github.com/dgallion1/corpusload/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchPatterns []string
	watchSync     bool
	watchVerbose  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Import corpus files as they appear",
	Long: `Watch DIR and import every matching file once it stops changing.
The corpus kind comes from the extension: .xml is prose, .json is drama.
With --sync, files already in DIR are imported first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, profile, log, err := setup(os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		ix, closeSearch, err := openSearch(cfg, log)
		if err != nil {
			return err
		}
		defer closeSearch()

		opts := []pipeline.WorkerOption{pipeline.WithObserver(&jobPrinter{w: cmd.OutOrStdout(), verbose: watchVerbose})}
		if ix != nil {
			opts = append(opts, pipeline.WithIndexer(ix))
		}
		orch := pipeline.NewOrchestrator(cfg, profile, st, log, opts...)
		orch.Start(ctx)
		defer orch.Stop()

		w, err := watch.New(args[0], watchPatterns, func(path string) {
			submitFile(ctx, orch, path, log)
		}, log)
		if err != nil {
			return err
		}
		if watchSync {
			if err := w.Sync(); err != nil {
				return fmt.Errorf("sync %s: %w", args[0], err)
			}
		}
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func submitFile(ctx context.Context, orch *pipeline.Orchestrator, path string, log *slog.Logger) {
	kind, err := pipeline.KindForFile(path)
	if err != nil {
		log.Warn("skipping file", "path", path, "error", err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("read corpus failed", "path", path, "error", err)
		return
	}
	job := pipeline.NewJob(kind, filepath.Base(path), data)
	if err := orch.SubmitWait(ctx, job); err != nil {
		log.Warn("submit failed", "path", path, "error", err)
		return
	}
	log.Info("job submitted", "job_id", job.ID, "path", path, "kind", kind)
}

// jobPrinter writes a report for every finished job. Workers finish
// concurrently so writes are serialized.
type jobPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func (p *jobPrinter) ObserveJob(snap pipeline.JobSnapshot, r *diag.Report, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	report.FormatJob(p.w, snap, r, p.verbose)
}

var _ pipeline.Observer = (*jobPrinter)(nil)

func init() {
	watchCmd.Flags().StringSliceVar(&watchPatterns, "pattern", nil, "Glob relative to DIR, repeatable (default **/*.xml and **/*.json)")
	watchCmd.Flags().BoolVar(&watchSync, "sync", false, "Import existing files before watching")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "List every diagnostic")
	rootCmd.AddCommand(watchCmd)
}

