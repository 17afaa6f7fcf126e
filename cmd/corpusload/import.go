package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/dgallion1/corpusload/internal/report"
	"github.com/spf13/cobra"
)

var (
	importForce   bool
	importOutDir  string
	importVerbose bool
)

var importCmd = &cobra.Command{
	Use:   "import (prose|drama) FILE",
	Short: "Import a corpus file",
	Long: `Import a TEI prose work (prose) or a JSON drama dump (drama).

Every work found in the file is built completely before anything is written.
Titles whose stored content is identical are skipped unless --force is set.
With --out-dir the records are written as JSON files instead of to a store.
When a search index is configured, stored works are also indexed for search.`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(pipeline.KindProse), string(pipeline.KindDrama)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := pipeline.ParseKind(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read corpus: %w", err)
		}

		cfg, profile, log, err := setup(os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			sink library.Sink
			opts []pipeline.WorkerOption
		)
		if importOutDir != "" {
			ds, err := library.NewDirSink(importOutDir)
			if err != nil {
				return err
			}
			sink = ds
		} else {
			st, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()
			sink = st

			ix, closeSearch, err := openSearch(cfg, log)
			if err != nil {
				return err
			}
			defer closeSearch()
			if ix != nil {
				opts = append(opts, pipeline.WithIndexer(ix))
			}
		}

		job := pipeline.NewJob(kind, filepath.Base(args[1]), data)
		job.Force = importForce
		pipeline.NewWorker(sink, profile, log, cfg.MaxConcurrentStore, opts...).Process(ctx, job)

		snap := job.Snapshot()
		report.FormatJob(cmd.OutOrStdout(), snap, job.Report(), importVerbose)

		switch snap.Status {
		case pipeline.StatusFailed:
			return fmt.Errorf("import failed")
		case pipeline.StatusPartial:
			return fmt.Errorf("import partially failed: %d of %d works stored", snap.Progress.WorksStored, snap.Progress.TotalWorks)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Store every work even if unchanged")
	importCmd.Flags().StringVar(&importOutDir, "out-dir", "", "Write JSON records to this directory instead of a store")
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "List every diagnostic")
	rootCmd.AddCommand(importCmd)
}
