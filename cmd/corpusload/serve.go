package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/corpusload/internal/api"
	"github.com/dgallion1/corpusload/internal/library/sqlite"
	"github.com/dgallion1/corpusload/internal/metrics"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local library over HTTP",
	Long: `Serve the SQLite library through the library API, with asynchronous
corpus imports at POST /api/import. Prometheus metrics are exposed at
/metrics, and /api/search is enabled when a search index is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, profile, log, err := setup(os.Stdout)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		st, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		ix, closeSearch, err := openSearch(cfg, log)
		if err != nil {
			return err
		}
		defer closeSearch()

		m := metrics.New()
		workerOpts := []pipeline.WorkerOption{pipeline.WithObserver(m)}
		serverOpts := []api.Option{api.WithMetrics(m)}
		if ix != nil {
			workerOpts = append(workerOpts, pipeline.WithIndexer(ix))
			serverOpts = append(serverOpts, api.WithSearch(ix))
		}

		// Initialize pipeline.
		orch := pipeline.NewOrchestrator(cfg, profile, st, log, workerOpts...)
		orch.Start(ctx)

		srv := api.NewServer(st, orch, log, cfg, serverOpts...)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		done := make(chan struct{})
		go func() {
			defer close(done)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)

			orch.Stop()
		}()

		log.Info("starting corpusload", "port", cfg.Port, "db", cfg.DBPath, "search", cfg.SearchIndexPath != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			cancel()
			<-done
			return err
		}
		<-done
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
