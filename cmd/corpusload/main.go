package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/library/sqlite"
	"github.com/dgallion1/corpusload/internal/search"
	"github.com/dgallion1/corpusload/internal/version"
	"github.com/spf13/cobra"
)

var (
	debug       bool
	profilePath string
	searchPath  string
)

var rootCmd = &cobra.Command{
	Use:   "corpusload",
	Short: "Import literary corpora into a text library",
	Long: `corpusload restructures TEI prose works and JSON drama dumps into
index/version records and writes them to a text library: a remote library
API when LIBRARY_URL is set, otherwise a local SQLite store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("corpusload %s\n", version.String()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Corpus profile YAML (default $CORPUSLOAD_PROFILE or built-in)")
	rootCmd.PersistentFlags().StringVar(&searchPath, "search-index", "", "Bleve segment index directory (default $CORPUSLOAD_SEARCH_INDEX)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and the corpus profile. Logs go to w as JSON.
func setup(w *os.File) (config.Config, config.Profile, *slog.Logger, error) {
	cfg := config.Load()
	if debug {
		cfg.Debug = true
	}
	if profilePath != "" {
		cfg.ProfilePath = profilePath
	}
	if searchPath != "" {
		cfg.SearchIndexPath = searchPath
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))

	if err := cfg.Validate(); err != nil {
		return cfg, config.Profile{}, log, fmt.Errorf("invalid configuration: %w", err)
	}
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return cfg, config.Profile{}, log, err
	}
	return cfg, profile, log, nil
}

// store is what the CLI reads and writes: the remote library client or the
// local SQLite store.
type store interface {
	library.Sink
	library.Reader
}

// openStore picks the remote library when configured, otherwise the local
// SQLite database. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store, func(), error) {
	if cfg.LibraryURL != "" {
		c := library.NewClient(cfg.LibraryURL, cfg.LibraryAPIKey, cfg.HTTPTimeout, log)
		log.Debug("using remote library", "url", cfg.LibraryURL)
		return c, c.Close, nil
	}
	st, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("using local store", "path", cfg.DBPath)
	return st, func() { st.Close() }, nil
}

// openSearch opens the segment index when one is configured. A nil index
// with a nil error means search is disabled.
func openSearch(cfg config.Config, log *slog.Logger) (*search.Index, func(), error) {
	if cfg.SearchIndexPath == "" {
		return nil, func() {}, nil
	}
	ix, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("using search index", "path", cfg.SearchIndexPath)
	return ix, func() { ix.Close() }, nil
}

// requireSearch is openSearch for commands that cannot run without an index.
func requireSearch(cfg config.Config, log *slog.Logger) (*search.Index, func(), error) {
	if cfg.SearchIndexPath == "" {
		return nil, nil, fmt.Errorf("no search index configured: set --search-index or CORPUSLOAD_SEARCH_INDEX")
	}
	return openSearch(cfg, log)
}
