package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/report"
	"github.com/spf13/cobra"
)

var (
	searchWork  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search stored segments",
	Long:  `Full-text search over every indexed segment. Results show the work and the dotted segment reference.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, log, err := setup(os.Stderr)
		if err != nil {
			return err
		}
		ix, closeSearch, err := requireSearch(cfg, log)
		if err != nil {
			return err
		}
		defer closeSearch()

		query := strings.Join(args, " ")
		hits, err := ix.Search(cmd.Context(), query, searchWork, searchLimit)
		if err != nil {
			return err
		}
		report.FormatHits(cmd.OutOrStdout(), query, hits)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [TITLE...]",
	Short: "Rebuild the search index from the store",
	Long:  `Re-index the latest version of every stored work, or only the named titles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, log, err := setup(os.Stderr)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		st, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		ix, closeSearch, err := requireSearch(cfg, log)
		if err != nil {
			return err
		}
		defer closeSearch()

		var indexes []library.Index
		if len(args) == 0 {
			if indexes, err = st.ListIndexes(ctx); err != nil {
				return fmt.Errorf("list indexes: %w", err)
			}
		} else {
			for _, title := range args {
				idx, err := st.GetIndex(ctx, title)
				if err != nil {
					return fmt.Errorf("index %q: %w", title, err)
				}
				indexes = append(indexes, idx)
			}
		}

		counts := make(map[string]int, len(indexes))
		var titles []string
		for _, idx := range indexes {
			v, err := st.GetVersion(ctx, idx.Title)
			if errors.Is(err, library.ErrNotFound) {
				log.Warn("index has no version, skipping", "title", idx.Title)
				continue
			}
			if err != nil {
				return fmt.Errorf("version %q: %w", idx.Title, err)
			}
			n, err := ix.IndexWork(ctx, idx, v)
			if err != nil {
				return fmt.Errorf("index %q: %w", idx.Title, err)
			}
			counts[idx.Title] = n
			titles = append(titles, idx.Title)
		}
		report.FormatReindex(cmd.OutOrStdout(), counts, titles)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchWork, "work", "", "Only search this work title")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of hits")
	rootCmd.AddCommand(searchCmd, reindexCmd)
}
