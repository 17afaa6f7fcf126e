package main

import (
	"os"

	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/dgallion1/corpusload/internal/report"
	"github.com/spf13/cobra"
)

var seedOutDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the section-name terms and category taxonomy",
	Long:  `Write the taxonomy from the corpus profile: section-name terms, category terms and the category tree.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, profile, log, err := setup(os.Stderr)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var sink library.Sink
		if seedOutDir != "" {
			ds, err := library.NewDirSink(seedOutDir)
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
		}

		res, err := pipeline.Seed(ctx, sink, profile.Taxonomy, profile.HeTitlePrefix, log)
		if err != nil {
			return err
		}
		report.FormatSeed(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOutDir, "out-dir", "", "Write JSON records to this directory instead of a store")
	rootCmd.AddCommand(seedCmd)
}
