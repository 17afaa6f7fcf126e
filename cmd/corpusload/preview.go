package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/corpusload/internal/preview"
	"github.com/dgallion1/corpusload/internal/report"
	"github.com/spf13/cobra"
)

var previewFormat string

var previewCmd = &cobra.Command{
	Use:   "preview TITLE",
	Short: "Render a stored work",
	Long:  `Render the stored index and latest version of TITLE as Markdown (md), HTML (html) or a heading outline (outline).`,
	Args:  cobra.ExactArgs(1),
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

		idx, err := st.GetIndex(ctx, args[0])
		if err != nil {
			return fmt.Errorf("index %q: %w", args[0], err)
		}
		v, err := st.GetVersion(ctx, args[0])
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}

		r := preview.NewRenderer()
		out := cmd.OutOrStdout()
		switch previewFormat {
		case "md", "markdown":
			s, err := r.Markdown(idx, v)
			if err != nil {
				return err
			}
			fmt.Fprint(out, s)
		case "html":
			s, err := r.HTML(idx, v)
			if err != nil {
				return err
			}
			fmt.Fprint(out, s)
		case "outline":
			s, err := r.Markdown(idx, v)
			if err != nil {
				return err
			}
			report.FormatOutline(out, preview.Outline([]byte(s)))
		default:
			return fmt.Errorf("unknown format %q (want md, html or outline)", previewFormat)
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewFormat, "format", "f", "md", "Output format: md, html or outline")
	rootCmd.AddCommand(previewCmd)
}
