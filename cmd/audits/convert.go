package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/algorithm-audits/audits/internal/storage"
)

type convertOptions struct {
	input  string
	output string
	asJSON bool
}

// ConvertResponse is the JSON output of the convert command.
type ConvertResponse struct {
	Entries int    `json:"entries"`
	Output  string `json:"output"`
	Format  string `json:"format"`
}

func newConvertCmd(a *app) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a review table CSV into the website data file",
		Long: `Convert a review table CSV into the website data file.

Columns are written in a fixed order; columns missing from the CSV are
written as empty strings. The default output is a JavaScript file assigning
the array to DATA. Use --json for a plain JSON array.

Usage:
  audits convert --input "Algorithm Audit Review - Sheet1.csv" --output audit-data.js
  audits convert --input table.csv --output audits.json --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "Review table CSV")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Write a JSON array instead of JavaScript")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) runConvert(w io.Writer, opts *convertOptions) error {
	rows, err := storage.ReadReviewTable(opts.input)
	if err != nil {
		return withExit(ExitDataError, err)
	}
	if err := storage.WriteReviewExport(opts.output, rows, opts.asJSON); err != nil {
		return err
	}

	resp := ConvertResponse{Entries: len(rows), Output: opts.output, Format: "js"}
	if opts.asJSON {
		resp.Format = "json"
	}
	if a.human {
		fmt.Fprintf(w, "Wrote %d entries to %s\n", resp.Entries, resp.Output)
		return nil
	}
	return outputJSON(w, resp)
}
