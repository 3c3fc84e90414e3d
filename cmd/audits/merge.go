package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/algorithm-audits/audits/internal/reconcile"
	"github.com/algorithm-audits/audits/internal/storage"
)

type mergeOptions struct {
	jsonPath     string
	csvPath      string
	output       string
	provenance   string
	strict       bool
	logAmbiguous bool
	dryRun       bool
	showMatches  bool
}

// MergeResponse is the JSON output of the merge command.
type MergeResponse struct {
	reconcile.Report
	Output  string            `json:"output,omitempty"`
	Matches []reconcile.Match `json:"matches,omitempty"`
}

func newMergeCmd(a *app) *cobra.Command {
	opts := &mergeOptions{}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a reviewed audit CSV into the canonical JSON dataset",
		Long: `Merge a reviewed audit CSV into the canonical JSON dataset.

Each JSON record is matched to a CSV row by identifier: first the exact
normalized DOI/URL, then the last path segment, then a numeric ID contained
in the DOI. Matched records get the CSV's Title, Authors, Year, Method,
Domain, Organization and Behavior, and Source is set to the provenance label.

Usage:
  audits merge --json feb2026-audits-compiled.json --csv audits-from-paper.csv
  audits merge --json data.json --csv patch.csv --dry-run --human`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("provenance") {
				opts.provenance = a.cfg.Merge.Provenance
			}
			if !cmd.Flags().Changed("strict") {
				opts.strict = a.cfg.Merge.Strict
			}
			return a.runMerge(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.jsonPath, "json", "", "Canonical JSON dataset (updated in place)")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Patch CSV with reviewed audits")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the merged dataset here instead of --json")
	cmd.Flags().StringVar(&opts.provenance, "provenance", "", "Source label for matched records (default from config)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Require at least 6 digits for contained numeric IDs")
	cmd.Flags().BoolVar(&opts.logAmbiguous, "log-ambiguous", false, "Log contained-ID matches with more than one candidate")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report matches without writing")
	cmd.Flags().BoolVar(&opts.showMatches, "matches", false, "Include every match in the output")
	cmd.MarkFlagRequired("json")
	cmd.MarkFlagRequired("csv")
	return cmd
}

func (a *app) runMerge(w io.Writer, opts *mergeOptions) error {
	rows, err := storage.ReadPatchRows(opts.csvPath)
	if err != nil {
		return withExit(ExitDataError, err)
	}
	records, err := storage.ReadDataset(opts.jsonPath)
	if err != nil {
		return withExit(ExitDataError, err)
	}

	engineOpts := []reconcile.Option{
		reconcile.WithProvenance(opts.provenance),
		reconcile.WithLogger(zap.L()),
	}
	if opts.strict {
		engineOpts = append(engineOpts, reconcile.WithStrict())
	}
	if opts.logAmbiguous {
		engineOpts = append(engineOpts, reconcile.WithAmbiguityLog())
	}
	if opts.dryRun {
		engineOpts = append(engineOpts, reconcile.WithDryRun())
	}

	result := reconcile.NewEngine(reconcile.BuildIndex(rows), engineOpts...).Run(records)

	out := opts.output
	if out == "" {
		out = opts.jsonPath
	}
	if !opts.dryRun {
		if err := storage.WriteDataset(out, records); err != nil {
			return withExit(ExitDataError, err)
		}
	}
	zap.L().Debug("merge finished",
		zap.Int("matched", result.Matched()),
		zap.Int("canonical", result.CanonicalLoaded),
		zap.Bool("dry_run", opts.dryRun),
	)

	resp := MergeResponse{Report: result.Report()}
	if !opts.dryRun {
		resp.Output = out
	}
	if opts.showMatches {
		resp.Matches = result.Matches
	}

	if a.human {
		printMergeReport(w, resp)
		return nil
	}
	return outputJSON(w, resp)
}

func printMergeReport(w io.Writer, resp MergeResponse) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Fprintf(w, "Loaded %d entries from CSV\n", resp.PatchLoaded)
	fmt.Fprintf(w, "Loaded %d entries from JSON\n", resp.CanonicalLoaded)
	fmt.Fprintf(w, "Matched and updated %s entries (exact %d, suffix %d, contained %d)\n",
		green.Sprint(resp.Matched),
		resp.MatchesByTier[reconcile.TierExact.String()],
		resp.MatchesByTier[reconcile.TierSuffix.String()],
		resp.MatchesByTier[reconcile.TierContained.String()],
	)

	unmatched := fmt.Sprint(resp.Unconsumed)
	if resp.Unconsumed > 0 {
		unmatched = yellow.Sprint(resp.Unconsumed)
	}
	fmt.Fprintf(w, "Unmatched CSV entries: %s\n", unmatched)

	if len(resp.UnconsumedEntries) > 0 {
		fmt.Fprintln(w, "\nCSV entries with no matching DOI in JSON:")
		for _, e := range resp.UnconsumedEntries {
			fmt.Fprintf(w, "  %s (%s) - %s\n", e.Authors, e.Year, e.Key)
		}
	}

	for _, m := range resp.Matches {
		fmt.Fprintf(w, "  [%s] #%d %s <- %s\n", m.Tier, m.RecordIndex, m.DOI, m.Key)
	}

	if resp.DryRun {
		fmt.Fprintf(w, "\n%s no changes written\n", yellow.Sprint("Dry run:"))
		return
	}
	fmt.Fprintf(w, "\nWrote updated JSON to %s\n", resp.Output)
}
