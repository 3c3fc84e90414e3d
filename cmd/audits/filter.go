package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/algorithm-audits/audits/internal/audit"
	"github.com/algorithm-audits/audits/internal/heuristic"
	"github.com/algorithm-audits/audits/internal/storage"
)

// filterSampleCount is how many identified audits are echoed back.
const filterSampleCount = 5

type filterOptions struct {
	input  string
	output string
	rules  string
}

// FilterSample is one identified audit shown in the filter output.
type FilterSample struct {
	Confidence heuristic.Confidence `json:"confidence"`
	Row        audit.PatchRow       `json:"row"`
}

// FilterResponse is the JSON output of the filter command.
type FilterResponse struct {
	Read       int            `json:"read"`
	Identified int            `json:"identified"`
	Confidence map[string]int `json:"confidence"`
	Output     string         `json:"output"`
	Samples    []FilterSample `json:"samples"`
}

func newFilterCmd(a *app) *cobra.Command {
	opts := &filterOptions{}
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Screen studies for algorithm audits with keyword rules",
		Long: `Screen studies for algorithm audits with keyword rules.

Every study in the input CSV is graded from its title, abstract and keywords.
Studies judged to be audits are written to the output CSV with heuristic
method, domain, organization and behavior labels for manual review.

Usage:
  audits filter --input sample-1000-studies.csv --output audits-from-sample.csv
  audits filter --input studies.csv --output out.csv --rules my-rules.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("rules") {
				opts.rules = a.cfg.Filter.Rules
			}
			return a.runFilter(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "Studies CSV")
	cmd.Flags().StringVar(&opts.output, "output", "", "Audit CSV to write")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "YAML rule file (default: built-in rules)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) runFilter(w io.Writer, opts *filterOptions) error {
	var rules *heuristic.Rules
	if opts.rules != "" {
		r, err := heuristic.LoadRulesFile(opts.rules)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		rules = r
	}
	classifier := heuristic.New(rules)

	studies, err := storage.ReadStudies(opts.input)
	if err != nil {
		return withExit(ExitDataError, err)
	}

	resp := FilterResponse{
		Read:   len(studies),
		Output: opts.output,
		Confidence: map[string]int{
			string(heuristic.ConfidenceHigh):   0,
			string(heuristic.ConfidenceMedium): 0,
			string(heuristic.ConfidenceLow):    0,
		},
		Samples: []FilterSample{},
	}
	var rows []audit.PatchRow
	for _, s := range studies {
		v := classifier.Classify(s)
		if !v.IsAudit {
			continue
		}
		row := classifier.Row(s)
		rows = append(rows, row)
		resp.Confidence[string(v.Confidence)]++
		if len(resp.Samples) < filterSampleCount {
			resp.Samples = append(resp.Samples, FilterSample{Confidence: v.Confidence, Row: row})
		}
	}
	resp.Identified = len(rows)

	if err := storage.WritePatchRows(opts.output, rows); err != nil {
		return err
	}
	zap.L().Debug("filter finished", zap.Int("read", resp.Read), zap.Int("identified", resp.Identified))

	if a.human {
		printFilterReport(w, resp)
		return nil
	}
	return outputJSON(w, resp)
}

func printFilterReport(w io.Writer, resp FilterResponse) {
	fmt.Fprintf(w, "Read %d studies\n", resp.Read)
	fmt.Fprintf(w, "Identified %d potential audits\n", resp.Identified)
	for _, c := range []heuristic.Confidence{heuristic.ConfidenceHigh, heuristic.ConfidenceMedium, heuristic.ConfidenceLow} {
		fmt.Fprintf(w, "  %s confidence: %d\n", c, resp.Confidence[string(c)])
	}
	fmt.Fprintf(w, "Wrote %d audits to %s\n", resp.Identified, resp.Output)

	if len(resp.Samples) == 0 {
		return
	}
	fmt.Fprintln(w, "\n--- Sample entries ---")
	for _, s := range resp.Samples {
		r := s.Row
		fmt.Fprintf(w, "\n[%s] %s\n", s.Confidence, truncateString(r.Title, SampleTitleMaxLen))
		fmt.Fprintf(w, "  Authors: %s, Year: %s\n", r.Authors, r.Year)
		fmt.Fprintf(w, "  Domain: %s, Method: %s\n", r.Domain, firstLine(r.Method))
		fmt.Fprintf(w, "  Organization: %s\n", firstLine(r.Organization))
		fmt.Fprintf(w, "  Behavior: %s\n", firstLine(r.Behavior))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
