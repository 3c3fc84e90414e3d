package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/algorithm-audits/audits/internal/audit"
	"github.com/algorithm-audits/audits/internal/heuristic"
	"github.com/algorithm-audits/audits/internal/pdf"
)

type inspectOptions struct {
	pages int
	rules string
}

// InspectResponse is the JSON output of the inspect-pdf command.
type InspectResponse struct {
	Path     string            `json:"path"`
	Pages    int               `json:"pages"`
	DOI      string            `json:"doi,omitempty"`
	Title    string            `json:"title,omitempty"`
	Verdict  heuristic.Verdict `json:"verdict"`
	Signals  heuristic.Signals `json:"signals"`
	Fields   audit.Extraction  `json:"fields"`
	URL      string            `json:"url,omitempty"`
	Abstract string            `json:"abstract,omitempty"`
}

func newInspectPDFCmd(a *app) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect-pdf <file.pdf>",
		Short: "Extract identifiers from a study PDF and grade it with keyword rules",
		Long: `Extract identifiers from a study PDF and grade it with keyword rules.

Reads the DOI, a best-effort title and the abstract from the first pages,
then runs the keyword classifier and prints the verdict with the derived
method, domain, organization and behavior.

Usage:
  audits inspect-pdf paper.pdf
  audits inspect-pdf paper.pdf --pages 2 --human`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("rules") {
				opts.rules = a.cfg.Filter.Rules
			}
			return a.runInspectPDF(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.pages, "pages", 3, "Number of leading pages to read")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "YAML rule file (default: built-in rules)")
	return cmd
}

func (a *app) runInspectPDF(w io.Writer, path string, opts *inspectOptions) error {
	var rules *heuristic.Rules
	if opts.rules != "" {
		r, err := heuristic.LoadRulesFile(opts.rules)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		rules = r
	}

	doc, err := pdf.Open(path)
	if err != nil {
		return withExit(ExitDataError, err)
	}
	defer doc.Close()

	study := doc.Study(opts.pages, a.cfg.Classify.AbstractMaxChars)
	resp := inspectStudy(heuristic.New(rules), study)
	resp.Path = path
	resp.Pages = doc.NumPages()

	if a.human {
		printInspectReport(w, resp)
		return nil
	}
	return outputJSON(w, resp)
}

// inspectStudy grades a study extracted from a PDF.
func inspectStudy(c *heuristic.Classifier, s audit.Study) InspectResponse {
	verdict, signals := c.Explain(s)
	return InspectResponse{
		DOI:      s.DOI,
		Title:    s.Title,
		Verdict:  verdict,
		Signals:  signals,
		Fields:   c.Extract(s),
		URL:      s.URL(),
		Abstract: s.Abstract,
	}
}

func printInspectReport(w io.Writer, resp InspectResponse) {
	fmt.Fprintf(w, "%s (%d pages)\n", resp.Path, resp.Pages)
	fmt.Fprintf(w, "  Title: %s\n", truncateString(resp.Title, InspectTitleMaxLen))
	fmt.Fprintf(w, "  DOI:   %s\n", resp.DOI)
	verdict := "not an audit"
	if resp.Verdict.IsAudit {
		verdict = "audit"
	}
	fmt.Fprintf(w, "  Verdict: %s (%s)\n", verdict, resp.Verdict.Confidence)
	fmt.Fprintf(w, "  Domain: %s, Method: %s\n", resp.Fields.Domain, firstLine(resp.Fields.Method))
	fmt.Fprintf(w, "  Organization: %s\n", firstLine(resp.Fields.Organization))
	fmt.Fprintf(w, "  Behavior: %s\n", firstLine(resp.Fields.Behavior))
}
