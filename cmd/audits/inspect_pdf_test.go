package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algorithm-audits/audits/internal/audit"
	"github.com/algorithm-audits/audits/internal/heuristic"
)

func TestInspectStudy(t *testing.T) {
	s := audit.Study{
		Title:    "Auditing YouTube recommendations",
		Abstract: "We created sock puppet accounts and followed the suggested videos.",
		DOI:      "10.1145/1234567",
	}
	resp := inspectStudy(heuristic.New(nil), s)

	assert.True(t, resp.Verdict.IsAudit)
	assert.Equal(t, heuristic.ConfidenceHigh, resp.Verdict.Confidence)
	assert.Equal(t, "https://doi.org/10.1145/1234567", resp.URL)
	assert.Equal(t, "YouTube", resp.Fields.Organization)
	assert.GreaterOrEqual(t, resp.Signals.StrongInclusion, 1)
}

func TestPrintInspectReport(t *testing.T) {
	var buf bytes.Buffer
	printInspectReport(&buf, InspectResponse{
		Path:    "paper.pdf",
		Pages:   12,
		DOI:     "10.1145/1234567",
		Title:   "Auditing YouTube recommendations",
		Verdict: heuristic.Verdict{IsAudit: true, Confidence: heuristic.ConfidenceHigh},
		Fields:  audit.Extraction{Method: "Sock puppet audit\nDirect scrape", Domain: "Search", Organization: "YouTube"},
	})

	out := buf.String()
	assert.Contains(t, out, "paper.pdf (12 pages)")
	assert.Contains(t, out, "Verdict: audit (high)")
	assert.Contains(t, out, "Domain: Search, Method: Sock puppet audit\n")
}

func TestInspectPDF_NotAPDF(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "paper.pdf", "plain text, not a pdf")

	_, err := runCLI(t, "inspect-pdf", path)
	require.Error(t, err)
	assert.Equal(t, ExitDataError, exitCode(err))

	_, err = runCLI(t, "inspect-pdf", filepath.Join(dir, "missing.pdf"))
	assert.Equal(t, ExitDataError, exitCode(err))
}
