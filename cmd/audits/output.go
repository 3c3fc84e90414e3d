package main

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// Title truncation lengths by context
const (
	SampleTitleMaxLen  = 80 // Used in filter sample output
	InspectTitleMaxLen = 70 // Used in inspect-pdf output
)

// ErrorResponse is the JSON form of a failed command.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// outputJSON writes a value as formatted JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// reportError prints err in the selected format and returns the exit code.
func (a *app) reportError(w io.Writer, err error) int {
	code := exitCode(err)
	if a.human {
		fmt.Fprintf(w, "error: %s\n", err)
	} else {
		_ = outputJSON(w, ErrorResponse{Error: err.Error(), Code: code})
	}
	return code
}

// truncateString shortens s to max runes, marking the cut with "...".
func truncateString(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
