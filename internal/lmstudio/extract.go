package lmstudio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/algorithm-audits/audits/internal/audit"
)

// FlexibleString unmarshals from a string, number, boolean, null, or an
// array of those. Array elements are joined with newlines.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexibleString(fmt.Sprint(b))
		return nil
	}

	var items []FlexibleString
	if err := json.Unmarshal(data, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item != "" {
				parts = append(parts, string(item))
			}
		}
		*f = FlexibleString(strings.Join(parts, "\n"))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

type extractionPayload struct {
	Method       FlexibleString `json:"method"`
	Domain       FlexibleString `json:"domain"`
	Organization FlexibleString `json:"organization"`
	Behavior     FlexibleString `json:"behavior"`
}

// ParseExtraction decodes the JSON object between the first '{' and the
// last '}' of a model reply. Missing keys decode as "".
func ParseExtraction(reply string) (audit.Extraction, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return audit.Extraction{}, fmt.Errorf("%w: %q", ErrNoJSON, truncateRunes(reply, 80))
	}

	var p extractionPayload
	if err := json.Unmarshal([]byte(reply[start:end+1]), &p); err != nil {
		return audit.Extraction{}, fmt.Errorf("parsing extraction: %w", err)
	}
	return audit.Extraction{
		Method:       p.Method.String(),
		Domain:       p.Domain.String(),
		Organization: p.Organization.String(),
		Behavior:     p.Behavior.String(),
	}, nil
}
