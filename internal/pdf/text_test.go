package pdf

import (
	"strings"
	"testing"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "See DOI: 10.1145/3442188.3445922 for details", "10.1145/3442188.3445922"},
		{"trailing punctuation", "doi.org/10.1609/icwsm.v14i1.7286).", "10.1609/icwsm.v14i1.7286"},
		{"first wins", "10.1000/first and 10.1000/second", "10.1000/first"},
		{"none", "no identifier here", ""},
		{"registrant too short", "10.12/abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindDOI(tt.text); got != tt.want {
				t.Errorf("FindDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTitleFromText(t *testing.T) {
	text := strings.Join([]string{
		"Short",
		"Proceedings of the ACM on Human-Computer Interaction",
		"Journal of Online Trust and Safety, Volume 2",
		"https://doi.org/10.1145/3449148",
		"Auditing Partisan Audience Bias within Google Search",
		"Ronald E. Robertson",
	}, "\n")
	want := "Auditing Partisan Audience Bias within Google Search"
	if got := TitleFromText(text); got != want {
		t.Errorf("TitleFromText() = %q, want %q", got, want)
	}
	if got := TitleFromText("tiny\nlines\nonly"); got != "" {
		t.Errorf("TitleFromText(short lines) = %q, want empty", got)
	}
}

func TestAbstractFromText(t *testing.T) {
	text := "A Title Line\nAuthors\nABSTRACT\nWe audit  the\nrecommendation system.\nKeywords: audit\n1 INTRODUCTION\nBody"
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"heading to keywords", text, 0, "We audit the recommendation system."},
		{"cut to max", text, 8, "We audit"},
		{"no heading", "No heading\n at all", 0, "No heading at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbstractFromText(tt.text, tt.max); got != tt.want {
				t.Errorf("AbstractFromText(max=%d) = %q, want %q", tt.max, got, tt.want)
			}
		})
	}
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Copyright 2021 held by the owner", true},
		{"Volume 5, Issue CSCW1", true},
		{"This article was published online", true},
		{"Measuring Personalization of Web Search", false},
	}

	for _, tt := range tests {
		if got := isHeaderLine(tt.line); got != tt.want {
			t.Errorf("isHeaderLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
