package audit

import (
	"fmt"
	"strings"
)

// Study is a candidate paper from a bibliographic export (Scopus-style CSV).
type Study struct {
	Title          string `csv:"Title" json:"title"`
	Abstract       string `csv:"Abstract" json:"abstract"`
	AuthorKeywords string `csv:"Author Keywords" json:"author_keywords"`
	IndexKeywords  string `csv:"Index Keywords" json:"index_keywords,omitempty"`
	Authors        string `csv:"Authors" json:"authors"`
	Year           string `csv:"Year" json:"year"`
	SourceTitle    string `csv:"Source title" json:"source_title,omitempty"`
	Link           string `csv:"Link" json:"link,omitempty"`
	DOI            string `csv:"DOI" json:"doi,omitempty"`
}

// Keywords returns author and index keywords joined by a space.
func (s Study) Keywords() string {
	return s.AuthorKeywords + " " + s.IndexKeywords
}

// Text returns title, abstract and keywords as one string for pattern matching.
func (s Study) Text() string {
	return fmt.Sprintf("%s %s %s", s.Title, s.Abstract, s.Keywords())
}

// URL returns the study's link, falling back to a doi.org URL.
func (s Study) URL() string {
	return MakeURL(s.Link, s.DOI)
}

// MakeURL prefers an explicit link and otherwise builds a doi.org URL.
func MakeURL(link, doi string) string {
	if l := strings.TrimSpace(link); l != "" {
		return l
	}
	if d := strings.TrimSpace(doi); d != "" {
		return "https://doi.org/" + d
	}
	return ""
}
