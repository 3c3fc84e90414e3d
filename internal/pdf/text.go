package pdf

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// doiPattern matches 10.<registrant>/<suffix>.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// abstractHeading matches an "Abstract" heading at the start of a line.
var abstractHeading = regexp.MustCompile(`(?im)^\s*abstract\b[\s.:\x{2014}-]*`)

// abstractEnd matches headings that usually follow the abstract.
var abstractEnd = regexp.MustCompile(`(?im)^\s*(keywords|index terms|ccs concepts|1\.?\s+introduction|introduction)\b`)

const minTitleLen = 20

// FindDOI returns the first plausible DOI in text, or "".
func FindDOI(text string) string {
	for _, m := range doiPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:)")
		if validDOI(m) {
			return m
		}
	}
	return ""
}

func validDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// TitleFromText returns the first substantial line that is not a running
// header.
func TitleFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > minTitleLen && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// AbstractFromText returns the text under an "Abstract" heading, up to the
// next section heading, cut to max characters. Without a heading it falls
// back to the start of the text.
func AbstractFromText(text string, max int) string {
	body := text
	if loc := abstractHeading.FindStringIndex(text); loc != nil {
		body = text[loc[1]:]
		if end := abstractEnd.FindStringIndex(body); end != nil {
			body = body[:end[0]]
		}
	}
	body = strings.Join(strings.Fields(body), " ")
	if max > 0 && utf8.RuneCountInString(body) > max {
		body = string([]rune(body)[:max])
	}
	return body
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	case strings.HasPrefix(lower, "proceedings of"):
		return true
	case doiPattern.MatchString(line):
		return true
	}
	return false
}
