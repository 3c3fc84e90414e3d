// Package doi canonicalizes DOI and URL identifiers so records from
// different sources can be joined on them.
package doi

import (
	"net/url"
	"strings"
)

const (
	mirrorHost    = "dx.doi.org"
	canonicalHost = "doi.org"

	insecureScheme = "http://"
	secureScheme   = "https://"
)

// DefaultMinSuffixLen is the shortest numeric suffix used for
// substring matching.
const DefaultMinSuffixLen = 4

// StrictMinSuffixLen is the numeric suffix length required in strict mode.
const StrictMinSuffixLen = 6

// Normalize returns the comparable form of a raw DOI or URL.
//
// The steps run in a fixed order: trim, lowercase, percent-decode, rewrite
// dx.doi.org to doi.org, rewrite http:// to https://, strip trailing
// slashes. Empty input yields "".
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = unescape(s)
	s = strings.ReplaceAll(s, mirrorHost, canonicalHost)
	s = strings.ReplaceAll(s, insecureScheme, secureScheme)
	return strings.TrimRight(s, "/")
}

// Suffix returns the final path segment of a normalized identifier,
// or "" for a bare token with no separator.
func Suffix(normalized string) string {
	s := strings.TrimRight(normalized, "/")
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	return s[i+1:]
}

// IsNumericKey reports whether suffix consists only of ASCII digits and is at
// least minLen characters long.
func IsNumericKey(suffix string, minLen int) bool {
	if len(suffix) < minLen || suffix == "" {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if suffix[i] < '0' || suffix[i] > '9' {
			return false
		}
	}
	return true
}

// unescape percent-decodes s. Malformed escapes are left as they are, so the
// function never fails.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if out, err := url.PathUnescape(s); err == nil {
		return out
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
