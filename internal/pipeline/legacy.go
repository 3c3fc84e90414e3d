package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Titles are cut to these lengths in progress lines.
const (
	yesTitleLen = 60
	noTitleLen  = 80
)

const (
	yesMarker = "] YES | "
	noMarker  = "] NO  | "
)

// FormatYes renders the progress line for an audit.
func FormatYes(n, total int, title, domain string) string {
	return fmt.Sprintf("[%d/%d] YES | %s [%s]", n, total, truncate(title, yesTitleLen), domain)
}

// FormatNo renders the progress line for a non-audit.
func FormatNo(n, total int, title string) string {
	return fmt.Sprintf("[%d/%d] NO  | %s", n, total, truncate(title, noTitleLen))
}

// ReadProgressLog collects the (truncated) titles named in a progress log.
// A missing file yields an empty set.
func ReadProgressLog(path string) (TitleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TitleSet{}, nil
		}
		return nil, eris.Wrapf(err, "opening progress log %s", path)
	}
	defer f.Close()
	return ParseProgressLog(f)
}

// ParseProgressLog collects titles from YES and NO progress lines. Other
// lines are ignored.
func ParseProgressLog(r io.Reader) (TitleSet, error) {
	titles := TitleSet{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if title, ok := parseProgressLine(scanner.Text()); ok {
			titles.Add(title)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "reading progress log")
	}
	return titles, nil
}

func parseProgressLine(line string) (string, bool) {
	if _, rest, ok := strings.Cut(line, yesMarker); ok {
		rest = strings.TrimSpace(rest)
		// YES lines end with " [Domain]"
		if i := strings.LastIndex(rest, " ["); i >= 0 {
			rest = strings.TrimSpace(rest[:i])
		}
		return rest, true
	}
	if _, rest, ok := strings.Cut(line, noMarker); ok {
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// TitleSet holds titles of studies that were already processed.
type TitleSet map[string]struct{}

// Add inserts a title.
func (s TitleSet) Add(title string) {
	s[title] = struct{}{}
}

// AddAll inserts every title.
func (s TitleSet) AddAll(titles []string) {
	for _, t := range titles {
		s.Add(t)
	}
}

// Done reports whether a study title was processed, either in full or as
// one of the truncated forms written to progress lines.
func (s TitleSet) Done(title string) bool {
	for _, candidate := range []string{title, truncate(title, noTitleLen), truncate(title, yesTitleLen)} {
		if _, ok := s[candidate]; ok {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
