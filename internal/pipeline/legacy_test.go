package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLines(t *testing.T) {
	long := strings.Repeat("a", 100)

	assert.Equal(t, "[3/10] YES | Short title [Search]", FormatYes(3, 10, "Short title", "Search"))
	assert.Equal(t, "[3/10] YES | "+strings.Repeat("a", 60)+" []", FormatYes(3, 10, long, ""))
	assert.Equal(t, "[7/10] NO  | "+strings.Repeat("a", 80), FormatNo(7, 10, long))
}

func TestParseProgressLog(t *testing.T) {
	log := strings.Join([]string{
		"Loaded 10 studies, 0 already processed, 10 remaining.",
		"[1/10] YES | Auditing autocomplete [Search]",
		"[2/10] NO  | A survey of fairness definitions",
		"  [ERROR classifying] timeout",
		"[3/10] YES | Ads [with brackets] in title [Advertising]",
		"  --- Progress: 100/6554 processed, 3 new audits found ---",
		"[4/10] YES | No domain suffix",
	}, "\n")

	titles, err := ParseProgressLog(strings.NewReader(log))
	require.NoError(t, err)

	assert.Len(t, titles, 4)
	assert.True(t, titles.Done("Auditing autocomplete"))
	assert.True(t, titles.Done("A survey of fairness definitions"))
	assert.True(t, titles.Done("Ads [with brackets] in title"))
	assert.True(t, titles.Done("No domain suffix"))
}

func TestTitleSet_DoneMatchesTruncatedForms(t *testing.T) {
	long := strings.Repeat("x", 50) + strings.Repeat("y", 50)
	round := []string{
		FormatYes(1, 2, long, "Search"),
		FormatNo(2, 2, "Another "+long),
	}
	titles, err := ParseProgressLog(strings.NewReader(strings.Join(round, "\n")))
	require.NoError(t, err)

	assert.True(t, titles.Done(long), "60-char prefix from a YES line")
	assert.True(t, titles.Done("Another "+long), "80-char prefix from a NO line")
	assert.False(t, titles.Done("Unrelated"))
}

func TestTitleSet_DoneMultibyte(t *testing.T) {
	title := strings.Repeat("é", 90)
	titles := TitleSet{}
	titles.Add(strings.Repeat("é", 80))
	assert.True(t, titles.Done(title))
}

func TestReadProgressLog_MissingFile(t *testing.T) {
	titles, err := ReadProgressLog(filepath.Join(t.TempDir(), "none.log"))
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestReadProgressLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classify_output.log")
	require.NoError(t, os.WriteFile(path, []byte("[1/1] NO  | Only one\n"), 0644))

	titles, err := ReadProgressLog(path)
	require.NoError(t, err)
	assert.True(t, titles.Done("Only one"))
}
