package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algorithm-audits/audits/internal/audit"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadDataset(t *testing.T) {
	path := writeFile(t, "data.json", `[{"DOI":"https://doi.org/10.1/x","Title":"A","Year":2019},{"Title":"B"}]`)

	records, err := ReadDataset(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://doi.org/10.1/x", records[0].DOI())
	assert.Equal(t, "2019", records[0].Get(audit.FieldYear))
	assert.Equal(t, "", records[1].DOI())
}

func TestReadDataset_Errors(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ReadDataset(writeFile(t, "bad.json", `{"not":"an array"}`))
	assert.Error(t, err)

	_, err = ReadDataset(writeFile(t, "null.json", `[{"Title":"A"}, null]`))
	assert.Error(t, err)
}

func TestEncodeDataset_Format(t *testing.T) {
	records := []*audit.Record{
		audit.NewRecord(audit.FieldTitle, "Ads & <Bias>", audit.FieldAuthors, "Müller"),
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeDataset(&buf, records))

	want := "[\n  {\n    \"Title\": \"Ads & <Bias>\",\n    \"Authors\": \"Müller\"\n  }\n]\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeDataset_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeDataset(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteDataset_RoundTripPreservesUntouchedFields(t *testing.T) {
	input := `[
  {
    "DOI": "https://doi.org/10.1/x",
    "Tags": ["a", "b"],
    "Score": 1.50,
    "Note": null
  }
]
`
	path := writeFile(t, "data.json", input)

	records, err := ReadDataset(path)
	require.NoError(t, err)
	require.NoError(t, WriteDataset(path, records))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[
  {
    "DOI": "https://doi.org/10.1/x",
    "Tags": [
      "a",
      "b"
    ],
    "Score": 1.50,
    "Note": null
  }
]
`, string(got))
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.NoError(t, WriteFileAtomic(path, []byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "out.json"), []byte("x"))
	assert.Error(t, err)
}
