// Package storage handles data persistence in JSON and CSV formats.
package storage

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/algorithm-audits/audits/internal/audit"
)

// ReadDataset reads the canonical dataset, a JSON array of objects.
func ReadDataset(path string) ([]*audit.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading dataset %s", path)
	}

	var records []*audit.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "parsing dataset %s", path)
	}
	for i, rec := range records {
		if rec == nil {
			return nil, eris.Errorf("parsing dataset %s: entry %d is null", path, i)
		}
	}
	return records, nil
}

// WriteDataset replaces the dataset at path with records. The file is
// written to a temporary sibling first and renamed into place.
func WriteDataset(path string, records []*audit.Record) error {
	var buf bytes.Buffer
	if err := EncodeDataset(&buf, records); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// EncodeDataset writes records as an indented JSON array followed by a
// newline. Non-ASCII text and HTML characters are written as-is.
func EncodeDataset(w io.Writer, records []*audit.Record) error {
	if records == nil {
		records = []*audit.Record{}
	}
	return encodeIndented(w, records)
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encoding json")
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "creating temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "writing temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return eris.Wrap(err, "setting file mode")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return eris.Wrapf(err, "replacing %s", path)
	}
	return nil
}
