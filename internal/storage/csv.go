package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/algorithm-audits/audits/internal/audit"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadPatchRows reads an audit list CSV such as audits-from-paper.csv.
// The URL column is required.
func ReadPatchRows(path string) ([]audit.PatchRow, error) {
	return readCSVFile[audit.PatchRow](path, "URL")
}

// ReadStudies reads a bibliographic export CSV. The Title column is required.
func ReadStudies(path string) ([]audit.Study, error) {
	return readCSVFile[audit.Study](path, "Title")
}

func readCSVFile[T any](path string, required ...string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	rows, err := decodeCSV[T](f, required...)
	if err != nil {
		return nil, eris.Wrapf(err, "reading %s", path)
	}
	return rows, nil
}

// decodeCSV binds each record to T by header name. Columns T does not
// declare are ignored and other columns missing from the file decode as "".
// Every required column must be present in the header.
func decodeCSV[T any](r io.Reader, required ...string) ([]T, error) {
	dec, err := csvutil.NewDecoder(newCSVReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil // empty file
		}
		return nil, eris.Wrap(err, "reading header")
	}
	header := dec.Header()
	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, eris.Errorf("missing required column %q", col)
		}
	}

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "decoding row %d", len(rows)+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// newCSVReader skips a leading UTF-8 byte order mark.
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	return cr
}

func newCSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

// WritePatchRows replaces the file at path with a header and rows.
func WritePatchRows(path string, rows []audit.PatchRow) error {
	var buf bytes.Buffer
	cw := newCSVWriter(&buf)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(audit.PatchRow{}); err != nil {
		return eris.Wrap(err, "encoding header")
	}
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrapf(err, "encoding row %d", i+1)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "flushing csv")
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// AuditWriter appends audit-list rows to a CSV file. It is safe for
// concurrent use. The header is written only when the file is new or empty.
type AuditWriter struct {
	mu    sync.Mutex
	f     *os.File
	cw    *csv.Writer
	enc   *csvutil.Encoder
	count int
}

// OpenAuditWriter opens path for appending, creating it if needed.
func OpenAuditWriter(path string) (*AuditWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s for append", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, eris.Wrapf(err, "stat %s", path)
	}

	cw := newCSVWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	w := &AuditWriter{f: f, cw: cw, enc: enc}

	if info.Size() == 0 {
		if err := enc.EncodeHeader(audit.PatchRow{}); err != nil {
			f.Close()
			return nil, eris.Wrap(err, "encoding header")
		}
		if err := w.flush(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append writes one row and flushes it to disk.
func (w *AuditWriter) Append(row audit.PatchRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(row); err != nil {
		return eris.Wrap(err, "encoding row")
	}
	if err := w.flush(); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of rows appended through this writer.
func (w *AuditWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the underlying file.
func (w *AuditWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func (w *AuditWriter) flush() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return eris.Wrap(err, "flushing csv")
	}
	return nil
}
