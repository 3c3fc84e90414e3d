// Package pdf pulls identifiers and text out of study PDFs.
package pdf

import (
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/algorithm-audits/audits/internal/audit"
)

// doiSearchPages is how many leading pages are scanned for a DOI.
const doiSearchPages = 3

// Document is an open PDF.
type Document struct {
	f *os.File
	r *pdf.Reader
}

// Open opens the PDF at path. Close it when done.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "opening pdf %s", path)
	}
	return &Document{f: f, r: r}, nil
}

// NewDocument reads a PDF from r.
func NewDocument(r io.ReaderAt, size int64) (*Document, error) {
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, eris.Wrap(err, "reading pdf")
	}
	return &Document{r: pr}, nil
}

// Close releases the underlying file, if any.
func (d *Document) Close() error {
	if d.f == nil {
		return nil
	}
	return d.f.Close()
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// PageText returns the plain text of page i (1-based). Unreadable pages
// report false.
func (d *Document) PageText(i int) (string, bool) {
	if i < 1 || i > d.r.NumPage() {
		return "", false
	}
	page := d.r.Page(i)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

// Text joins the text of the first maxPages pages. Zero or less means all.
func (d *Document) Text(maxPages int) string {
	n := d.r.NumPage()
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if text, ok := d.PageText(i); ok {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// DOI returns the first DOI found on the leading pages, or "".
func (d *Document) DOI() string {
	for i := 1; i <= doiSearchPages && i <= d.r.NumPage(); i++ {
		text, ok := d.PageText(i)
		if !ok {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			return doi
		}
	}
	return ""
}

// Title guesses the title from the first page.
func (d *Document) Title() string {
	text, ok := d.PageText(1)
	if !ok {
		return ""
	}
	return TitleFromText(text)
}

// Study builds a study record from the first maxPages pages, suitable for
// the keyword classifier.
func (d *Document) Study(maxPages, abstractMax int) audit.Study {
	text := d.Text(maxPages)
	return audit.Study{
		Title:    TitleFromText(text),
		Abstract: AbstractFromText(text, abstractMax),
		DOI:      d.DOI(),
	}
}
