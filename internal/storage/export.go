package storage

import (
	"bytes"
	"io"

	"github.com/rotisserie/eris"
)

// ReviewRow is one row of a published review table. Field order is the
// order written by the export.
type ReviewRow struct {
	Reference           string `csv:"Reference" json:"Reference"`
	Year                string `csv:"Year" json:"Year"`
	Organization        string `csv:"Organization" json:"Organization"`
	Behavior            string `csv:"Behavior" json:"Behavior"`
	SpecificBehavior    string `csv:"Specific Behavior" json:"Specific Behavior"`
	Method              string `csv:"Method" json:"Method"`
	Domain              string `csv:"Domain" json:"Domain"`
	Language            string `csv:"Language" json:"Language"`
	CountryStudied      string `csv:"Country Studied" json:"Country Studied"`
	CountryOfResearcher string `csv:"Country of Researchers" json:"Country of Researchers"`
	DOI                 string `csv:"DOI" json:"DOI"`
	Title               string `csv:"Title" json:"Title"`
	Authors             string `csv:"Authors" json:"Authors"`
	Source              string `csv:"Source" json:"Source"`
}

// jsPrefix starts the script consumed by the audit explorer page.
const jsPrefix = "const DATA = "

// ReadReviewTable reads a review table CSV. Missing columns read as "".
func ReadReviewTable(path string) ([]ReviewRow, error) {
	return readCSVFile[ReviewRow](path)
}

// EncodeReviewJS writes rows as a JavaScript assignment to DATA.
func EncodeReviewJS(w io.Writer, rows []ReviewRow) error {
	var buf bytes.Buffer
	if err := EncodeReviewJSON(&buf, rows); err != nil {
		return err
	}
	body := bytes.TrimRight(buf.Bytes(), "\n")

	if _, err := io.WriteString(w, jsPrefix); err != nil {
		return eris.Wrap(err, "writing js")
	}
	if _, err := w.Write(body); err != nil {
		return eris.Wrap(err, "writing js")
	}
	if _, err := io.WriteString(w, ";\n"); err != nil {
		return eris.Wrap(err, "writing js")
	}
	return nil
}

// EncodeReviewJSON writes rows as an indented JSON array.
func EncodeReviewJSON(w io.Writer, rows []ReviewRow) error {
	if rows == nil {
		rows = []ReviewRow{}
	}
	return encodeIndented(w, rows)
}

// WriteReviewExport writes rows to path, as JavaScript unless asJSON is set.
func WriteReviewExport(path string, rows []ReviewRow, asJSON bool) error {
	var buf bytes.Buffer
	encode := EncodeReviewJS
	if asJSON {
		encode = EncodeReviewJSON
	}
	if err := encode(&buf, rows); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}
