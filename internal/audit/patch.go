package audit

// PatchRow is one row of a tabular audit list. Its values are authoritative
// when merged into the canonical dataset.
type PatchRow struct {
	Title        string `csv:"Title" json:"title"`
	Authors      string `csv:"Abbreviated Authors" json:"authors"`
	Year         string `csv:"Published Year" json:"year"`
	Publication  string `csv:"Publication" json:"publication"`
	URL          string `csv:"URL" json:"url"` // Join key
	Method       string `csv:"Method" json:"method"`
	Domain       string `csv:"Domain" json:"domain"`
	Organization string `csv:"Organization" json:"organization"`
	Behavior     string `csv:"Behavior" json:"behavior"`
}

// PatchColumns is the column order used when writing audit lists.
var PatchColumns = []string{
	"Title", "Abbreviated Authors", "Published Year", "Publication",
	"URL", "Method", "Domain", "Organization", "Behavior",
}

// Extraction holds the structured fields pulled out of an audit study.
type Extraction struct {
	Method       string `json:"method"`
	Domain       string `json:"domain"`
	Organization string `json:"organization"`
	Behavior     string `json:"behavior"`
}

// NewPatchRow builds an audit-list row from a study and its extracted fields.
func NewPatchRow(s Study, e Extraction) PatchRow {
	return PatchRow{
		Title:        s.Title,
		Authors:      AbbreviateAuthors(s.Authors),
		Year:         s.Year,
		Publication:  s.SourceTitle,
		URL:          s.URL(),
		Method:       e.Method,
		Domain:       e.Domain,
		Organization: e.Organization,
		Behavior:     e.Behavior,
	}
}
