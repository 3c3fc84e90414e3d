package audit

import "strings"

// AbbreviateAuthors turns a semicolon-separated "Last, First" author list
// into a short display form: "Smith", "Smith and Jones" or "Smith et al.".
func AbbreviateAuthors(authors string) string {
	var last []string
	for _, a := range strings.Split(authors, ";") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		name, _, _ := strings.Cut(a, ",")
		if name = strings.TrimSpace(name); name != "" {
			last = append(last, name)
		}
	}

	switch len(last) {
	case 0:
		return ""
	case 1:
		return last[0]
	case 2:
		return last[0] + " and " + last[1]
	default:
		return last[0] + " et al."
	}
}
