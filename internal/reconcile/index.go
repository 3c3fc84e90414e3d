// Package reconcile merges a tabular audit list into the canonical JSON
// dataset by matching normalized identifiers.
package reconcile

import (
	"github.com/algorithm-audits/audits/internal/audit"
	"github.com/algorithm-audits/audits/internal/doi"
)

// Entry is a patch row keyed by its normalized identifier.
type Entry struct {
	Key    string         // Normalized identifier
	Suffix string         // Final path segment of Key ("" for bare tokens)
	Row    audit.PatchRow // Row supplying the overwrite values
}

// Index holds the lookup tables built over a patch dataset.
//
// Both tables iterate in patch order. A repeated key or suffix keeps the
// position of its first occurrence and the value of its last.
type Index struct {
	entries []Entry
	byKey   map[string]int

	suffixes []Entry
	bySuffix map[string]int
}

// BuildIndex builds the primary and suffix indices over rows.
func BuildIndex(rows []audit.PatchRow) *Index {
	idx := &Index{
		byKey:    make(map[string]int, len(rows)),
		bySuffix: make(map[string]int, len(rows)),
	}

	for _, row := range rows {
		key := doi.Normalize(row.URL)
		entry := Entry{Key: key, Suffix: doi.Suffix(key), Row: row}
		if i, ok := idx.byKey[key]; ok {
			idx.entries[i] = entry
			continue
		}
		idx.byKey[key] = len(idx.entries)
		idx.entries = append(idx.entries, entry)
	}

	for _, entry := range idx.entries {
		if entry.Suffix == "" {
			continue
		}
		if i, ok := idx.bySuffix[entry.Suffix]; ok {
			idx.suffixes[i] = entry
			continue
		}
		idx.bySuffix[entry.Suffix] = len(idx.suffixes)
		idx.suffixes = append(idx.suffixes, entry)
	}

	return idx
}

// Len returns the number of distinct normalized identifiers.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the primary entries in patch order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Keys returns the normalized identifiers in patch order.
func (idx *Index) Keys() []string {
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.Key
	}
	return out
}

// Lookup finds the entry for a normalized identifier.
func (idx *Index) Lookup(key string) (Entry, bool) {
	i, ok := idx.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[i], true
}

// LookupSuffix finds the entry registered under suffix.
func (idx *Index) LookupSuffix(suffix string) (Entry, bool) {
	i, ok := idx.bySuffix[suffix]
	if !ok {
		return Entry{}, false
	}
	return idx.suffixes[i], true
}

// Suffixes returns the suffix entries in patch order.
func (idx *Index) Suffixes() []Entry {
	out := make([]Entry, len(idx.suffixes))
	copy(out, idx.suffixes)
	return out
}
