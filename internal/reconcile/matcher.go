package reconcile

import (
	"strings"

	"github.com/algorithm-audits/audits/internal/doi"
)

// Tier identifies the matcher that paired a record with a patch entry.
type Tier int

const (
	TierExact     Tier = iota + 1 // Same normalized identifier
	TierSuffix                    // Same trailing path segment
	TierContained                 // Numeric patch suffix found inside the identifier
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSuffix:
		return "suffix"
	case TierContained:
		return "contained"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ConsumedSet records patch keys that have already been applied.
type ConsumedSet map[string]struct{}

// Has reports whether key has been consumed.
func (c ConsumedSet) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Add marks key as consumed.
func (c ConsumedSet) Add(key string) {
	c[key] = struct{}{}
}

// MatchFunc looks for an unconsumed patch entry for a normalized identifier.
// It must not modify idx or consumed.
type MatchFunc func(id string, idx *Index, consumed ConsumedSet) (Entry, bool)

// Matcher is one step of the matching ladder.
type Matcher struct {
	Tier  Tier
	Match MatchFunc
}

// DefaultMatchers returns the matchers in the order they are tried.
func DefaultMatchers(minSuffixLen int) []Matcher {
	return []Matcher{
		{Tier: TierExact, Match: MatchExact},
		{Tier: TierSuffix, Match: MatchSuffix},
		{Tier: TierContained, Match: ContainedSuffixMatcher(minSuffixLen)},
	}
}

// MatchExact matches on the full normalized identifier.
func MatchExact(id string, idx *Index, consumed ConsumedSet) (Entry, bool) {
	if id == "" {
		return Entry{}, false
	}
	entry, ok := idx.Lookup(id)
	if !ok || consumed.Has(entry.Key) {
		return Entry{}, false
	}
	return entry, true
}

// MatchSuffix matches when the identifier's final path segment equals a
// patch entry's suffix.
func MatchSuffix(id string, idx *Index, consumed ConsumedSet) (Entry, bool) {
	suffix := doi.Suffix(id)
	if suffix == "" {
		return Entry{}, false
	}
	entry, ok := idx.LookupSuffix(suffix)
	if !ok || consumed.Has(entry.Key) {
		return Entry{}, false
	}
	return entry, true
}

// ContainedSuffixMatcher returns a matcher that scans the suffix entries in
// patch order for one sharing a numeric ID with the identifier: the entry's
// all-digit suffix of at least minLen characters occurs inside the
// identifier, or the entry's suffix ends with the identifier's own all-digit
// suffix. The first unconsumed one wins.
//
// Unrelated identifiers can share a numeric suffix; this tier accepts that
// for recall.
func ContainedSuffixMatcher(minLen int) MatchFunc {
	return func(id string, idx *Index, consumed ConsumedSet) (Entry, bool) {
		if id == "" {
			return Entry{}, false
		}
		own := doi.Suffix(id)
		for _, entry := range idx.suffixes {
			if !sharesNumericID(id, own, entry, minLen) {
				continue
			}
			if consumed.Has(entry.Key) {
				continue
			}
			return entry, true
		}
		return Entry{}, false
	}
}

// containedCandidates lists every suffix entry that would qualify for the
// contained tier, consumed or not.
func containedCandidates(id string, idx *Index, minLen int) []Entry {
	var out []Entry
	own := doi.Suffix(id)
	for _, entry := range idx.suffixes {
		if sharesNumericID(id, own, entry, minLen) {
			out = append(out, entry)
		}
	}
	return out
}

// sharesNumericID checks both directions; own is the suffix of id. In the
// reverse direction the entry's suffix must end with own, preceded by a
// non-digit, so that x.v11i1.14898 carries 14898 but conf.2019.abc does not
// carry 2019.
func sharesNumericID(id, own string, entry Entry, minLen int) bool {
	if doi.IsNumericKey(entry.Suffix, minLen) && strings.Contains(id, entry.Suffix) {
		return true
	}
	return doi.IsNumericKey(own, minLen) && endsWithID(entry.Suffix, own)
}

// endsWithID reports whether suffix ends with the numeric ID n and the
// character before it, if any, is not a digit.
func endsWithID(suffix, n string) bool {
	rest, ok := strings.CutSuffix(suffix, n)
	if !ok {
		return false
	}
	return rest == "" || !isDigit(rest[len(rest)-1])
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
