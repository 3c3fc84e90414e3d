package reconcile

// Match pairs a canonical record with the patch entry applied to it.
type Match struct {
	RecordIndex int    `json:"record_index"` // Position in the canonical dataset
	DOI         string `json:"doi"`          // Record identifier as stored
	Key         string `json:"patch_key"`    // Normalized patch identifier
	Tier        Tier   `json:"tier"`
}

// Result is the outcome of one reconciliation run.
type Result struct {
	Matches         []Match
	CanonicalLoaded int
	DryRun          bool

	index    *Index
	consumed ConsumedSet
}

// Matched returns the number of records that were matched.
func (r *Result) Matched() int {
	return len(r.Matches)
}

// Unconsumed returns the patch entries that were never applied, in patch order.
func (r *Result) Unconsumed() []Entry {
	var out []Entry
	for _, entry := range r.index.entries {
		if !r.consumed.Has(entry.Key) {
			out = append(out, entry)
		}
	}
	return out
}

// UnmatchedEntry identifies a patch row for manual follow-up.
type UnmatchedEntry struct {
	Authors string `json:"authors"`
	Year    string `json:"year"`
	Key     string `json:"url"`
}

// Report summarizes a run for display.
type Report struct {
	PatchLoaded       int              `json:"patch_loaded"`
	CanonicalLoaded   int              `json:"canonical_loaded"`
	Matched           int              `json:"matched"`
	Unconsumed        int              `json:"unconsumed"`
	MatchesByTier     map[string]int   `json:"matches_by_tier"`
	UnconsumedEntries []UnmatchedEntry `json:"unconsumed_entries"`
	DryRun            bool             `json:"dry_run"`
}

// Report builds the run summary. It does not modify the result.
func (r *Result) Report() Report {
	byTier := map[string]int{
		TierExact.String():     0,
		TierSuffix.String():    0,
		TierContained.String(): 0,
	}
	for _, m := range r.Matches {
		byTier[m.Tier.String()]++
	}

	unconsumed := r.Unconsumed()
	entries := make([]UnmatchedEntry, 0, len(unconsumed))
	for _, e := range unconsumed {
		entries = append(entries, UnmatchedEntry{
			Authors: e.Row.Authors,
			Year:    e.Row.Year,
			Key:     e.Key,
		})
	}

	return Report{
		PatchLoaded:       r.index.Len(),
		CanonicalLoaded:   r.CanonicalLoaded,
		Matched:           r.Matched(),
		Unconsumed:        len(unconsumed),
		MatchesByTier:     byTier,
		UnconsumedEntries: entries,
		DryRun:            r.DryRun,
	}
}
