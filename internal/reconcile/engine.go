package reconcile

import (
	"go.uber.org/zap"

	"github.com/algorithm-audits/audits/internal/audit"
	"github.com/algorithm-audits/audits/internal/doi"
)

// Engine applies patch entries to canonical records.
//
// Each call to Run starts with an empty consumed set, so runs on the same
// engine do not share state.
type Engine struct {
	idx          *Index
	provenance   string
	minSuffixLen int
	logAmbiguous bool
	dryRun       bool
	logger       *zap.Logger

	matchers []Matcher
	consumed ConsumedSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvenance sets the Source label written on matched records.
func WithProvenance(label string) Option {
	return func(e *Engine) {
		e.provenance = label
	}
}

// WithStrict raises the minimum numeric suffix length for the contained tier.
func WithStrict() Option {
	return func(e *Engine) {
		e.minSuffixLen = doi.StrictMinSuffixLen
	}
}

// WithAmbiguityLog logs contained-tier matches where more than one patch
// suffix qualified. The match outcome is unchanged.
func WithAmbiguityLog() Option {
	return func(e *Engine) {
		e.logAmbiguous = true
	}
}

// WithDryRun computes matches without modifying any record.
func WithDryRun() Option {
	return func(e *Engine) {
		e.dryRun = true
	}
}

// WithLogger sets the logger used for match diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine over the given index.
func NewEngine(idx *Index, opts ...Option) *Engine {
	e := &Engine{
		idx:          idx,
		provenance:   audit.DefaultProvenance,
		minSuffixLen: doi.DefaultMinSuffixLen,
		logger:       zap.L(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.matchers = DefaultMatchers(e.minSuffixLen)
	return e
}

// Run matches each record in order and overwrites matched records in place.
// A patch entry is applied to at most one record.
func (e *Engine) Run(records []*audit.Record) *Result {
	e.consumed = make(ConsumedSet)
	result := &Result{
		CanonicalLoaded: len(records),
		DryRun:          e.dryRun,
		index:           e.idx,
		consumed:        e.consumed,
	}

	for i, rec := range records {
		id := doi.Normalize(rec.DOI())
		if id == "" {
			continue
		}

		entry, tier, ok := e.match(id)
		if !ok {
			continue
		}

		if !e.dryRun {
			rec.ApplyPatch(entry.Row, e.provenance)
		}
		e.consumed.Add(entry.Key)
		result.Matches = append(result.Matches, Match{
			RecordIndex: i,
			DOI:         rec.DOI(),
			Key:         entry.Key,
			Tier:        tier,
		})

		e.logger.Debug("matched record",
			zap.Int("record", i),
			zap.String("doi", id),
			zap.String("patch_key", entry.Key),
			zap.Stringer("tier", tier),
		)

		if tier == TierContained && e.logAmbiguous {
			e.reportAmbiguity(id, entry)
		}
	}

	return result
}

// Consumed reports whether key was applied during the last run.
func (e *Engine) Consumed(key string) bool {
	return e.consumed.Has(key)
}

// match tries each matcher in order; the first hit wins.
func (e *Engine) match(id string) (Entry, Tier, bool) {
	for _, m := range e.matchers {
		if entry, ok := m.Match(id, e.idx, e.consumed); ok {
			return entry, m.Tier, true
		}
	}
	return Entry{}, 0, false
}

func (e *Engine) reportAmbiguity(id string, chosen Entry) {
	for _, c := range containedCandidates(id, e.idx, e.minSuffixLen) {
		if c.Key == chosen.Key {
			continue
		}
		e.logger.Warn("ambiguous numeric suffix",
			zap.String("doi", id),
			zap.String("chosen", chosen.Key),
			zap.String("also_matched", c.Key),
			zap.String("suffix", c.Suffix),
			zap.Bool("already_consumed", e.consumed.Has(c.Key)),
		)
	}
}
