package heuristic

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/algorithm-audits/audits/internal/audit"
)

// Confidence grades a verdict.
type Confidence string

const (
	ConfidenceHigh           Confidence = "high"
	ConfidenceMedium         Confidence = "medium"
	ConfidenceLow            Confidence = "low"
	ConfidenceExcluded       Confidence = "excluded"
	ConfidenceExcludedStrong Confidence = "excluded-strong"
)

// Verdict is the outcome of classifying one study.
type Verdict struct {
	IsAudit    bool       `json:"is_audit"`
	Confidence Confidence `json:"confidence"`
}

// Signals counts the rule hits behind a verdict.
type Signals struct {
	StrongInclusion   int  `json:"strong_inclusion"`
	ModerateInclusion int  `json:"moderate_inclusion"`
	StrongExclusion   int  `json:"strong_exclusion"`
	ModerateExclusion int  `json:"moderate_exclusion"`
	Platform          bool `json:"platform"`
	PlatformAction    bool `json:"platform_action"`
	Empirical         bool `json:"empirical"`
}

// Classifier applies a rule set to studies. It is safe for concurrent use.
type Classifier struct {
	rules *Rules
}

// New returns a classifier over rules, or the built-in rules when nil.
func New(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify grades a study from its title, abstract and keywords.
func (c *Classifier) Classify(s audit.Study) Verdict {
	v, _ := c.Explain(s)
	return v
}

// Explain returns the verdict together with the signal counts.
func (c *Classifier) Explain(s audit.Study) (Verdict, Signals) {
	sig := c.Signals(s.Text())
	return decide(sig), sig
}

// Signals counts rule hits in text.
func (c *Classifier) Signals(text string) Signals {
	text = norm.NFC.String(text)
	r := c.rules
	platform := c.hasPlatform(text)
	return Signals{
		StrongInclusion:   countMatches(text, r.strongInclusion),
		ModerateInclusion: countMatches(text, r.moderateInclusion),
		StrongExclusion:   countMatches(text, r.strongExclusion),
		ModerateExclusion: countMatches(text, r.moderateExclusion),
		Platform:          platform,
		PlatformAction:    platform && countMatches(text, r.platformActions) > 0,
		Empirical:         countMatches(text, r.empiricalSignals) >= 1,
	}
}

func decide(s Signals) Verdict {
	switch {
	case s.StrongExclusion >= 1 && s.StrongInclusion == 0:
		return Verdict{false, ConfidenceExcludedStrong}
	case s.StrongInclusion >= 2:
		return Verdict{true, ConfidenceHigh}
	case s.StrongInclusion >= 1 && (s.Empirical || s.Platform):
		return Verdict{true, ConfidenceHigh}
	case s.StrongInclusion >= 1 && s.ModerateExclusion == 0:
		return Verdict{true, ConfidenceMedium}
	case s.PlatformAction && s.ModerateInclusion >= 2 && s.Empirical:
		return Verdict{true, ConfidenceMedium}
	case s.Platform && s.ModerateInclusion >= 3 && s.Empirical && s.ModerateExclusion == 0:
		return Verdict{true, ConfidenceMedium}
	case s.ModerateInclusion >= 4 && s.Empirical && s.Platform && s.ModerateExclusion == 0 && s.StrongExclusion == 0:
		return Verdict{true, ConfidenceLow}
	default:
		return Verdict{false, ConfidenceExcluded}
	}
}

func (c *Classifier) hasPlatform(text string) bool {
	for _, p := range c.rules.platforms {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// Platforms returns the sorted names of platforms mentioned in text.
func (c *Classifier) Platforms(text string) []string {
	text = norm.NFC.String(text)
	var found []string
	for _, p := range c.rules.platforms {
		if p.re.MatchString(text) {
			found = append(found, p.name)
		}
	}
	sort.Strings(found)
	return found
}

// Method labels the audit method from the abstract.
func (c *Classifier) Method(abstract string) string {
	return c.rules.methods.all(lowerNFC(abstract))
}

// Domain labels the primary domain from the full study text.
func (c *Classifier) Domain(s audit.Study) string {
	return c.rules.domains.first(lowerNFC(s.Text()))
}

// Organization lists the platforms named in the title and abstract.
func (c *Classifier) Organization(s audit.Study) string {
	return strings.Join(c.Platforms(fmt.Sprintf("%s %s", s.Title, s.Abstract)), "\n")
}

// Behavior labels the audited behavior from the abstract.
func (c *Classifier) Behavior(abstract string) string {
	return c.rules.behaviors.all(lowerNFC(abstract))
}

// Extract fills the audit-list fields for a study.
func (c *Classifier) Extract(s audit.Study) audit.Extraction {
	return audit.Extraction{
		Method:       c.Method(s.Abstract),
		Domain:       c.Domain(s),
		Organization: c.Organization(s),
		Behavior:     c.Behavior(s.Abstract),
	}
}

// Row builds an audit-list row for a study. Publication is left blank.
func (c *Classifier) Row(s audit.Study) audit.PatchRow {
	e := c.Extract(s)
	return audit.PatchRow{
		Title:        s.Title,
		Authors:      audit.AbbreviateAuthors(s.Authors),
		Year:         s.Year,
		URL:          s.URL(),
		Method:       e.Method,
		Domain:       e.Domain,
		Organization: e.Organization,
		Behavior:     e.Behavior,
	}
}

func lowerNFC(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

func (l labeler) all(text string) string {
	var out []string
	for _, lbl := range l.labels {
		if lbl.re.MatchString(text) {
			out = append(out, lbl.name)
		}
	}
	if len(out) == 0 {
		return l.fallback
	}
	return strings.Join(out, "\n")
}

func (l labeler) first(text string) string {
	for _, lbl := range l.labels {
		if lbl.re.MatchString(text) {
			return lbl.name
		}
	}
	return l.fallback
}
