// Package heuristic flags likely algorithm audits with keyword rules and
// fills in the audit-list fields without calling a model.
package heuristic

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// RuleFile is the YAML layout of a rule set.
type RuleFile struct {
	Platforms         []NamedPattern `yaml:"platforms"`
	StrongInclusion   []string       `yaml:"strong_inclusion"`
	ModerateInclusion []string       `yaml:"moderate_inclusion"`
	PlatformActions   []string       `yaml:"platform_actions"`
	StrongExclusion   []string       `yaml:"strong_exclusion"`
	ModerateExclusion []string       `yaml:"moderate_exclusion"`
	EmpiricalSignals  []string       `yaml:"empirical_signals"`
	Methods           LabelSet       `yaml:"methods"`
	Domains           LabelSet       `yaml:"domains"`
	Behaviors         LabelSet       `yaml:"behaviors"`
}

// NamedPattern pairs a label with a regular expression.
type NamedPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// LabelSet assigns labels to text, falling back to Default.
type LabelSet struct {
	Default string         `yaml:"default"`
	Labels  []NamedPattern `yaml:"labels"`
}

// Rules is a compiled rule set.
type Rules struct {
	platforms         []namedRegexp
	strongInclusion   []*regexp.Regexp
	moderateInclusion []*regexp.Regexp
	platformActions   []*regexp.Regexp
	strongExclusion   []*regexp.Regexp
	moderateExclusion []*regexp.Regexp
	empiricalSignals  []*regexp.Regexp
	methods           labeler
	domains           labeler
	behaviors         labeler
}

type namedRegexp struct {
	name string
	re   *regexp.Regexp
}

type labeler struct {
	fallback string
	labels   []namedRegexp
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("built-in heuristic rules: %v", err))
	}
	return r
}

// LoadRulesFile reads a rule set from a YAML file.
func LoadRulesFile(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// LoadRules reads a rule set from YAML.
func LoadRules(r io.Reader) (*Rules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules compiles a YAML rule set.
func ParseRules(data []byte) (*Rules, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return file.Compile()
}

// Compile turns the rule file into matchers. Every pattern must compile.
func (f RuleFile) Compile() (*Rules, error) {
	var (
		r   Rules
		err error
	)
	if r.platforms, err = compileNamed(f.Platforms); err != nil {
		return nil, fmt.Errorf("platforms: %w", err)
	}

	lists := []struct {
		name     string
		patterns []string
		dst      *[]*regexp.Regexp
	}{
		{"strong_inclusion", f.StrongInclusion, &r.strongInclusion},
		{"moderate_inclusion", f.ModerateInclusion, &r.moderateInclusion},
		{"platform_actions", f.PlatformActions, &r.platformActions},
		{"strong_exclusion", f.StrongExclusion, &r.strongExclusion},
		{"moderate_exclusion", f.ModerateExclusion, &r.moderateExclusion},
		{"empirical_signals", f.EmpiricalSignals, &r.empiricalSignals},
	}
	for _, l := range lists {
		if *l.dst, err = compileAll(l.patterns); err != nil {
			return nil, fmt.Errorf("%s: %w", l.name, err)
		}
	}

	sets := []struct {
		name string
		set  LabelSet
		dst  *labeler
	}{
		{"methods", f.Methods, &r.methods},
		{"domains", f.Domains, &r.domains},
		{"behaviors", f.Behaviors, &r.behaviors},
	}
	for _, s := range sets {
		labels, err := compileNamed(s.set.Labels)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		*s.dst = labeler{fallback: s.set.Default, labels: labels}
	}

	return &r, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// compileNamed keeps patterns case-sensitive.
func compileNamed(patterns []NamedPattern) ([]namedRegexp, error) {
	out := make([]namedRegexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		out = append(out, namedRegexp{name: p.Name, re: re})
	}
	return out, nil
}

// countMatches returns how many patterns match text.
func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}
