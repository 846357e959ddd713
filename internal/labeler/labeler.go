package labeler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRuleSet is returned when a rule set cannot be compiled.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// compiledSet is a RuleSet with its patterns compiled once at construction.
type compiledSet struct {
	RuleSet
	patterns []*regexp.Regexp
}

// Labeler applies rule sets to a complaint in fixed order and returns
// exactly one category. It is immutable after New and safe to share.
type Labeler struct {
	sets []compiledSet
}

// Match is the outcome of labeling one record. Matched is false when no rule
// set fired, in which case Category is Other and RuleSet/Pattern are empty.
type Match struct {
	Category Category `json:"category"`
	RuleSet  string   `json:"rule_set,omitempty"`
	Field    Field    `json:"field,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
	Matched  bool     `json:"matched"`
}

// New compiles the given rule sets, preserving their order as the
// evaluation order. Patterns are matched case-insensitively and unanchored.
func New(sets []RuleSet) (*Labeler, error) {
	l := &Labeler{sets: make([]compiledSet, 0, len(sets))}
	seen := make(map[string]bool, len(sets))

	for i, rs := range sets {
		if rs.Name == "" {
			return nil, fmt.Errorf("%w: rule set %d has no name", ErrInvalidRuleSet, i)
		}
		if seen[rs.Name] {
			return nil, fmt.Errorf("%w: duplicate rule set %q", ErrInvalidRuleSet, rs.Name)
		}
		seen[rs.Name] = true

		if rs.Field != FieldIssue && rs.Field != FieldNarrative {
			return nil, fmt.Errorf("%w: rule set %q has unknown field %q", ErrInvalidRuleSet, rs.Name, rs.Field)
		}
		if !rs.Category.Valid() || rs.Category == Other {
			// Other is the fallback and must never come from a rule.
			return nil, fmt.Errorf("%w: rule set %q has invalid category %q", ErrInvalidRuleSet, rs.Name, rs.Category)
		}
		if len(rs.Patterns) == 0 {
			return nil, fmt.Errorf("%w: rule set %q has no patterns", ErrInvalidRuleSet, rs.Name)
		}

		cs := compiledSet{
			RuleSet:  rs,
			patterns: make([]*regexp.Regexp, 0, len(rs.Patterns)),
		}
		cs.Patterns = append([]string(nil), rs.Patterns...)
		for _, p := range rs.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("%w: rule set %q pattern %q: %v", ErrInvalidRuleSet, rs.Name, p, err)
			}
			cs.patterns = append(cs.patterns, re)
		}
		l.sets = append(l.sets, cs)
	}

	return l, nil
}

// Default returns a Labeler built from DefaultRuleSets.
func Default() *Labeler {
	l, err := New(DefaultRuleSets())
	if err != nil {
		panic(fmt.Sprintf("default rule sets do not compile: %v", err))
	}
	return l
}

// RuleSets returns a copy of the rule sets in evaluation order.
func (l *Labeler) RuleSets() []RuleSet {
	out := make([]RuleSet, len(l.sets))
	for i, cs := range l.sets {
		out[i] = cs.RuleSet
		out[i].Patterns = append([]string(nil), cs.Patterns...)
	}
	return out
}

// Label returns the category for a complaint. Empty fields are treated as
// empty text. product is accepted but does not influence the result; it is
// only used upstream for row filtering.
func (l *Labeler) Label(narrative, issue, product string) Category {
	return l.Explain(narrative, issue, product).Category
}

// Explain is like Label but also reports which rule set and pattern fired.
//
// Evaluation order:
//  1. Issue rule sets (refund, billing, delivery) against the issue text.
//  2. Narrative rule sets (app, refund, billing, delivery) against the
//     narrative text.
//  3. Default: Other.
//
// Within the configured order the first matching set wins.
func (l *Labeler) Explain(narrative, issue, _ string) Match {
	lowerIssue := strings.ToLower(issue)
	lowerNarrative := strings.ToLower(narrative)

	for _, cs := range l.sets {
		text := lowerNarrative
		if cs.Field == FieldIssue {
			text = lowerIssue
		}
		if p, ok := firstMatch(cs.patterns, text); ok {
			return Match{
				Category: cs.Category,
				RuleSet:  cs.Name,
				Field:    cs.Field,
				Pattern:  cs.Patterns[p],
				Matched:  true,
			}
		}
	}

	return Match{Category: Other}
}

// MatchesAny reports whether at least one pattern is found anywhere in text.
// Text is lowercased first; an empty text simply has nothing to match.
func MatchesAny(patterns []*regexp.Regexp, text string) bool {
	_, ok := firstMatch(patterns, strings.ToLower(text))
	return ok
}

// firstMatch returns the index of the first pattern found in lowerText.
func firstMatch(patterns []*regexp.Regexp, lowerText string) (int, bool) {
	for i, re := range patterns {
		if re.MatchString(lowerText) {
			return i, true
		}
	}
	return 0, false
}
