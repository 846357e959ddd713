package labeler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk layout of a rule set override file:
//
//	rule_sets:
//	  - name: issue_refund
//	    field: issue
//	    category: refund_request
//	    patterns: ['\brefund', 'chargeback']
//
// Order in the file is the evaluation order.
type ruleFile struct {
	RuleSets []RuleSet `yaml:"rule_sets"`
}

// ParseRuleSets decodes a YAML rule set document.
func ParseRuleSets(data []byte) ([]RuleSet, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}
	if len(rf.RuleSets) == 0 {
		return nil, fmt.Errorf("%w: no rule_sets defined", ErrInvalidRuleSet)
	}
	return rf.RuleSets, nil
}

// LoadRuleSets reads and decodes a YAML rule set file.
func LoadRuleSets(path string) ([]RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRuleSets(data)
}

// MarshalRuleSets encodes rule sets in the same layout ParseRuleSets reads.
func MarshalRuleSets(sets []RuleSet) ([]byte, error) {
	return yaml.Marshal(ruleFile{RuleSets: sets})
}

// FromFile builds a Labeler from a rule file, or from DefaultRuleSets when
// path is empty.
func FromFile(path string) (*Labeler, error) {
	if path == "" {
		return New(DefaultRuleSets())
	}
	sets, err := LoadRuleSets(path)
	if err != nil {
		return nil, err
	}
	return New(sets)
}
