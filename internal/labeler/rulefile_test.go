package labeler

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseRuleSets(t *testing.T) {
	doc := []byte(`
rule_sets:
  - name: narrative_app
    field: narrative
    category: app_bug
    patterns:
      - '\bapp\b'
      - 'login'
  - name: issue_billing
    field: issue
    category: billing_problem
    patterns: ['fee']
`)
	sets, err := ParseRuleSets(doc)
	if err != nil {
		t.Fatalf("ParseRuleSets: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}
	if sets[0].Name != "narrative_app" || sets[0].Field != FieldNarrative || sets[0].Category != AppBug {
		t.Errorf("sets[0] = %+v", sets[0])
	}
	if !reflect.DeepEqual(sets[0].Patterns, []string{`\bapp\b`, "login"}) {
		t.Errorf("sets[0].Patterns = %v", sets[0].Patterns)
	}

	// File order is evaluation order: narrative app now beats issue billing.
	l, err := New(sets)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := l.Label("login broken", "late fee", ""); got != AppBug {
		t.Errorf("Label = %q, want %q", got, AppBug)
	}
}

func TestParseRuleSets_Empty(t *testing.T) {
	_, err := ParseRuleSets([]byte("rule_sets: []\n"))
	if !errors.Is(err, ErrInvalidRuleSet) {
		t.Errorf("err = %v, want ErrInvalidRuleSet", err)
	}
	_, err = ParseRuleSets([]byte("rule_sets: {not: a list}\n"))
	if !errors.Is(err, ErrInvalidRuleSet) {
		t.Errorf("err = %v, want ErrInvalidRuleSet", err)
	}
}

func TestMarshalRuleSets_RoundTripsDefaults(t *testing.T) {
	data, err := MarshalRuleSets(DefaultRuleSets())
	if err != nil {
		t.Fatalf("MarshalRuleSets: %v", err)
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if !reflect.DeepEqual(l.RuleSets(), DefaultRuleSets()) {
		t.Error("rule sets loaded from file differ from defaults")
	}
}

func TestFromFile_EmptyPathUsesDefaults(t *testing.T) {
	l, err := FromFile("")
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if len(l.RuleSets()) != len(DefaultRuleSets()) {
		t.Errorf("got %d rule sets, want %d", len(l.RuleSets()), len(DefaultRuleSets()))
	}
}

func TestFromFile_Missing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing rule file")
	}
}
