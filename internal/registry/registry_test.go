package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/realsuite/docintel-back/internal/domain"
)

func TestLoadDefaultsCoverEveryCategory(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, category := range domain.Categories() {
		profile, ok := reg.Profile(category)
		if !ok {
			t.Errorf("missing profile for %s", category)
			continue
		}
		if len(profile.CriticalTerms) == 0 {
			t.Errorf("%s has no critical terms", category)
		}
	}
}

func TestLoadCriticalTermsAreLowercaseSorted(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	terms := reg.CriticalTerms(domain.CategoryPurchaseAgreement)
	if len(terms) == 0 {
		t.Fatal("expected critical terms for purchase agreements")
	}
	for i, term := range terms {
		if term != strings.ToLower(term) {
			t.Errorf("term %q is not lowercase", term)
		}
		if i > 0 && terms[i-1] > term {
			t.Errorf("terms not sorted at %d: %q > %q", i, terms[i-1], term)
		}
	}

	if got := reg.CriticalTerms(domain.Category("BOGUS")); got != nil {
		t.Fatalf("unknown category should have no terms, got %v", got)
	}
}

func TestLoadSeedRulesAreActiveVersionOne(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	seeds := reg.SeedRules(domain.CategorySettlementStatement)
	if len(seeds) == 0 {
		t.Fatal("settlement statements should seed rules")
	}
	for _, rule := range seeds {
		if !rule.Active || rule.Version != 1 {
			t.Errorf("seed rule should be active version 1: %+v", rule)
		}
		if rule.Category != domain.CategorySettlementStatement {
			t.Errorf("seed rule has wrong category: %+v", rule)
		}
		if !domain.ValidPredicateKind(rule.Kind) || !domain.ValidSeverity(rule.Severity) {
			t.Errorf("seed rule has invalid kind or severity: %+v", rule)
		}
	}
}

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write registry file: %v", err)
	}
	return path
}

func TestLoadOverlayReplacesProfile(t *testing.T) {
	path := writeRegistryFile(t, `
OTHER:
  critical_terms: [liability, indemnity]
  required_fields: [document_title]
  rules:
    - field: document_title
      kind: required
      severity: low
`)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	terms := reg.CriticalTerms(domain.CategoryOther)
	if len(terms) != 2 || terms[0] != "indemnity" || terms[1] != "liability" {
		t.Fatalf("overlay terms not applied: %v", terms)
	}

	// Categories absent from the overlay keep their defaults.
	if terms := reg.CriticalTerms(domain.CategoryDeed); len(terms) == 0 {
		t.Fatal("deed defaults should survive the overlay")
	}
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	path := writeRegistryFile(t, `
NOT_A_CATEGORY:
  critical_terms: [x]
`)
	if _, err := Load(path); err == nil {
		t.Fatal("unknown category should fail load")
	}
}

func TestLoadRejectsInvalidSeed(t *testing.T) {
	cases := map[string]string{
		"unknown kind": `
OTHER:
  critical_terms: [x]
  rules:
    - field: f
      kind: sometimes
      severity: low
`,
		"unknown severity": `
OTHER:
  critical_terms: [x]
  rules:
    - field: f
      kind: required
      severity: catastrophic
`,
		"missing field name": `
OTHER:
  critical_terms: [x]
  rules:
    - kind: required
      severity: low
`,
		"cross-field without other_field": `
OTHER:
  critical_terms: [x]
  rules:
    - field: f
      kind: cross-field
      severity: low
`,
	}

	for name, content := range cases {
		path := writeRegistryFile(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected load to fail", name)
		}
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing registry file should fail load")
	}
}
