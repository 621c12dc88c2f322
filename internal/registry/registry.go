package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/realsuite/docintel-back/internal/domain"
	"gopkg.in/yaml.v3"
)

// CategoryProfile holds the per-category intelligence configuration: the
// terms whose change makes a diff critical, the fields the category is
// expected to carry, and the compliance rules seeded for it.
type CategoryProfile struct {
	CriticalTerms  []string   `yaml:"critical_terms"`
	RequiredFields []string   `yaml:"required_fields"`
	RuleSeeds      []RuleSeed `yaml:"rules"`
}

// RuleSeed is a declarative compliance rule as written in the registry file.
type RuleSeed struct {
	FieldName string            `yaml:"field"`
	Kind      string            `yaml:"kind"`
	Severity  string            `yaml:"severity"`
	Params    domain.RuleParams `yaml:"params"`
}

// Registry maps every supported category to its profile. It is immutable
// after Load and safe for concurrent reads.
type Registry struct {
	profiles map[domain.Category]CategoryProfile
}

// Load builds the registry from the built-in defaults, overlaid with the
// YAML file at path when one is configured. Every category listed in the
// file must be a known category, and after the overlay every supported
// category must have a profile; anything else fails startup.
func Load(path string) (*Registry, error) {
	profiles := defaultProfiles()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read category registry: %w", err)
		}
		var overlay map[string]CategoryProfile
		if err := yaml.Unmarshal(raw, &overlay); err != nil {
			return nil, fmt.Errorf("parse category registry: %w", err)
		}
		for name, profile := range overlay {
			category := domain.Category(name)
			if !domain.ValidCategory(category) {
				return nil, fmt.Errorf("category registry: unknown category %q", name)
			}
			profiles[category] = profile
		}
	}

	registry := &Registry{profiles: profiles}
	if err := registry.validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

func (r *Registry) validate() error {
	for _, category := range domain.Categories() {
		profile, ok := r.profiles[category]
		if !ok {
			return fmt.Errorf("category registry: missing profile for %s", category)
		}
		for _, seed := range profile.RuleSeeds {
			kind := domain.PredicateKind(seed.Kind)
			if !domain.ValidPredicateKind(kind) {
				return fmt.Errorf("category registry: %s: unknown predicate kind %q", category, seed.Kind)
			}
			if !domain.ValidSeverity(domain.Severity(seed.Severity)) {
				return fmt.Errorf("category registry: %s: unknown severity %q", category, seed.Severity)
			}
			if kind != domain.PredicateCrossField && strings.TrimSpace(seed.FieldName) == "" {
				return fmt.Errorf("category registry: %s: %s rule requires a field name", category, seed.Kind)
			}
			if kind == domain.PredicateCrossField && strings.TrimSpace(seed.Params.OtherField) == "" {
				return fmt.Errorf("category registry: %s: cross-field rule requires other_field", category)
			}
		}
	}
	return nil
}

// Profile returns the profile for a category. The boolean is false for
// unknown categories.
func (r *Registry) Profile(category domain.Category) (CategoryProfile, bool) {
	profile, ok := r.profiles[category]
	return profile, ok
}

// CriticalTerms returns the lowercase critical-term list for a category.
func (r *Registry) CriticalTerms(category domain.Category) []string {
	profile, ok := r.profiles[category]
	if !ok {
		return nil
	}
	terms := make([]string, 0, len(profile.CriticalTerms))
	for _, term := range profile.CriticalTerms {
		terms = append(terms, strings.ToLower(term))
	}
	sort.Strings(terms)
	return terms
}

// SeedRules materializes the declarative seeds into versioned rules for a
// category, used to populate an empty rule store on first boot.
func (r *Registry) SeedRules(category domain.Category) []domain.ComplianceRule {
	profile, ok := r.profiles[category]
	if !ok {
		return nil
	}
	rules := make([]domain.ComplianceRule, 0, len(profile.RuleSeeds))
	for _, seed := range profile.RuleSeeds {
		rules = append(rules, domain.ComplianceRule{
			Category:  category,
			FieldName: seed.FieldName,
			Kind:      domain.PredicateKind(seed.Kind),
			Params:    seed.Params,
			Severity:  domain.Severity(seed.Severity),
			Active:    true,
			Version:   1,
		})
	}
	return rules
}
