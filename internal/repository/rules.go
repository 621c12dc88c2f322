package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

// RulesRepository stores compliance rules as immutable versions. An upsert
// inserts the next version of a rule id; reads resolve the latest version.
type RulesRepository interface {
	InsertRuleVersion(ctx context.Context, rule *domain.ComplianceRule) error
	// LatestRule returns the highest version of a rule id regardless of
	// its active flag.
	LatestRule(ctx context.Context, ruleID string) (*domain.ComplianceRule, error)
	// ListActiveRules returns the latest version of every rule in a
	// category whose latest version is active.
	ListActiveRules(ctx context.Context, category domain.Category) ([]domain.ComplianceRule, error)
	CountRules(ctx context.Context, category domain.Category) (int, error)
}

type MemoryRulesRepository struct {
	mu       sync.RWMutex
	versions map[string][]domain.ComplianceRule
}

func NewMemoryRulesRepository() *MemoryRulesRepository {
	return &MemoryRulesRepository{
		versions: make(map[string][]domain.ComplianceRule),
	}
}

func (r *MemoryRulesRepository) InsertRuleVersion(_ context.Context, rule *domain.ComplianceRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	r.versions[rule.ID] = append(r.versions[rule.ID], *rule)
	return nil
}

func (r *MemoryRulesRepository) LatestRule(_ context.Context, ruleID string) (*domain.ComplianceRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.versions[ruleID]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	latest := versions[0]
	for _, version := range versions[1:] {
		if version.Version > latest.Version {
			latest = version
		}
	}
	return &latest, nil
}

func (r *MemoryRulesRepository) ListActiveRules(
	_ context.Context,
	category domain.Category,
) ([]domain.ComplianceRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]domain.ComplianceRule, 0)
	for _, versions := range r.versions {
		if len(versions) == 0 {
			continue
		}
		latest := versions[0]
		for _, version := range versions[1:] {
			if version.Version > latest.Version {
				latest = version
			}
		}
		if latest.Category == category && latest.Active {
			rules = append(rules, latest)
		}
	}
	sort.Slice(rules, func(a, b int) bool {
		return rules[a].ID < rules[b].ID
	})
	return rules, nil
}

func (r *MemoryRulesRepository) CountRules(_ context.Context, category domain.Category) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, versions := range r.versions {
		for _, version := range versions {
			if version.Category == category {
				count++
				break
			}
		}
	}
	return count, nil
}
