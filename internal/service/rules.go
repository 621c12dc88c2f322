package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/registry"
	"github.com/realsuite/docintel-back/internal/repository"
	"github.com/realsuite/docintel-back/internal/rules"
)

// ErrInvalidRule marks rule upserts rejected before anything is stored.
var ErrInvalidRule = errors.New("invalid compliance rule")

// UpsertRuleInput describes a rule create or update. An empty RuleID creates
// a new rule at version 1; otherwise the next version of the rule is written.
type UpsertRuleInput struct {
	RuleID    string
	Category  domain.Category
	FieldName string
	Kind      domain.PredicateKind
	Params    domain.RuleParams
	Severity  domain.Severity
	Active    bool
}

// RulesService manages versioned compliance rules and serves pinned
// snapshots to evaluation. Snapshots are cached per category and invalidated
// on every upsert, so an in-flight job keeps the set it started with while
// new jobs observe edits.
type RulesService struct {
	rules           repository.RulesRepository
	registry        *registry.Registry
	cache           *rules.SnapshotCache
	reviewThreshold int
	logger          *log.Logger
}

func NewRulesService(
	rulesRepo repository.RulesRepository,
	reg *registry.Registry,
	cacheTTL time.Duration,
	reviewThreshold int,
	logger *log.Logger,
) *RulesService {
	return &RulesService{
		rules:           rulesRepo,
		registry:        reg,
		cache:           rules.NewSnapshotCache(cacheTTL),
		reviewThreshold: reviewThreshold,
		logger:          logger,
	}
}

// SeedDefaults inserts the registry's seed rules for every category that has
// no rules yet. Categories that were already populated are left alone.
func (s *RulesService) SeedDefaults(ctx context.Context) error {
	for _, category := range domain.Categories() {
		count, err := s.rules.CountRules(ctx, category)
		if err != nil {
			return fmt.Errorf("count rules for %s: %w", category, err)
		}
		if count > 0 {
			continue
		}
		for _, rule := range s.registry.SeedRules(category) {
			seeded := rule
			seeded.ID = uuid.NewString()
			seeded.CreatedAt = time.Now().UTC()
			if err := s.rules.InsertRuleVersion(ctx, &seeded); err != nil {
				return fmt.Errorf("seed rule for %s: %w", category, err)
			}
		}
		if s.logger != nil {
			s.logger.Printf("seeded default rules category=%s", category)
		}
	}
	return nil
}

func (s *RulesService) UpsertRule(ctx context.Context, input UpsertRuleInput) (*domain.ComplianceRule, error) {
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule := &domain.ComplianceRule{
		ID:        input.RuleID,
		Category:  input.Category,
		FieldName: input.FieldName,
		Kind:      input.Kind,
		Params:    input.Params,
		Severity:  input.Severity,
		Active:    input.Active,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	} else {
		latest, err := s.rules.LatestRule(ctx, rule.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: rule %s does not exist", ErrInvalidRule, rule.ID)
			}
			return nil, fmt.Errorf("load rule: %w", err)
		}
		if latest.Category != rule.Category {
			return nil, fmt.Errorf("%w: rule %s belongs to category %s", ErrInvalidRule, rule.ID, latest.Category)
		}
		rule.Version = latest.Version + 1
	}

	if err := s.rules.InsertRuleVersion(ctx, rule); err != nil {
		return nil, fmt.Errorf("insert rule version: %w", err)
	}
	s.cache.Invalidate(rule.Category)
	return rule, nil
}

func (s *RulesService) ListActiveRules(
	ctx context.Context,
	category domain.Category,
) ([]domain.ComplianceRule, error) {
	if !domain.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRule, category)
	}
	return s.rules.ListActiveRules(ctx, category)
}

// Snapshot returns the pinned rule set for a category, preferring the cache.
func (s *RulesService) Snapshot(ctx context.Context, category domain.Category) (rules.Snapshot, error) {
	if snapshot, ok := s.cache.Get(category); ok {
		return snapshot, nil
	}
	active, err := s.rules.ListActiveRules(ctx, category)
	if err != nil {
		return rules.Snapshot{}, fmt.Errorf("list active rules: %w", err)
	}
	snapshot := rules.NewSnapshot(category, active, s.reviewThreshold)
	s.cache.Set(snapshot)
	return snapshot, nil
}

// CategoryProfile exposes the registry profile backing a category.
func (s *RulesService) CategoryProfile(category domain.Category) (registry.CategoryProfile, bool) {
	return s.registry.Profile(category)
}

func validateRuleInput(input UpsertRuleInput) error {
	if !domain.ValidCategory(input.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, input.Category)
	}
	if !domain.ValidPredicateKind(input.Kind) {
		return fmt.Errorf("%w: unknown predicate kind %q", ErrInvalidRule, input.Kind)
	}
	if !domain.ValidSeverity(input.Severity) {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, input.Severity)
	}
	if input.FieldName == "" && input.Kind != domain.PredicateCrossField {
		return fmt.Errorf("%w: field_name is required for %s rules", ErrInvalidRule, input.Kind)
	}

	switch input.Kind {
	case domain.PredicateFormat:
		if !rules.KnownFormat(input.Params.Format) {
			return fmt.Errorf("%w: unknown format %q", ErrInvalidRule, input.Params.Format)
		}
	case domain.PredicateRange:
		if input.Params.Min == nil && input.Params.Max == nil {
			return fmt.Errorf("%w: range rules need min or max", ErrInvalidRule)
		}
		if input.Params.Min != nil && input.Params.Max != nil && *input.Params.Min > *input.Params.Max {
			return fmt.Errorf("%w: range min exceeds max", ErrInvalidRule)
		}
	case domain.PredicateCrossField:
		if input.FieldName == "" || input.Params.OtherField == "" {
			return fmt.Errorf("%w: cross-field rules need field_name and other_field", ErrInvalidRule)
		}
		if input.Params.Check == "" {
			return fmt.Errorf("%w: cross-field rules need a check", ErrInvalidRule)
		}
	}
	return nil
}
