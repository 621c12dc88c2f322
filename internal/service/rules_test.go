package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/registry"
	"github.com/realsuite/docintel-back/internal/repository"
)

func newRulesService(t *testing.T) (*RulesService, *repository.MemoryRulesRepository) {
	t.Helper()
	reg, err := registry.Load("")
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	repo := repository.NewMemoryRulesRepository()
	return NewRulesService(repo, reg, 5*time.Minute, 3, nil), repo
}

func TestSeedDefaultsPopulatesEmptyStore(t *testing.T) {
	ctx := context.Background()
	service, repo := newRulesService(t)

	if err := service.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	active, err := repo.ListActiveRules(ctx, domain.CategorySettlementStatement)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) == 0 {
		t.Fatal("seeding should populate settlement statement rules")
	}

	// A second seed run leaves populated categories alone.
	if err := service.SeedDefaults(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	again, _ := repo.ListActiveRules(ctx, domain.CategorySettlementStatement)
	if len(again) != len(active) {
		t.Fatalf("seeding is not idempotent: %d then %d rules", len(active), len(again))
	}
}

func TestUpsertRuleCreatesAndVersions(t *testing.T) {
	ctx := context.Background()
	service, _ := newRulesService(t)

	created, err := service.UpsertRule(ctx, UpsertRuleInput{
		Category:  domain.CategoryDeed,
		FieldName: "grantor_name",
		Kind:      domain.PredicateRequired,
		Severity:  domain.SeverityCritical,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Version != 1 {
		t.Fatalf("new rule should get an id at version 1: %+v", created)
	}

	updated, err := service.UpsertRule(ctx, UpsertRuleInput{
		RuleID:    created.ID,
		Category:  domain.CategoryDeed,
		FieldName: "grantor_name",
		Kind:      domain.PredicateRequired,
		Severity:  domain.SeverityHigh,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("update should write version 2, got %d", updated.Version)
	}

	active, err := service.ListActiveRules(ctx, domain.CategoryDeed)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, rule := range active {
		if rule.ID == created.ID && rule.Version != 2 {
			t.Fatalf("listing should surface the latest version, got %d", rule.Version)
		}
	}
}

func TestUpsertRuleRejectsCategoryChange(t *testing.T) {
	ctx := context.Background()
	service, _ := newRulesService(t)

	created, err := service.UpsertRule(ctx, UpsertRuleInput{
		Category:  domain.CategoryDeed,
		FieldName: "grantor_name",
		Kind:      domain.PredicateRequired,
		Severity:  domain.SeverityCritical,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = service.UpsertRule(ctx, UpsertRuleInput{
		RuleID:    created.ID,
		Category:  domain.CategoryLeaseAgreement,
		FieldName: "grantor_name",
		Kind:      domain.PredicateRequired,
		Severity:  domain.SeverityCritical,
		Active:    true,
	})
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("category change should be rejected, got %v", err)
	}
}

func TestUpsertRuleUnknownRuleID(t *testing.T) {
	service, _ := newRulesService(t)
	_, err := service.UpsertRule(context.Background(), UpsertRuleInput{
		RuleID:    uuid.NewString(),
		Category:  domain.CategoryDeed,
		FieldName: "grantor_name",
		Kind:      domain.PredicateRequired,
		Severity:  domain.SeverityCritical,
		Active:    true,
	})
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("unknown rule id should be rejected, got %v", err)
	}
}

func TestUpsertRuleValidation(t *testing.T) {
	service, _ := newRulesService(t)
	min := 10.0
	max := 5.0

	cases := []struct {
		name  string
		input UpsertRuleInput
	}{
		{"unknown category", UpsertRuleInput{Category: "NOPE", FieldName: "f", Kind: domain.PredicateRequired, Severity: domain.SeverityLow}},
		{"unknown kind", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: "maybe", Severity: domain.SeverityLow}},
		{"unknown severity", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: domain.PredicateRequired, Severity: "oops"}},
		{"missing field name", UpsertRuleInput{Category: domain.CategoryOther, Kind: domain.PredicateRequired, Severity: domain.SeverityLow}},
		{"unknown format", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: domain.PredicateFormat, Severity: domain.SeverityLow, Params: domain.RuleParams{Format: "zipcode"}}},
		{"range without bounds", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: domain.PredicateRange, Severity: domain.SeverityLow}},
		{"range min above max", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: domain.PredicateRange, Severity: domain.SeverityLow, Params: domain.RuleParams{Min: &min, Max: &max}}},
		{"cross-field without other", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: domain.PredicateCrossField, Severity: domain.SeverityLow, Params: domain.RuleParams{Check: "after"}}},
		{"cross-field without check", UpsertRuleInput{Category: domain.CategoryOther, FieldName: "f", Kind: domain.PredicateCrossField, Severity: domain.SeverityLow, Params: domain.RuleParams{OtherField: "g"}}},
	}
	for _, tc := range cases {
		if _, err := service.UpsertRule(context.Background(), tc.input); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("%s: expected ErrInvalidRule, got %v", tc.name, err)
		}
	}
}

func TestSnapshotPinsUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	service, _ := newRulesService(t)

	first, err := service.Snapshot(ctx, domain.CategoryDeed)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if _, err := service.UpsertRule(ctx, UpsertRuleInput{
		Category:  domain.CategoryDeed,
		FieldName: "notary_name",
		Kind:      domain.PredicateRequired,
		Severity:  domain.SeverityMedium,
		Active:    true,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	second, err := service.Snapshot(ctx, domain.CategoryDeed)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if first.Fingerprint == second.Fingerprint {
		t.Fatal("upsert should invalidate the cached snapshot")
	}
	if len(second.Rules) != len(first.Rules)+1 {
		t.Fatalf("new snapshot should include the new rule: %d vs %d", len(second.Rules), len(first.Rules))
	}
}

func TestSnapshotServedFromCache(t *testing.T) {
	ctx := context.Background()
	service, repo := newRulesService(t)
	if err := service.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := service.Snapshot(ctx, domain.CategoryDeed)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Writing straight to the repository bypasses cache invalidation, so the
	// cached snapshot keeps serving.
	direct := &domain.ComplianceRule{
		ID:       uuid.NewString(),
		Category: domain.CategoryDeed,
		Kind:     domain.PredicateRequired, FieldName: "witness_name",
		Severity: domain.SeverityLow, Active: true, Version: 1,
	}
	if err := repo.InsertRuleVersion(ctx, direct); err != nil {
		t.Fatalf("insert: %v", err)
	}

	second, err := service.Snapshot(ctx, domain.CategoryDeed)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Fatal("cached snapshot should be reused until invalidated or expired")
	}
}
