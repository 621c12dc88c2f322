package rules

import (
	"reflect"
	"testing"

	"github.com/realsuite/docintel-back/internal/domain"
)

func settlementSnapshot() Snapshot {
	min := 1.0
	return NewSnapshot(domain.CategorySettlementStatement, []domain.ComplianceRule{
		{ID: "r-buyer", Version: 1, Category: domain.CategorySettlementStatement, FieldName: "buyer_name", Kind: domain.PredicateRequired, Severity: domain.SeverityCritical},
		{ID: "r-price", Version: 1, Category: domain.CategorySettlementStatement, FieldName: "sale_price", Kind: domain.PredicateRequired, Severity: domain.SeverityCritical},
		{ID: "r-price-fmt", Version: 1, Category: domain.CategorySettlementStatement, FieldName: "sale_price", Kind: domain.PredicateFormat, Severity: domain.SeverityMedium, Params: domain.RuleParams{Format: "monetary"}},
		{ID: "r-date-fmt", Version: 1, Category: domain.CategorySettlementStatement, FieldName: "closing_date", Kind: domain.PredicateFormat, Severity: domain.SeverityMedium, Params: domain.RuleParams{Format: "date"}},
		{ID: "r-loan", Version: 1, Category: domain.CategorySettlementStatement, FieldName: "loan_amount", Kind: domain.PredicateCrossField, Severity: domain.SeverityHigh, Params: domain.RuleParams{OtherField: "sale_price", Check: "not_exceeds"}},
		{ID: "r-price-range", Version: 2, Category: domain.CategorySettlementStatement, FieldName: "sale_price", Kind: domain.PredicateRange, Severity: domain.SeverityLow, Params: domain.RuleParams{Min: &min}},
	}, DefaultReviewThreshold)
}

func TestEvaluateCompliantDocument(t *testing.T) {
	fields := map[string]string{
		"buyer_name":   "John Smith",
		"sale_price":   "$500,000.00",
		"closing_date": "2026-09-15",
		"loan_amount":  "$400,000.00",
	}

	result := Evaluate(fields, settlementSnapshot())
	if result.OverallStatus != domain.StatusCompliant {
		t.Fatalf("expected compliant, got %s: %+v", result.OverallStatus, result.RuleResults)
	}
	if len(result.MissingFields) != 0 {
		t.Fatalf("expected no missing fields, got %v", result.MissingFields)
	}
	if result.RulesEvaluated != 6 {
		t.Fatalf("expected 6 rules evaluated, got %d", result.RulesEvaluated)
	}
}

func TestEvaluateMissingCriticalFieldIsNonCompliant(t *testing.T) {
	fields := map[string]string{
		"sale_price":   "$500,000.00",
		"closing_date": "2026-09-15",
		"loan_amount":  "$400,000.00",
	}

	result := Evaluate(fields, settlementSnapshot())
	if result.OverallStatus != domain.StatusNonCompliant {
		t.Fatalf("expected non_compliant, got %s", result.OverallStatus)
	}
	if len(result.MissingFields) != 1 || result.MissingFields[0] != "buyer_name" {
		t.Fatalf("expected buyer_name missing, got %v", result.MissingFields)
	}
	if result.SeverityCounts[domain.SeverityCritical] != 1 {
		t.Fatalf("expected 1 critical failure, got %v", result.SeverityCounts)
	}
}

func TestEvaluateFormatOnAbsentFieldIsNotApplicable(t *testing.T) {
	fields := map[string]string{
		"buyer_name":  "John Smith",
		"sale_price":  "$500,000.00",
		"loan_amount": "$400,000.00",
	}

	result := Evaluate(fields, settlementSnapshot())
	for _, ruleResult := range result.RuleResults {
		if ruleResult.RuleID == "r-date-fmt" {
			if ruleResult.Outcome != domain.OutcomeNotApplicable {
				t.Fatalf("expected not_applicable for absent closing_date, got %s", ruleResult.Outcome)
			}
		}
	}
	// Absence of a field with only a format rule does not flag it missing.
	for _, field := range result.MissingFields {
		if field == "closing_date" {
			t.Fatalf("closing_date should not be reported missing: %v", result.MissingFields)
		}
	}
}

func TestEvaluateCrossFieldMissingPrerequisiteCountsAsIssue(t *testing.T) {
	fields := map[string]string{
		"buyer_name":   "John Smith",
		"sale_price":   "$500,000.00",
		"closing_date": "2026-09-15",
	}

	result := Evaluate(fields, settlementSnapshot())
	found := false
	for _, ruleResult := range result.RuleResults {
		if ruleResult.RuleID == "r-loan" {
			found = true
			if ruleResult.Outcome != domain.OutcomeNotApplicable {
				t.Fatalf("expected not_applicable, got %s", ruleResult.Outcome)
			}
		}
	}
	if !found {
		t.Fatal("cross-field rule result missing")
	}
	if result.SeverityCounts[domain.SeverityHigh] != 1 {
		t.Fatalf("skipped cross-field rule should count its severity, got %v", result.SeverityCounts)
	}
	missingLoan := false
	for _, field := range result.MissingFields {
		if field == "loan_amount" {
			missingLoan = true
		}
	}
	if !missingLoan {
		t.Fatalf("loan_amount prerequisite should be reported missing, got %v", result.MissingFields)
	}
}

func TestEvaluateCrossFieldFailure(t *testing.T) {
	fields := map[string]string{
		"buyer_name":   "John Smith",
		"sale_price":   "$400,000.00",
		"closing_date": "2026-09-15",
		"loan_amount":  "$450,000.00",
	}

	result := Evaluate(fields, settlementSnapshot())
	if result.OverallStatus != domain.StatusNonCompliant {
		t.Fatalf("loan above sale price should be non_compliant, got %s", result.OverallStatus)
	}
}

func TestEvaluateNeedsReviewAboveThreshold(t *testing.T) {
	rules := make([]domain.ComplianceRule, 0, 4)
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		rules = append(rules, domain.ComplianceRule{
			ID: id, Version: 1, Category: domain.CategoryOther,
			FieldName: "field_" + id, Kind: domain.PredicateRequired,
			Severity: domain.SeverityMedium,
		})
	}
	snapshot := NewSnapshot(domain.CategoryOther, rules, 3)

	result := Evaluate(map[string]string{}, snapshot)
	if result.OverallStatus != domain.StatusNeedsReview {
		t.Fatalf("4 medium issues over threshold 3 should need review, got %s", result.OverallStatus)
	}

	snapshot = NewSnapshot(domain.CategoryOther, rules[:3], 3)
	result = Evaluate(map[string]string{}, snapshot)
	if result.OverallStatus != domain.StatusCompliant {
		t.Fatalf("3 medium issues at threshold 3 should stay compliant, got %s", result.OverallStatus)
	}
}

func TestEvaluateEmptyRuleSet(t *testing.T) {
	snapshot := NewSnapshot(domain.CategoryOther, nil, DefaultReviewThreshold)

	result := Evaluate(map[string]string{"any": "value"}, snapshot)
	if result.OverallStatus != domain.StatusCompliant {
		t.Fatalf("empty rule set should be compliant, got %s", result.OverallStatus)
	}
	if result.Warning == "" {
		t.Fatal("empty rule set should carry a warning")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	fields := map[string]string{
		"sale_price":  "$500,000.00",
		"loan_amount": "$600,000.00",
	}
	snapshot := settlementSnapshot()

	first := Evaluate(fields, snapshot)
	for i := 0; i < 5; i++ {
		again := Evaluate(fields, snapshot)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("evaluation not deterministic:\n%+v\n%+v", first, again)
		}
	}
}

func TestEvaluateMalformedValuesNeverPanic(t *testing.T) {
	fields := map[string]string{
		"buyer_name":   "   ",
		"sale_price":   "five hundred grand",
		"closing_date": "someday soon",
		"loan_amount":  "-$NaN",
	}

	result := Evaluate(fields, settlementSnapshot())
	if result.OverallStatus != domain.StatusNonCompliant {
		t.Fatalf("malformed critical data should be non_compliant, got %s", result.OverallStatus)
	}
}
