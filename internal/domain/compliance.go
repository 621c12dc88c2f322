package domain

import "time"

type PredicateKind string

const (
	PredicateRequired   PredicateKind = "required"
	PredicateFormat     PredicateKind = "format"
	PredicateCrossField PredicateKind = "cross-field"
	PredicateRange      PredicateKind = "range"
)

func ValidPredicateKind(value PredicateKind) bool {
	switch value {
	case PredicateRequired, PredicateFormat, PredicateCrossField, PredicateRange:
		return true
	}
	return false
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func ValidSeverity(value Severity) bool {
	switch value {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// RuleParams carries the kind-specific predicate configuration.
type RuleParams struct {
	// Format names the validator applied by format rules: email, phone,
	// ssn_masked, monetary, date.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Min/Max bound range rules.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// OtherField and Check configure cross-field rules. Check is one of
	// after, before, not_exceeds, min_ratio, max_ratio; Ratio applies to
	// the ratio checks.
	OtherField string   `json:"other_field,omitempty" yaml:"other_field,omitempty"`
	Check      string   `json:"check,omitempty" yaml:"check,omitempty"`
	Ratio      *float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
}

// ComplianceRule is a versioned predicate scoped to one category. Rules are
// never edited in place; an upsert writes the next version.
type ComplianceRule struct {
	ID        string        `json:"id"`
	Category  Category      `json:"category"`
	FieldName string        `json:"field_name,omitempty"`
	Kind      PredicateKind `json:"predicate_kind"`
	Params    RuleParams    `json:"params"`
	Severity  Severity      `json:"severity"`
	Active    bool          `json:"active"`
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
}

type RuleOutcome string

const (
	OutcomePass          RuleOutcome = "pass"
	OutcomeFail          RuleOutcome = "fail"
	OutcomeNotApplicable RuleOutcome = "not_applicable"
)

type RuleResult struct {
	RuleID      string        `json:"rule_id"`
	RuleVersion int           `json:"rule_version"`
	FieldName   string        `json:"field_name,omitempty"`
	Kind        PredicateKind `json:"predicate_kind"`
	Outcome     RuleOutcome   `json:"outcome"`
	Severity    Severity      `json:"severity"`
	Message     string        `json:"message,omitempty"`
}

type OverallStatus string

const (
	StatusCompliant    OverallStatus = "compliant"
	StatusNonCompliant OverallStatus = "non_compliant"
	StatusNeedsReview  OverallStatus = "needs_review"
)

// ComplianceCheckResult is the persisted outcome of evaluating one document
// version against a pinned rule-set snapshot.
type ComplianceCheckResult struct {
	ID                string           `json:"id"`
	DocumentVersionID string           `json:"document_version_id"`
	Category          Category         `json:"category"`
	RuleSetVersion    string           `json:"rule_set_version"`
	RulesEvaluated    int              `json:"rules_evaluated"`
	RuleResults       []RuleResult     `json:"rule_results"`
	MissingFields     []string         `json:"missing_fields"`
	SeverityCounts    map[Severity]int `json:"severity_counts"`
	OverallStatus     OverallStatus    `json:"overall_status"`
	Warning           string           `json:"warning,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
