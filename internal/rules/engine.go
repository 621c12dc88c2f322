package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/realsuite/docintel-back/internal/domain"
)

const emptyRuleSetWarning = "no active rules configured for category"

// Evaluate runs every rule in the snapshot against the structured fields and
// aggregates the outcome. It never fails on malformed or missing data; such
// data degrades into rule failures or missing-field issues. Evaluating the
// same fields against the same snapshot returns an identical result.
func Evaluate(fields map[string]string, snapshot Snapshot) domain.ComplianceCheckResult {
	result := domain.ComplianceCheckResult{
		Category:       snapshot.Category,
		RuleSetVersion: snapshot.Fingerprint,
		RulesEvaluated: len(snapshot.Rules),
		RuleResults:    make([]domain.RuleResult, 0, len(snapshot.Rules)),
		MissingFields:  make([]string, 0),
		SeverityCounts: make(map[domain.Severity]int),
	}

	if len(snapshot.Rules) == 0 {
		result.OverallStatus = domain.StatusCompliant
		result.Warning = emptyRuleSetWarning
		return result
	}

	missingSeen := make(map[string]bool)
	addMissing := func(field string) {
		if field == "" || missingSeen[field] {
			return
		}
		missingSeen[field] = true
		result.MissingFields = append(result.MissingFields, field)
	}

	var criticalHighFailures int
	var reviewableIssues int

	for _, rule := range snapshot.Rules {
		ruleResult := evaluateRule(rule, fields)
		result.RuleResults = append(result.RuleResults, ruleResult)

		switch ruleResult.Outcome {
		case domain.OutcomeFail:
			result.SeverityCounts[rule.Severity]++
			if rule.Kind == domain.PredicateRequired {
				addMissing(rule.FieldName)
			}
			if rule.Severity == domain.SeverityCritical || rule.Severity == domain.SeverityHigh {
				criticalHighFailures++
			} else {
				reviewableIssues++
			}
		case domain.OutcomeNotApplicable:
			// A cross-field rule skipped for a missing prerequisite is a
			// missing-field issue, not a silent pass.
			if rule.Kind == domain.PredicateCrossField {
				result.SeverityCounts[rule.Severity]++
				reviewableIssues++
				for _, field := range missingPrerequisites(rule, fields) {
					addMissing(field)
				}
			}
		}
	}

	sort.Strings(result.MissingFields)

	switch {
	case criticalHighFailures > 0:
		result.OverallStatus = domain.StatusNonCompliant
	case reviewableIssues > snapshot.ReviewThreshold:
		result.OverallStatus = domain.StatusNeedsReview
	default:
		result.OverallStatus = domain.StatusCompliant
	}
	return result
}

func evaluateRule(rule domain.ComplianceRule, fields map[string]string) domain.RuleResult {
	ruleResult := domain.RuleResult{
		RuleID:      rule.ID,
		RuleVersion: rule.Version,
		FieldName:   rule.FieldName,
		Kind:        rule.Kind,
		Severity:    rule.Severity,
	}

	switch rule.Kind {
	case domain.PredicateRequired:
		ruleResult.Outcome, ruleResult.Message = evaluateRequired(rule, fields)
	case domain.PredicateFormat:
		ruleResult.Outcome, ruleResult.Message = evaluateFormat(rule, fields)
	case domain.PredicateCrossField:
		ruleResult.Outcome, ruleResult.Message = evaluateCrossField(rule, fields)
	case domain.PredicateRange:
		ruleResult.Outcome, ruleResult.Message = evaluateRange(rule, fields)
	default:
		ruleResult.Outcome = domain.OutcomeNotApplicable
		ruleResult.Message = fmt.Sprintf("unknown predicate kind %q", rule.Kind)
	}
	return ruleResult
}

func fieldValue(fields map[string]string, name string) (string, bool) {
	value, ok := fields[name]
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func evaluateRequired(rule domain.ComplianceRule, fields map[string]string) (domain.RuleOutcome, string) {
	if _, ok := fieldValue(fields, rule.FieldName); !ok {
		return domain.OutcomeFail, fmt.Sprintf("required field %s is missing or empty", rule.FieldName)
	}
	return domain.OutcomePass, ""
}

// Format rules only constrain fields that are present; absence is the
// required rule's concern.
func evaluateFormat(rule domain.ComplianceRule, fields map[string]string) (domain.RuleOutcome, string) {
	value, ok := fieldValue(fields, rule.FieldName)
	if !ok {
		return domain.OutcomeNotApplicable, fmt.Sprintf("field %s not present", rule.FieldName)
	}
	validator, known := formatValidators[rule.Params.Format]
	if !known {
		return domain.OutcomeFail, fmt.Sprintf("unknown format validator %q", rule.Params.Format)
	}
	if !validator(value) {
		return domain.OutcomeFail, fmt.Sprintf("field %s does not match %s format", rule.FieldName, rule.Params.Format)
	}
	return domain.OutcomePass, ""
}

func evaluateCrossField(rule domain.ComplianceRule, fields map[string]string) (domain.RuleOutcome, string) {
	left, leftOK := fieldValue(fields, rule.FieldName)
	right, rightOK := fieldValue(fields, rule.Params.OtherField)
	if !leftOK || !rightOK {
		missing := missingPrerequisites(rule, fields)
		return domain.OutcomeNotApplicable, fmt.Sprintf("prerequisite field(s) missing: %s", strings.Join(missing, ", "))
	}

	switch rule.Params.Check {
	case "after":
		leftDate, okA := parseDate(left)
		rightDate, okB := parseDate(right)
		if !okA || !okB {
			return domain.OutcomeFail, fmt.Sprintf("unparseable date in %s/%s", rule.FieldName, rule.Params.OtherField)
		}
		if leftDate.Before(rightDate) {
			return domain.OutcomeFail, fmt.Sprintf("%s must not precede %s", rule.FieldName, rule.Params.OtherField)
		}
		return domain.OutcomePass, ""
	case "before":
		leftDate, okA := parseDate(left)
		rightDate, okB := parseDate(right)
		if !okA || !okB {
			return domain.OutcomeFail, fmt.Sprintf("unparseable date in %s/%s", rule.FieldName, rule.Params.OtherField)
		}
		if leftDate.After(rightDate) {
			return domain.OutcomeFail, fmt.Sprintf("%s must not follow %s", rule.FieldName, rule.Params.OtherField)
		}
		return domain.OutcomePass, ""
	case "not_exceeds":
		leftAmount, okA := parseAmount(left)
		rightAmount, okB := parseAmount(right)
		if !okA || !okB {
			return domain.OutcomeFail, fmt.Sprintf("unparseable amount in %s/%s", rule.FieldName, rule.Params.OtherField)
		}
		if leftAmount > rightAmount {
			return domain.OutcomeFail, fmt.Sprintf("%s exceeds %s", rule.FieldName, rule.Params.OtherField)
		}
		return domain.OutcomePass, ""
	case "max_ratio", "min_ratio":
		leftAmount, okA := parseAmount(left)
		rightAmount, okB := parseAmount(right)
		if !okA || !okB || rightAmount == 0 {
			return domain.OutcomeFail, fmt.Sprintf("unparseable amount in %s/%s", rule.FieldName, rule.Params.OtherField)
		}
		if rule.Params.Ratio == nil {
			return domain.OutcomeFail, "ratio check missing ratio parameter"
		}
		ratio := leftAmount / rightAmount
		if rule.Params.Check == "max_ratio" && ratio > *rule.Params.Ratio {
			return domain.OutcomeFail, fmt.Sprintf("%s/%s ratio %.4f above maximum %.4f", rule.FieldName, rule.Params.OtherField, ratio, *rule.Params.Ratio)
		}
		if rule.Params.Check == "min_ratio" && ratio < *rule.Params.Ratio {
			return domain.OutcomeFail, fmt.Sprintf("%s/%s ratio %.4f below minimum %.4f", rule.FieldName, rule.Params.OtherField, ratio, *rule.Params.Ratio)
		}
		return domain.OutcomePass, ""
	default:
		return domain.OutcomeFail, fmt.Sprintf("unknown cross-field check %q", rule.Params.Check)
	}
}

func evaluateRange(rule domain.ComplianceRule, fields map[string]string) (domain.RuleOutcome, string) {
	value, ok := fieldValue(fields, rule.FieldName)
	if !ok {
		return domain.OutcomeNotApplicable, fmt.Sprintf("field %s not present", rule.FieldName)
	}
	amount, parsed := parseAmount(value)
	if !parsed {
		return domain.OutcomeFail, fmt.Sprintf("field %s is not numeric", rule.FieldName)
	}
	if rule.Params.Min != nil && amount < *rule.Params.Min {
		return domain.OutcomeFail, fmt.Sprintf("field %s below minimum %.2f", rule.FieldName, *rule.Params.Min)
	}
	if rule.Params.Max != nil && amount > *rule.Params.Max {
		return domain.OutcomeFail, fmt.Sprintf("field %s above maximum %.2f", rule.FieldName, *rule.Params.Max)
	}
	return domain.OutcomePass, ""
}

func missingPrerequisites(rule domain.ComplianceRule, fields map[string]string) []string {
	missing := make([]string, 0, 2)
	if _, ok := fieldValue(fields, rule.FieldName); !ok {
		missing = append(missing, rule.FieldName)
	}
	if _, ok := fieldValue(fields, rule.Params.OtherField); !ok {
		missing = append(missing, rule.Params.OtherField)
	}
	return missing
}
