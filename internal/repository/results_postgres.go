package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realsuite/docintel-back/internal/domain"
)

type PostgresResultsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresResultsRepository(pool *pgxpool.Pool) *PostgresResultsRepository {
	return &PostgresResultsRepository{pool: pool}
}

func (r *PostgresResultsRepository) CreateChangeSet(ctx context.Context, changeSet *domain.ChangeSet) error {
	operations, err := json.Marshal(changeSet.Operations)
	if err != nil {
		return fmt.Errorf("marshal change operations: %w", err)
	}
	critical, err := json.Marshal(changeSet.CriticalChanges)
	if err != nil {
		return fmt.Errorf("marshal critical changes: %w", err)
	}
	if changeSet.CreatedAt.IsZero() {
		changeSet.CreatedAt = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO change_sets (
			id,
			from_version_id,
			to_version_id,
			operations,
			change_percentage,
			significance,
			summary,
			critical_changes,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		changeSet.ID,
		changeSet.FromVersionID,
		changeSet.ToVersionID,
		operations,
		changeSet.ChangePercentage,
		string(changeSet.Significance),
		changeSet.Summary,
		critical,
		changeSet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert change set: %w", err)
	}
	return nil
}

func (r *PostgresResultsRepository) GetChangeSet(ctx context.Context, changeSetID string) (*domain.ChangeSet, error) {
	var (
		changeSet    domain.ChangeSet
		significance string
		operations   []byte
		critical     []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, from_version_id, to_version_id, operations, change_percentage,
			significance, summary, critical_changes, created_at
		FROM change_sets
		WHERE id = $1
	`, changeSetID).Scan(
		&changeSet.ID,
		&changeSet.FromVersionID,
		&changeSet.ToVersionID,
		&operations,
		&changeSet.ChangePercentage,
		&significance,
		&changeSet.Summary,
		&critical,
		&changeSet.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query change set: %w", err)
	}
	changeSet.Significance = domain.Significance(significance)
	if err := json.Unmarshal(operations, &changeSet.Operations); err != nil {
		return nil, fmt.Errorf("unmarshal change operations: %w", err)
	}
	if len(critical) > 0 {
		if err := json.Unmarshal(critical, &changeSet.CriticalChanges); err != nil {
			return nil, fmt.Errorf("unmarshal critical changes: %w", err)
		}
	}
	return &changeSet, nil
}

func (r *PostgresResultsRepository) CreateCheckResult(
	ctx context.Context,
	result *domain.ComplianceCheckResult,
) error {
	ruleResults, err := json.Marshal(result.RuleResults)
	if err != nil {
		return fmt.Errorf("marshal rule results: %w", err)
	}
	severityCounts, err := json.Marshal(result.SeverityCounts)
	if err != nil {
		return fmt.Errorf("marshal severity counts: %w", err)
	}
	missingFields, err := json.Marshal(result.MissingFields)
	if err != nil {
		return fmt.Errorf("marshal missing fields: %w", err)
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO compliance_check_results (
			id,
			document_version_id,
			category,
			rule_set_version,
			rules_evaluated,
			rule_results,
			missing_fields,
			severity_counts,
			overall_status,
			warning,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		result.ID,
		result.DocumentVersionID,
		string(result.Category),
		result.RuleSetVersion,
		result.RulesEvaluated,
		ruleResults,
		missingFields,
		severityCounts,
		string(result.OverallStatus),
		result.Warning,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

func (r *PostgresResultsRepository) GetCheckResult(
	ctx context.Context,
	resultID string,
) (*domain.ComplianceCheckResult, error) {
	var (
		result         domain.ComplianceCheckResult
		category       string
		status         string
		ruleResults    []byte
		missingFields  []byte
		severityCounts []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, document_version_id, category, rule_set_version, rules_evaluated,
			rule_results, missing_fields, severity_counts, overall_status, warning, created_at
		FROM compliance_check_results
		WHERE id = $1
	`, resultID).Scan(
		&result.ID,
		&result.DocumentVersionID,
		&category,
		&result.RuleSetVersion,
		&result.RulesEvaluated,
		&ruleResults,
		&missingFields,
		&severityCounts,
		&status,
		&result.Warning,
		&result.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query check result: %w", err)
	}
	result.Category = domain.Category(category)
	result.OverallStatus = domain.OverallStatus(status)
	if err := json.Unmarshal(ruleResults, &result.RuleResults); err != nil {
		return nil, fmt.Errorf("unmarshal rule results: %w", err)
	}
	if err := json.Unmarshal(missingFields, &result.MissingFields); err != nil {
		return nil, fmt.Errorf("unmarshal missing fields: %w", err)
	}
	if len(severityCounts) > 0 {
		if err := json.Unmarshal(severityCounts, &result.SeverityCounts); err != nil {
			return nil, fmt.Errorf("unmarshal severity counts: %w", err)
		}
	}
	return &result, nil
}
