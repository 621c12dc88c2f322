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

type PostgresRulesRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRulesRepository(pool *pgxpool.Pool) *PostgresRulesRepository {
	return &PostgresRulesRepository{pool: pool}
}

func (r *PostgresRulesRepository) InsertRuleVersion(ctx context.Context, rule *domain.ComplianceRule) error {
	params, err := json.Marshal(rule.Params)
	if err != nil {
		return fmt.Errorf("marshal rule params: %w", err)
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO compliance_rules (
			id,
			version,
			category,
			field_name,
			predicate_kind,
			params,
			severity,
			active,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rule.ID,
		rule.Version,
		string(rule.Category),
		rule.FieldName,
		string(rule.Kind),
		params,
		string(rule.Severity),
		rule.Active,
		rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule version: %w", err)
	}
	return nil
}

func (r *PostgresRulesRepository) LatestRule(ctx context.Context, ruleID string) (*domain.ComplianceRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, version, category, field_name, predicate_kind, params, severity, active, created_at
		FROM compliance_rules
		WHERE id = $1
		ORDER BY version DESC
		LIMIT 1
	`, ruleID)
	rule, err := scanRule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query rule: %w", err)
	}
	return rule, nil
}

func (r *PostgresRulesRepository) ListActiveRules(
	ctx context.Context,
	category domain.Category,
) ([]domain.ComplianceRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (id)
			id, version, category, field_name, predicate_kind, params, severity, active, created_at
		FROM compliance_rules
		WHERE category = $1
		ORDER BY id ASC, version DESC
	`, string(category))
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.ComplianceRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if !rule.Active {
			continue
		}
		rules = append(rules, *rule)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate rules: %w", rows.Err())
	}
	return rules, nil
}

func (r *PostgresRulesRepository) CountRules(ctx context.Context, category domain.Category) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT id)
		FROM compliance_rules
		WHERE category = $1
	`, string(category)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	return count, nil
}

func scanRule(row pgx.Row) (*domain.ComplianceRule, error) {
	var (
		rule     domain.ComplianceRule
		category string
		kind     string
		severity string
		params   []byte
	)
	err := row.Scan(
		&rule.ID,
		&rule.Version,
		&category,
		&rule.FieldName,
		&kind,
		&params,
		&severity,
		&rule.Active,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.Category = domain.Category(category)
	rule.Kind = domain.PredicateKind(kind)
	rule.Severity = domain.Severity(severity)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rule.Params); err != nil {
			return nil, fmt.Errorf("unmarshal rule params: %w", err)
		}
	}
	return &rule, nil
}
