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

type PostgresVersionsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresVersionsRepository(pool *pgxpool.Pool) *PostgresVersionsRepository {
	return &PostgresVersionsRepository{pool: pool}
}

// CreateVersion assigns the next sequence number inside a transaction so
// concurrent ingests of the same document cannot collide.
func (r *PostgresVersionsRepository) CreateVersion(ctx context.Context, version *domain.DocumentVersion) error {
	fields, err := json.Marshal(version.StructuredFields)
	if err != nil {
		return fmt.Errorf("marshal structured fields: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin version tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// MAX+1 alone does not serialize concurrent ingests of the same
	// document: two transactions can read the same max. The advisory lock
	// keys on the document id and is released at commit or rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, version.DocumentID); err != nil {
		return fmt.Errorf("lock document for sequencing: %w", err)
	}

	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence_number), 0) + 1
		FROM document_versions
		WHERE document_id = $1
	`, version.DocumentID).Scan(&version.SequenceNumber)
	if err != nil {
		return fmt.Errorf("next sequence number: %w", err)
	}

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO document_versions (
			id,
			document_id,
			category,
			sequence_number,
			raw_text,
			structured_fields,
			extraction_confidence,
			engine_used,
			degraded,
			page_image_ref,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		version.ID,
		version.DocumentID,
		string(version.Category),
		version.SequenceNumber,
		version.RawText,
		fields,
		version.ExtractionConfidence,
		version.EngineUsed,
		version.Degraded,
		version.PageImageRef,
		version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit version tx: %w", err)
	}
	return nil
}

func (r *PostgresVersionsRepository) GetVersion(ctx context.Context, versionID string) (*domain.DocumentVersion, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, category, sequence_number, raw_text, structured_fields,
			extraction_confidence, engine_used, degraded, page_image_ref, created_at
		FROM document_versions
		WHERE id = $1
	`, versionID)
	version, err := scanVersion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query document version: %w", err)
	}
	return version, nil
}

func (r *PostgresVersionsRepository) ListVersions(
	ctx context.Context,
	documentID string,
) ([]*domain.DocumentVersion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, category, sequence_number, raw_text, structured_fields,
			extraction_confidence, engine_used, degraded, page_image_ref, created_at
		FROM document_versions
		WHERE document_id = $1
		ORDER BY sequence_number ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()

	versions := make([]*domain.DocumentVersion, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document version: %w", err)
		}
		versions = append(versions, version)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate document versions: %w", rows.Err())
	}
	return versions, nil
}

func (r *PostgresVersionsRepository) PreviousVersion(
	ctx context.Context,
	documentID string,
	beforeSequence int,
) (*domain.DocumentVersion, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, category, sequence_number, raw_text, structured_fields,
			extraction_confidence, engine_used, degraded, page_image_ref, created_at
		FROM document_versions
		WHERE document_id = $1 AND sequence_number < $2
		ORDER BY sequence_number DESC
		LIMIT 1
	`, documentID, beforeSequence)
	version, err := scanVersion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query previous version: %w", err)
	}
	return version, nil
}

func (r *PostgresVersionsRepository) CreateRelationship(
	ctx context.Context,
	rel *domain.DocumentRelationship,
) error {
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document_relationships (
			id,
			from_version_id,
			to_version_id,
			relationship_type,
			created_at
		) VALUES ($1,$2,$3,$4,$5)
	`, rel.ID, rel.FromVersionID, rel.ToVersionID, string(rel.Type), rel.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert relationship: %w", err)
	}
	return nil
}

func (r *PostgresVersionsRepository) ListRelationships(
	ctx context.Context,
	versionID string,
) ([]*domain.DocumentRelationship, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, from_version_id, to_version_id, relationship_type, created_at
		FROM document_relationships
		WHERE from_version_id = $1 OR to_version_id = $1
		ORDER BY created_at ASC
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	relationships := make([]*domain.DocumentRelationship, 0)
	for rows.Next() {
		var (
			rel     domain.DocumentRelationship
			relType string
		)
		if err := rows.Scan(&rel.ID, &rel.FromVersionID, &rel.ToVersionID, &relType, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		rel.Type = domain.RelationshipType(relType)
		relationships = append(relationships, &rel)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate relationships: %w", rows.Err())
	}
	return relationships, nil
}

func scanVersion(row pgx.Row) (*domain.DocumentVersion, error) {
	var (
		version  domain.DocumentVersion
		category string
		fields   []byte
	)
	err := row.Scan(
		&version.ID,
		&version.DocumentID,
		&category,
		&version.SequenceNumber,
		&version.RawText,
		&fields,
		&version.ExtractionConfidence,
		&version.EngineUsed,
		&version.Degraded,
		&version.PageImageRef,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	version.Category = domain.Category(category)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &version.StructuredFields); err != nil {
			return nil, fmt.Errorf("unmarshal structured fields: %w", err)
		}
	}
	return &version, nil
}
