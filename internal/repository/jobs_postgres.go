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

type PostgresJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJobsRepository(pool *pgxpool.Pool) *PostgresJobsRepository {
	return &PostgresJobsRepository{pool: pool}
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (
			id,
			kind,
			document_version_id,
			compare_to_version_id,
			priority,
			status,
			progress,
			attempts,
			last_error_kind,
			last_error_message,
			result,
			worker_id,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		job.ID,
		string(job.Kind),
		job.DocumentVersionID,
		nullableString(job.CompareToVersionID),
		job.Priority,
		string(job.Status),
		job.Progress,
		job.Attempts,
		string(job.LastErrorKind),
		job.LastErrorMessage,
		job.Result,
		job.WorkerID,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var (
		job       domain.Job
		kind      string
		status    string
		errorKind string
		compareTo *string
		result    []byte
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, document_version_id, compare_to_version_id, priority,
			status, progress, attempts, last_error_kind, last_error_message,
			result, worker_id, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, jobID).Scan(
		&job.ID,
		&kind,
		&job.DocumentVersionID,
		&compareTo,
		&job.Priority,
		&status,
		&job.Progress,
		&job.Attempts,
		&errorKind,
		&job.LastErrorMessage,
		&result,
		&job.WorkerID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}

	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.LastErrorKind = domain.ErrorKind(errorKind)
	if compareTo != nil {
		job.CompareToVersionID = *compareTo
	}
	job.Result = json.RawMessage(result)
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	return &job, nil
}

// ClaimJob relies on the conditional UPDATE for atomicity: only one worker
// observes RowsAffected == 1 for a given queued job.
func (r *PostgresJobsRepository) ClaimJob(ctx context.Context, jobID, workerID string) (bool, error) {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'running',
			worker_id = $2,
			attempts = attempts + 1,
			progress = 0,
			updated_at = $3
		WHERE id = $1 AND status = 'queued'
	`, jobID, workerID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return command.RowsAffected() == 1, nil
}

func (r *PostgresJobsRepository) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET progress = $2,
			updated_at = $3
		WHERE id = $1
	`, jobID, progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresJobsRepository) MarkSucceeded(ctx context.Context, jobID string, result json.RawMessage) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'succeeded',
			progress = 100,
			result = $2,
			last_error_kind = '',
			last_error_message = '',
			updated_at = $3
		WHERE id = $1
	`, jobID, result, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresJobsRepository) MarkFailed(
	ctx context.Context,
	jobID string,
	kind domain.ErrorKind,
	message string,
	terminal bool,
) error {
	status := string(domain.JobStatusQueued)
	if terminal {
		status = string(domain.JobStatusFailed)
	}
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $2,
			last_error_kind = $3,
			last_error_message = $4,
			updated_at = $5
		WHERE id = $1
	`, jobID, status, string(kind), message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresJobsRepository) CancelJob(ctx context.Context, jobID string) (CancelOutcome, error) {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'cancelled',
			updated_at = $2
		WHERE id = $1 AND status IN ('queued', 'running')
	`, jobID, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("cancel job: %w", err)
	}
	if command.RowsAffected() == 1 {
		return CancelApplied, nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check job exists: %w", err)
	}
	if !exists {
		return "", ErrNotFound
	}
	return CancelAlreadyTerminal, nil
}

func (r *PostgresJobsRepository) RecordAttempt(ctx context.Context, attempt *domain.JobAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO job_attempts (
			id,
			job_id,
			attempt,
			worker_id,
			status,
			error_kind,
			error_message,
			started_at,
			ended_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		attempt.ID,
		attempt.JobID,
		attempt.Attempt,
		attempt.WorkerID,
		string(attempt.Status),
		string(attempt.ErrorKind),
		attempt.Error,
		attempt.StartedAt,
		attempt.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job attempt: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) ListAttempts(ctx context.Context, jobID string) ([]domain.JobAttempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, attempt, worker_id, status, error_kind, error_message, started_at, ended_at
		FROM job_attempts
		WHERE job_id = $1
		ORDER BY attempt ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.JobAttempt, 0)
	for rows.Next() {
		var (
			attempt   domain.JobAttempt
			status    string
			errorKind string
		)
		if err := rows.Scan(
			&attempt.ID,
			&attempt.JobID,
			&attempt.Attempt,
			&attempt.WorkerID,
			&status,
			&errorKind,
			&attempt.Error,
			&attempt.StartedAt,
			&attempt.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job attempt: %w", err)
		}
		attempt.Status = domain.JobStatus(status)
		attempt.ErrorKind = domain.ErrorKind(errorKind)
		attempts = append(attempts, attempt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate job attempts: %w", rows.Err())
	}
	return attempts, nil
}

func (r *PostgresJobsRepository) StaleRunning(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	return r.staleByStatus(ctx, string(domain.JobStatusRunning), cutoff)
}

func (r *PostgresJobsRepository) StaleQueued(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	return r.staleByStatus(ctx, string(domain.JobStatusQueued), cutoff)
}

func (r *PostgresJobsRepository) staleByStatus(ctx context.Context, status string, cutoff time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM jobs
		WHERE status = $1 AND updated_at < $2
		ORDER BY id ASC
	`, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale job id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate stale jobs: %w", rows.Err())
	}

	jobs := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.GetJob(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *PostgresJobsRepository) RequeueStale(ctx context.Context, jobID string) (bool, error) {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'queued',
			worker_id = '',
			updated_at = $2
		WHERE id = $1 AND status = 'running'
	`, jobID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("requeue stale job: %w", err)
	}
	return command.RowsAffected() == 1, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
