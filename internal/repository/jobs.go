package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// CancelOutcome reports what a cancellation request found.
type CancelOutcome string

const (
	CancelApplied         CancelOutcome = "cancelled"
	CancelAlreadyTerminal CancelOutcome = "already_terminal"
)

// JobsRepository owns every Job lifecycle transition. Claims are atomic:
// exactly one caller wins the queued-to-running transition for a job.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	// ClaimJob atomically moves a queued job to running for workerID,
	// incrementing the attempt counter. Returns false when the job is not
	// claimable (not queued, or already claimed).
	ClaimJob(ctx context.Context, jobID, workerID string) (bool, error)
	UpdateProgress(ctx context.Context, jobID string, progress int) error
	MarkSucceeded(ctx context.Context, jobID string, result json.RawMessage) error
	// MarkFailed records the classified error. A terminal failure is final;
	// a non-terminal one returns the job to queued for another attempt.
	MarkFailed(ctx context.Context, jobID string, kind domain.ErrorKind, message string, terminal bool) error
	CancelJob(ctx context.Context, jobID string) (CancelOutcome, error)
	RecordAttempt(ctx context.Context, attempt *domain.JobAttempt) error
	ListAttempts(ctx context.Context, jobID string) ([]domain.JobAttempt, error)
	// StaleRunning lists jobs stuck in running since before the cutoff,
	// left behind by crashed workers.
	StaleRunning(ctx context.Context, cutoff time.Time) ([]*domain.Job, error)
	// RequeueStale moves a stale running job back to queued. Returns false
	// when the job moved on in the meantime.
	RequeueStale(ctx context.Context, jobID string) (bool, error)
	// StaleQueued lists jobs sitting in queued since before the cutoff,
	// whose queue delivery was lost.
	StaleQueued(ctx context.Context, cutoff time.Time) ([]*domain.Job, error)
}

// MemoryJobsRepository stores jobs in memory for local development and
// tests. All transitions happen under one lock, which makes the claim
// compare-and-swap atomic.
type MemoryJobsRepository struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	attempts map[string][]domain.JobAttempt
}

func NewMemoryJobsRepository() *MemoryJobsRepository {
	return &MemoryJobsRepository{
		jobs:     make(map[string]*domain.Job),
		attempts: make(map[string][]domain.JobAttempt),
	}
}

func (r *MemoryJobsRepository) CreateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryJobsRepository) ClaimJob(_ context.Context, jobID, workerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return false, nil
	}
	job.Status = domain.JobStatusRunning
	job.WorkerID = workerID
	job.Attempts++
	job.Progress = 0
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryJobsRepository) UpdateProgress(_ context.Context, jobID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryJobsRepository) MarkSucceeded(_ context.Context, jobID string, result json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = domain.JobStatusSucceeded
	job.Progress = 100
	job.Result = append(json.RawMessage(nil), result...)
	job.LastErrorKind = ""
	job.LastErrorMessage = ""
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryJobsRepository) MarkFailed(
	_ context.Context,
	jobID string,
	kind domain.ErrorKind,
	message string,
	terminal bool,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if terminal {
		job.Status = domain.JobStatusFailed
	} else {
		job.Status = domain.JobStatusQueued
	}
	job.LastErrorKind = kind
	job.LastErrorMessage = message
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryJobsRepository) CancelJob(_ context.Context, jobID string) (CancelOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return "", ErrNotFound
	}
	if domain.TerminalStatus(job.Status) {
		return CancelAlreadyTerminal, nil
	}
	job.Status = domain.JobStatusCancelled
	job.UpdatedAt = time.Now().UTC()
	return CancelApplied, nil
}

func (r *MemoryJobsRepository) RecordAttempt(_ context.Context, attempt *domain.JobAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.JobID] = append(r.attempts[attempt.JobID], *attempt)
	return nil
}

func (r *MemoryJobsRepository) ListAttempts(_ context.Context, jobID string) ([]domain.JobAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempts := make([]domain.JobAttempt, len(r.attempts[jobID]))
	copy(attempts, r.attempts[jobID])
	sort.Slice(attempts, func(a, b int) bool {
		return attempts[a].Attempt < attempts[b].Attempt
	})
	return attempts, nil
}

func (r *MemoryJobsRepository) StaleRunning(_ context.Context, cutoff time.Time) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stale := make([]*domain.Job, 0)
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusRunning && job.UpdatedAt.Before(cutoff) {
			stale = append(stale, cloneJob(job))
		}
	}
	sort.Slice(stale, func(a, b int) bool {
		return stale[a].ID < stale[b].ID
	})
	return stale, nil
}

func (r *MemoryJobsRepository) StaleQueued(_ context.Context, cutoff time.Time) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stale := make([]*domain.Job, 0)
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusQueued && job.UpdatedAt.Before(cutoff) {
			stale = append(stale, cloneJob(job))
		}
	}
	sort.Slice(stale, func(a, b int) bool {
		return stale[a].ID < stale[b].ID
	})
	return stale, nil
}

func (r *MemoryJobsRepository) RequeueStale(_ context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status != domain.JobStatusRunning {
		return false, nil
	}
	job.Status = domain.JobStatusQueued
	job.WorkerID = ""
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Result = append(json.RawMessage(nil), job.Result...)
	return &clone
}
