package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/queue"
	"github.com/realsuite/docintel-back/internal/repository"
)

var (
	// ErrValidation marks submissions rejected before a job is created.
	ErrValidation = errors.New("invalid job submission")

	// ErrJobNotCancellable is returned when cancellation hits a job that
	// already reached a terminal status.
	ErrJobNotCancellable = errors.New("job already reached a terminal status")
)

// SubmitJobInput is the request shape accepted by SubmitJob.
type SubmitJobInput struct {
	Kind               domain.JobKind
	DocumentVersionID  string
	CompareToVersionID string
	Priority           int
}

type JobsService struct {
	jobs     repository.JobsRepository
	versions repository.VersionsRepository
	results  repository.ResultsRepository
	producer queue.Producer
}

func NewJobsService(
	jobs repository.JobsRepository,
	versions repository.VersionsRepository,
	results repository.ResultsRepository,
	producer queue.Producer,
) *JobsService {
	return &JobsService{jobs: jobs, versions: versions, results: results, producer: producer}
}

// SubmitJob validates the submission synchronously and enqueues the job.
// Validation failures never create a job row.
func (s *JobsService) SubmitJob(ctx context.Context, input SubmitJobInput) (*domain.Job, error) {
	if !domain.ValidJobKind(input.Kind) {
		return nil, fmt.Errorf("%w: unknown job kind %q", ErrValidation, input.Kind)
	}
	if strings.TrimSpace(input.DocumentVersionID) == "" {
		return nil, fmt.Errorf("%w: document_version_id is required", ErrValidation)
	}
	if _, err := s.versions.GetVersion(ctx, input.DocumentVersionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: document version %s does not exist", ErrValidation, input.DocumentVersionID)
		}
		return nil, fmt.Errorf("check document version: %w", err)
	}
	if input.CompareToVersionID != "" && input.Kind != domain.JobKindDetectChanges {
		return nil, fmt.Errorf("%w: compare_to_version_id only applies to %s jobs", ErrValidation, domain.JobKindDetectChanges)
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:                 uuid.NewString(),
		Kind:               input.Kind,
		DocumentVersionID:  input.DocumentVersionID,
		CompareToVersionID: input.CompareToVersionID,
		Priority:           input.Priority,
		Status:             domain.JobStatusQueued,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	message := domain.QueueMessage{
		JobID:              job.ID,
		Kind:               job.Kind,
		DocumentVersionID:  job.DocumentVersionID,
		CompareToVersionID: job.CompareToVersionID,
		Priority:           job.Priority,
		Attempt:            0,
		RequestedAt:        now,
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		_ = s.jobs.MarkFailed(ctx, job.ID, domain.ErrorKindInternal, err.Error(), true)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

func (s *JobsService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

func (s *JobsService) ListAttempts(ctx context.Context, jobID string) ([]domain.JobAttempt, error) {
	if _, err := s.jobs.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.ListAttempts(ctx, jobID)
}

// CancelJob requests cancellation. Queued jobs never run; running jobs stop
// at their next checkpoint and their partial result is discarded.
func (s *JobsService) CancelJob(ctx context.Context, jobID string) (*domain.Job, error) {
	outcome, err := s.jobs.CancelJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if outcome == repository.CancelAlreadyTerminal {
		return nil, ErrJobNotCancellable
	}
	return s.jobs.GetJob(ctx, jobID)
}

// GetJobResult returns the stored result of a succeeded job.
func (s *JobsService) GetJobResult(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusSucceeded {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNoResult, jobID, job.Status)
	}
	return job, nil
}

// ErrNoResult is returned when a result is requested for a job that has not
// succeeded.
var ErrNoResult = errors.New("job has no result")
