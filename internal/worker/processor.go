package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/realsuite/docintel-back/internal/blob"
	"github.com/realsuite/docintel-back/internal/diff"
	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/ocr"
	"github.com/realsuite/docintel-back/internal/queue"
	"github.com/realsuite/docintel-back/internal/redact"
	"github.com/realsuite/docintel-back/internal/repository"
	"github.com/realsuite/docintel-back/internal/rules"
	"github.com/realsuite/docintel-back/internal/summarize"
)

const (
	DefaultMaxAttempts = 3
	DefaultJobTimeout  = 5 * time.Minute

	progressLoaded   = 40
	progressComputed = 80
)

// ErrInvalidJob marks failures that no retry can fix.
var ErrInvalidJob = errors.New("job input is invalid")

// errNotYetDurable marks inputs that may appear after a replication or
// ingest lag; the job goes back to the queue instead of failing.
var errNotYetDurable = errors.New("job input is not yet durable")

// SnapshotSource resolves the pinned rule-set snapshot for a category.
type SnapshotSource interface {
	Snapshot(ctx context.Context, category domain.Category) (rules.Snapshot, error)
}

type ProcessorConfig struct {
	WorkerID    string
	MaxAttempts int
	JobTimeout  time.Duration
}

// Processor consumes queue messages, claims the referenced job and runs the
// analysis for its kind. Every claim transition goes through the jobs
// repository so exactly one processor runs a job at a time.
type Processor struct {
	consumer   queue.Consumer
	jobs       repository.JobsRepository
	versions   repository.VersionsRepository
	results    repository.ResultsRepository
	snapshots  SnapshotSource
	diffEngine *diff.Engine
	classifier *diff.Classifier
	summarizer *summarize.Summarizer
	extractor  *ocr.Router
	blobs      blob.Store
	logger     *log.Logger

	workerID    string
	maxAttempts int
	jobTimeout  time.Duration
}

func NewProcessor(
	consumer queue.Consumer,
	jobs repository.JobsRepository,
	versions repository.VersionsRepository,
	results repository.ResultsRepository,
	snapshots SnapshotSource,
	diffEngine *diff.Engine,
	classifier *diff.Classifier,
	summarizer *summarize.Summarizer,
	extractor *ocr.Router,
	blobs blob.Store,
	config ProcessorConfig,
	logger *log.Logger,
) *Processor {
	if config.WorkerID == "" {
		config.WorkerID = "worker-" + uuid.NewString()[:8]
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultJobTimeout
	}
	return &Processor{
		consumer:    consumer,
		jobs:        jobs,
		versions:    versions,
		results:     results,
		snapshots:   snapshots,
		diffEngine:  diffEngine,
		classifier:  classifier,
		summarizer:  summarizer,
		extractor:   extractor,
		blobs:       blobs,
		logger:      logger,
		workerID:    config.WorkerID,
		maxAttempts: config.MaxAttempts,
		jobTimeout:  config.JobTimeout,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.ProcessMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		if p.logger != nil {
			p.logger.Printf("worker consume loop error: %v", err)
		}

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// ProcessMessage runs one delivery. A nil return acknowledges the message;
// an error asks the queue to redeliver with an incremented attempt.
func (p *Processor) ProcessMessage(ctx context.Context, message domain.QueueMessage) error {
	claimed, err := p.jobs.ClaimJob(ctx, message.JobID, p.workerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if p.logger != nil {
				p.logger.Printf("dropping message for unknown job job_id=%s", message.JobID)
			}
			return nil
		}
		return fmt.Errorf("claim job %s: %w", message.JobID, err)
	}
	if !claimed {
		// Cancelled, already terminal, or raced by another worker.
		return nil
	}

	job, err := p.jobs.GetJob(ctx, message.JobID)
	if err != nil {
		return fmt.Errorf("load claimed job %s: %w", message.JobID, err)
	}

	startedAt := time.Now().UTC()
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	result, runErr := p.run(jobCtx, job)

	cancelled, checkErr := p.jobCancelled(ctx, job.ID)
	if checkErr == nil && cancelled {
		// The result is discarded; cancellation won the race.
		p.recordAttempt(ctx, job, startedAt, domain.JobStatusCancelled, "", "")
		return nil
	}

	if runErr != nil {
		kind := classifyError(runErr)
		terminal := kind == domain.ErrorKindValidation || message.Attempt+1 >= p.maxAttempts
		// An unexpected internal exception gets a single retry; one that
		// failed twice will fail a third time. Waiting on a compare version
		// that is not durable yet is a deferral, not a failure, so it keeps
		// the full budget.
		if kind == domain.ErrorKindInternal && !errors.Is(runErr, errNotYetDurable) && message.Attempt >= 1 {
			terminal = true
		}
		if markErr := p.jobs.MarkFailed(ctx, job.ID, kind, runErr.Error(), terminal); markErr != nil {
			return fmt.Errorf("mark job failed: %w", markErr)
		}
		p.recordAttempt(ctx, job, startedAt, domain.JobStatusFailed, kind, runErr.Error())
		if p.logger != nil {
			p.logger.Printf(
				"job attempt failed kind=%s job_id=%s attempt=%d error_kind=%s terminal=%t err=%v",
				job.Kind, job.ID, job.Attempts, kind, terminal, runErr,
			)
		}
		if terminal {
			return nil
		}
		return runErr
	}

	// Every result kind can quote raw document text. Mask once here so no
	// job kind can leak PII through the result endpoint.
	if err := p.jobs.MarkSucceeded(ctx, job.ID, redact.MaskJSON(result)); err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}
	p.recordAttempt(ctx, job, startedAt, domain.JobStatusSucceeded, "", "")
	if p.logger != nil {
		p.logger.Printf("job processed kind=%s job_id=%s attempts=%d", job.Kind, job.ID, job.Attempts)
	}
	return nil
}

func (p *Processor) run(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	switch job.Kind {
	case domain.JobKindExtract:
		return p.runExtract(ctx, job)
	case domain.JobKindDetectChanges:
		return p.runDetectChanges(ctx, job)
	case domain.JobKindCheckCompliance:
		return p.runCheckCompliance(ctx, job)
	case domain.JobKindSummarize:
		return p.runSummarize(ctx, job)
	default:
		return nil, fmt.Errorf("%w: unsupported job kind %s", ErrInvalidJob, job.Kind)
	}
}

func (p *Processor) runExtract(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	version, err := p.loadVersion(ctx, job.DocumentVersionID)
	if err != nil {
		return nil, err
	}
	if version.PageImageRef == "" {
		return nil, fmt.Errorf("%w: version %s has no page image", ErrInvalidJob, version.ID)
	}

	pageImage, err := p.blobs.Get(ctx, version.PageImageRef)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%w: page image %s is missing", ErrInvalidJob, version.PageImageRef)
		}
		return nil, fmt.Errorf("load page image: %w", err)
	}
	if err := p.checkpoint(ctx, job.ID, progressLoaded); err != nil {
		return nil, err
	}

	extracted, err := p.extractor.Extract(ctx, pageImage)
	if err != nil {
		return nil, fmt.Errorf("extract version %s: %w", version.ID, err)
	}
	if err := p.checkpoint(ctx, job.ID, progressComputed); err != nil {
		return nil, err
	}

	return marshalResult(map[string]any{
		"document_version_id": version.ID,
		"raw_text":            extracted.Text,
		"structured_fields":   extracted.Fields,
		"confidence":          extracted.Confidence,
		"engine_used":         extracted.EngineUsed,
		"degraded":            extracted.Degraded,
	})
}

func (p *Processor) runDetectChanges(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	toVersion, err := p.loadVersion(ctx, job.DocumentVersionID)
	if err != nil {
		return nil, err
	}

	var fromVersion *domain.DocumentVersion
	if job.CompareToVersionID != "" {
		fromVersion, err = p.versions.GetVersion(ctx, job.CompareToVersionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// An explicitly referenced version may still be in flight.
				return nil, fmt.Errorf("%w: compare version %s", errNotYetDurable, job.CompareToVersionID)
			}
			return nil, fmt.Errorf("load compare version: %w", err)
		}
	} else {
		fromVersion, err = p.versions.PreviousVersion(ctx, toVersion.DocumentID, toVersion.SequenceNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: version %s has no predecessor", ErrInvalidJob, toVersion.ID)
			}
			return nil, fmt.Errorf("load previous version: %w", err)
		}
	}
	if err := p.checkpoint(ctx, job.ID, progressLoaded); err != nil {
		return nil, err
	}

	diffed := p.diffEngine.Diff(fromVersion.RawText, toVersion.RawText)
	changeSet := &domain.ChangeSet{
		ID:               uuid.NewString(),
		FromVersionID:    fromVersion.ID,
		ToVersionID:      toVersion.ID,
		Operations:       diffed.Operations,
		ChangePercentage: diffed.ChangePercentage,
		Significance:     p.classifier.Classify(diffed.Operations, diffed.ChangePercentage, toVersion.Category),
		Summary:          diff.Summarize(diffed.Operations),
		CriticalChanges:  p.classifier.CriticalChanges(diffed.Operations, toVersion.Category),
		CreatedAt:        time.Now().UTC(),
	}
	if err := p.checkpoint(ctx, job.ID, progressComputed); err != nil {
		return nil, err
	}

	if err := p.results.CreateChangeSet(ctx, changeSet); err != nil {
		return nil, fmt.Errorf("persist change set: %w", err)
	}
	if fromVersion.DocumentID == toVersion.DocumentID {
		rel := &domain.DocumentRelationship{
			ID:            uuid.NewString(),
			FromVersionID: toVersion.ID,
			ToVersionID:   fromVersion.ID,
			Type:          domain.RelationshipSupersedes,
			CreatedAt:     time.Now().UTC(),
		}
		if err := p.versions.CreateRelationship(ctx, rel); err != nil {
			return nil, fmt.Errorf("persist relationship: %w", err)
		}
	}

	return marshalResult(changeSet)
}

func (p *Processor) runCheckCompliance(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	version, err := p.loadVersion(ctx, job.DocumentVersionID)
	if err != nil {
		return nil, err
	}

	snapshot, err := p.snapshots.Snapshot(ctx, version.Category)
	if err != nil {
		return nil, fmt.Errorf("load rule snapshot: %w", err)
	}
	if err := p.checkpoint(ctx, job.ID, progressLoaded); err != nil {
		return nil, err
	}

	result := rules.Evaluate(version.StructuredFields, snapshot)
	result.ID = uuid.NewString()
	result.DocumentVersionID = version.ID
	result.CreatedAt = time.Now().UTC()
	if err := p.checkpoint(ctx, job.ID, progressComputed); err != nil {
		return nil, err
	}

	if err := p.results.CreateCheckResult(ctx, &result); err != nil {
		return nil, fmt.Errorf("persist check result: %w", err)
	}
	return marshalResult(result)
}

func (p *Processor) runSummarize(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	version, err := p.loadVersion(ctx, job.DocumentVersionID)
	if err != nil {
		return nil, err
	}
	if err := p.checkpoint(ctx, job.ID, progressLoaded); err != nil {
		return nil, err
	}

	summary := p.summarizer.Summarize(version.RawText)
	if err := p.checkpoint(ctx, job.ID, progressComputed); err != nil {
		return nil, err
	}

	return marshalResult(map[string]any{
		"document_version_id": version.ID,
		"category":            version.Category,
		"summary":             summary,
	})
}

func (p *Processor) loadVersion(ctx context.Context, versionID string) (*domain.DocumentVersion, error) {
	if versionID == "" {
		return nil, fmt.Errorf("%w: document version id is required", ErrInvalidJob)
	}
	version, err := p.versions.GetVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: document version %s", ErrInvalidJob, versionID)
		}
		return nil, fmt.Errorf("load document version: %w", err)
	}
	return version, nil
}

// checkpoint advances progress and aborts between stages when the job was
// cancelled or the deadline passed.
func (p *Processor) checkpoint(ctx context.Context, jobID string, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cancelled, err := p.jobCancelled(ctx, jobID)
	if err != nil {
		return err
	}
	if cancelled {
		return context.Canceled
	}
	if err := p.jobs.UpdateProgress(ctx, jobID, progress); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

func (p *Processor) jobCancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := p.jobs.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.Status == domain.JobStatusCancelled, nil
}

func (p *Processor) recordAttempt(
	ctx context.Context,
	job *domain.Job,
	startedAt time.Time,
	status domain.JobStatus,
	errorKind domain.ErrorKind,
	errorMessage string,
) {
	attempt := &domain.JobAttempt{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Attempt:   job.Attempts,
		WorkerID:  p.workerID,
		Status:    status,
		ErrorKind: errorKind,
		Error:     errorMessage,
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
	}
	if err := p.jobs.RecordAttempt(ctx, attempt); err != nil && p.logger != nil {
		p.logger.Printf("record attempt failed job_id=%s err=%v", job.ID, err)
	}
}

func classifyError(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidJob):
		return domain.ErrorKindValidation
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorKindTimeout
	case errors.Is(err, ocr.ErrAllEnginesFailed), errors.Is(err, ocr.ErrEngineUnavailable):
		return domain.ErrorKindExtractionFailure
	default:
		return domain.ErrorKindInternal
	}
}

func marshalResult(value any) (json.RawMessage, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode job result: %w", err)
	}
	return encoded, nil
}
