package worker

import (
	"context"
	"log"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/queue"
	"github.com/realsuite/docintel-back/internal/repository"
)

const (
	DefaultVisibilityTimeout = 10 * time.Minute
	DefaultSweepInterval     = time.Minute
)

type SweeperConfig struct {
	VisibilityTimeout time.Duration
	SweepInterval     time.Duration
}

// Sweeper requeues jobs stuck in running past the visibility timeout. A
// worker crash leaves its claimed jobs behind; the sweeper returns them to
// queued and re-enqueues a delivery so another worker picks them up.
type Sweeper struct {
	jobs     repository.JobsRepository
	producer queue.Producer
	logger   *log.Logger

	visibilityTimeout time.Duration
	sweepInterval     time.Duration
}

func NewSweeper(
	jobs repository.JobsRepository,
	producer queue.Producer,
	config SweeperConfig,
	logger *log.Logger,
) *Sweeper {
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = DefaultVisibilityTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	return &Sweeper{
		jobs:              jobs,
		producer:          producer,
		logger:            logger,
		visibilityTimeout: config.VisibilityTimeout,
		sweepInterval:     config.SweepInterval,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && s.logger != nil {
				s.logger.Printf("sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one pass. Exported so tests and operators can trigger it
// directly.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.visibilityTimeout)
	stale, err := s.jobs.StaleRunning(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, job := range stale {
		requeued, err := s.jobs.RequeueStale(ctx, job.ID)
		if err != nil {
			if s.logger != nil {
				s.logger.Printf("requeue stale job failed job_id=%s err=%v", job.ID, err)
			}
			continue
		}
		if !requeued {
			continue
		}
		s.redeliver(ctx, job)
	}

	// Queued jobs whose delivery was lost (crash between the status update
	// and the enqueue, or during a retry backoff window). Duplicate
	// deliveries are harmless: the claim CAS rejects all but one.
	orphaned, err := s.jobs.StaleQueued(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, job := range orphaned {
		s.redeliver(ctx, job)
	}
	return nil
}

func (s *Sweeper) redeliver(ctx context.Context, job *domain.Job) {
	message := domain.QueueMessage{
		JobID:              job.ID,
		Kind:               job.Kind,
		DocumentVersionID:  job.DocumentVersionID,
		CompareToVersionID: job.CompareToVersionID,
		Priority:           job.Priority,
		Attempt:            job.Attempts,
		RequestedAt:        time.Now().UTC(),
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		if s.logger != nil {
			s.logger.Printf("re-enqueue stale job failed job_id=%s err=%v", job.ID, err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Printf("stale job requeued job_id=%s kind=%s attempts=%d", job.ID, job.Kind, job.Attempts)
	}
}
