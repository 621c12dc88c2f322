package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// DefaultConfidenceThreshold is the local-engine confidence below which the
// router escalates to the cloud engine.
const DefaultConfidenceThreshold = 0.85

var ErrAllEnginesFailed = errors.New("all ocr engines failed")

// Result attributes the whole extraction to exactly one engine. Degraded
// marks a local result returned because the cloud escalation failed.
type Result struct {
	Extraction
	EngineUsed string `json:"engine_used"`
	Degraded   bool   `json:"degraded"`
}

type RouterConfig struct {
	ConfidenceThreshold float64
	LocalTimeout        time.Duration
	CloudTimeout        time.Duration
}

// Router runs the two-step extraction decision: attempt local, gate on
// confidence, conditionally attempt cloud, fall back on cloud failure.
// Results are never blended across engines.
type Router struct {
	local     Engine
	cloud     Engine
	threshold float64
	localTime time.Duration
	cloudTime time.Duration
	logger    *log.Logger
}

func NewRouter(local, cloud Engine, config RouterConfig, logger *log.Logger) *Router {
	if config.ConfidenceThreshold <= 0 || config.ConfidenceThreshold > 1 {
		config.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if config.LocalTimeout <= 0 {
		config.LocalTimeout = 5 * time.Second
	}
	if config.CloudTimeout <= 0 {
		config.CloudTimeout = 30 * time.Second
	}
	return &Router{
		local:     local,
		cloud:     cloud,
		threshold: config.ConfidenceThreshold,
		localTime: config.LocalTimeout,
		cloudTime: config.CloudTimeout,
		logger:    logger,
	}
}

// Extract routes one page image. Low confidence from both engines is not an
// error; the cloud result is returned and the caller decides how to treat
// low-confidence fields.
func (r *Router) Extract(ctx context.Context, pageImage []byte) (Result, error) {
	localCtx, cancelLocal := context.WithTimeout(ctx, r.localTime)
	localExtraction, localErr := r.local.Extract(localCtx, pageImage)
	cancelLocal()

	if localErr == nil && localExtraction.Confidence >= r.threshold {
		return Result{Extraction: localExtraction, EngineUsed: r.local.Name()}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	if localErr != nil && r.logger != nil {
		r.logger.Printf("local ocr failed, escalating engine=%s err=%v", r.local.Name(), localErr)
	} else if r.logger != nil {
		r.logger.Printf(
			"local ocr below threshold, escalating engine=%s confidence=%.2f threshold=%.2f",
			r.local.Name(), localExtraction.Confidence, r.threshold,
		)
	}

	cloudCtx, cancelCloud := context.WithTimeout(ctx, r.cloudTime)
	cloudExtraction, cloudErr := r.cloud.Extract(cloudCtx, pageImage)
	cancelCloud()

	if cloudErr == nil {
		return Result{Extraction: cloudExtraction, EngineUsed: r.cloud.Name()}, nil
	}

	// Cloud escalation failed. A usable local result is returned degraded
	// rather than failing the job.
	if localErr == nil {
		if r.logger != nil {
			r.logger.Printf("cloud ocr failed, returning degraded local result err=%v", cloudErr)
		}
		return Result{Extraction: localExtraction, EngineUsed: r.local.Name(), Degraded: true}, nil
	}

	return Result{}, fmt.Errorf("%w: local: %v; cloud: %v", ErrAllEnginesFailed, localErr, cloudErr)
}
