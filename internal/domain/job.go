package domain

import (
	"encoding/json"
	"time"
)

type JobKind string

const (
	JobKindSummarize       JobKind = "summarize"
	JobKindDetectChanges   JobKind = "detect_changes"
	JobKindCheckCompliance JobKind = "check_compliance"
	JobKindExtract         JobKind = "extract"
)

func ValidJobKind(value JobKind) bool {
	switch value {
	case JobKindSummarize, JobKindDetectChanges, JobKindCheckCompliance, JobKindExtract:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func TerminalStatus(status JobStatus) bool {
	switch status {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ErrorKind classifies terminal job failures for callers.
type ErrorKind string

const (
	ErrorKindValidation        ErrorKind = "VALIDATION"
	ErrorKindExtractionFailure ErrorKind = "EXTRACTION_FAILURE"
	ErrorKindTimeout           ErrorKind = "TIMEOUT"
	ErrorKindInternal          ErrorKind = "INTERNAL"
)

// Job is the canonical async unit tracked through the orchestrator
// lifecycle. Only status, progress, attempt and error fields mutate after
// insert.
type Job struct {
	ID                 string
	Kind               JobKind
	DocumentVersionID  string
	CompareToVersionID string
	Priority           int
	Status             JobStatus
	Progress           int
	Attempts           int
	LastErrorKind      ErrorKind
	LastErrorMessage   string
	Result             json.RawMessage
	WorkerID           string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// JobAttempt is one entry in the append-only attempt history of a job.
type JobAttempt struct {
	ID        string
	JobID     string
	Attempt   int
	WorkerID  string
	Status    JobStatus
	ErrorKind ErrorKind
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// QueueMessage is the transport format sent to queue backends.
type QueueMessage struct {
	JobID              string    `json:"job_id"`
	Kind               JobKind   `json:"kind"`
	DocumentVersionID  string    `json:"document_version_id"`
	CompareToVersionID string    `json:"compare_to_version_id,omitempty"`
	Priority           int       `json:"priority"`
	Attempt            int       `json:"attempt"`
	RequestedAt        time.Time `json:"requested_at"`
}
