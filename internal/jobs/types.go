// Package jobs defines the background retry queue for auto-categorization
// calls that failed or landed below the confidence threshold at verify
// time, adapted from the original document-parsing job queue's shape.
package jobs

import (
	"context"
	"time"
)

// JobType identifies the kind of work a Job performs. Numa only needs one:
// retrying a categorization call for a transaction that was verified with
// the fallback category.
type JobType string

const (
	JobTypeRecategorize JobType = "recategorize_transaction"
)

// JobStatus tracks a job's progress through the queue.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// RecategorizeJob asks the background worker to re-run ClassifyCategory for
// a transaction that was verified with domain.CategoryDefault because the
// live classification call failed or returned low confidence.
type RecategorizeJob struct {
	JobID         string `json:"job_id"`
	TransactionID string `json:"transaction_id"`
	OwnerID       string `json:"owner_id"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is the generic interface the queue and store operate on.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements Job.
func (j *RecategorizeJob) GetID() string { return j.JobID }

// GetType implements Job.
func (j *RecategorizeJob) GetType() JobType { return JobTypeRecategorize }

// GetStatus implements Job.
func (j *RecategorizeJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues recategorization jobs.
type Publisher interface {
	PublishRecategorize(ctx context.Context, job *RecategorizeJob) error
	Close() error
}

// Consumer drains recategorization jobs.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobHandler processes a single job. An error return means the queue should
// retry it, up to the job's MaxRetries.
type JobHandler func(ctx context.Context, job Job) error

// Store tracks job state across worker restarts.
type Store interface {
	SaveJob(ctx context.Context, job *RecategorizeJob) error
	GetJob(ctx context.Context, jobID string) (*RecategorizeJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*RecategorizeJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	TransactionID string
	Status        JobStatus
	Limit         int
	Offset        int
}
