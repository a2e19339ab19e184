// Package jobs runs vault maintenance in the background: billing passes,
// reminders, exports and sync flushes.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Store for unknown job ids.
var ErrNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeReconcile advances overdue subscription billing dates.
	JobTypeReconcile JobType = "reconcile_subscriptions"
	// JobTypeRemind posts the daily subscription reminder.
	JobTypeRemind JobType = "send_reminder"
	// JobTypeExportBigQuery streams the vault into BigQuery.
	JobTypeExportBigQuery JobType = "export_bigquery"
	// JobTypeFlush writes pending changes to the remote store.
	JobTypeFlush JobType = "flush_sync"
)

// ParseJobType parses a user supplied job type.
func ParseJobType(s string) (JobType, error) {
	switch t := JobType(s); t {
	case JobTypeReconcile, JobTypeRemind, JobTypeExportBigQuery, JobTypeFlush:
		return t, nil
	}
	return "", fmt.Errorf("unknown job type: %q", s)
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Job is one maintenance run.
type Job struct {
	// ID is the unique identifier for this job.
	ID string `json:"id"`

	Type   JobType   `json:"type"`
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retryCount"`
	MaxRetries int `json:"maxRetries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *Job) error
	Close() error
}

// Consumer runs enqueued jobs.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// Handler processes a job. A returned error marks the attempt as failed and
// schedules a retry while retries remain.
type Handler func(ctx context.Context, job *Job) error

// Store keeps job state so callers can poll it.
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	// GetJob returns ErrNotFound for unknown ids.
	GetJob(ctx context.Context, id string) (*Job, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter Filter) ([]*Job, error)
}

// Filter defines filtering criteria for listing jobs.
type Filter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}

// Tasks maps job types to the work they do.
type Tasks map[JobType]func(ctx context.Context) error

// Handler dispatches each job to its task. Jobs without a registered task
// fail without retry.
func (t Tasks) Handler() Handler {
	return func(ctx context.Context, job *Job) error {
		task, ok := t[job.Type]
		if !ok {
			job.MaxRetries = job.RetryCount
			return fmt.Errorf("no task registered for %s", job.Type)
		}
		return task(ctx)
	}
}
