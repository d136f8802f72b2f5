package store

import (
	"context"
	"time"

	"github.com/nvalt/reconx/internal/job"
)

// Store persists jobs and findings. Implementations must allow findings to
// be read concurrently with ongoing writes from the same job without readers
// observing a partially written record.
type Store interface {
	// CreateJob persists a new job record.
	CreateJob(ctx context.Context, j *job.Job) error

	// UpdateJobState sets the job's state and error message.
	UpdateJobState(ctx context.Context, id string, state job.State, errMsg string) error

	// UpdateJobProgress raises the job's progress. Updates that would lower
	// progress or touch a terminal job are ignored, so progress stays
	// monotone and freezes at its last observed value.
	UpdateJobProgress(ctx context.Context, id string, progress float64) error

	// GetJob returns the job with the given id, or job.ErrNotFound.
	GetJob(ctx context.Context, id string) (*job.Job, error)

	// ListJobs returns all jobs, most recently created first.
	ListJobs(ctx context.Context) ([]*job.Job, error)

	// DeleteJob removes a job and all of its findings in one transaction.
	// Returns job.ErrNotFound for an unknown id.
	DeleteJob(ctx context.Context, id string) error

	// AppendFinding upserts a finding keyed by (job_id, Key()). Subdomain
	// findings merge resolved IPs and keep first_seen; other kinds replace
	// the stored payload with the latest observation.
	AppendFinding(ctx context.Context, f *Finding) error

	// FindingsByJob returns the job's findings in insertion order.
	FindingsByJob(ctx context.Context, jobID string) ([]*Finding, error)

	// CountFindings returns the total number of stored findings.
	CountFindings(ctx context.Context) (int64, error)

	// CountFindingsSince counts findings written at or after t.
	CountFindingsSince(ctx context.Context, t time.Time) (int64, error)

	// CountJobs returns (total, completed, failed) job counts.
	CountJobs(ctx context.Context) (total, completed, failed int64, err error)

	// Ping reports backend reachability.
	Ping(ctx context.Context) error

	Close() error
}
