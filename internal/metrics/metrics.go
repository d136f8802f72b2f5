// Package metrics derives operational counters from the store. Nothing is
// accumulated in memory, so the numbers survive restarts and always agree
// with the persisted jobs and findings.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/nvalt/reconx/internal/store"
)

// window is the sliding window for the findings-per-minute rate.
const window = time.Minute

// Snapshot is one point-in-time reading of the system counters.
type Snapshot struct {
	StartedJobs    int64   `json:"started_jobs"`
	CompletedJobs  int64   `json:"completed_jobs"`
	FailedJobs     int64   `json:"failed_jobs"`
	FindingsTotal  int64   `json:"findings_total"`
	FindingsPerMin float64 `json:"findings_per_min"`
}

// Aggregator computes snapshots against a store.
type Aggregator struct {
	store store.Store

	// now is the clock, replaceable in tests.
	now func() time.Time
}

func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st, now: time.Now}
}

// Collect reads the current counters. StartedJobs counts every job ever
// created; FindingsPerMin counts findings first seen or refreshed within the
// last minute.
func (a *Aggregator) Collect(ctx context.Context) (*Snapshot, error) {
	total, completed, failed, err := a.store.CountJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: counting jobs: %w", err)
	}
	findings, err := a.store.CountFindings(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: counting findings: %w", err)
	}
	recent, err := a.store.CountFindingsSince(ctx, a.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("metrics: counting recent findings: %w", err)
	}

	return &Snapshot{
		StartedJobs:    total,
		CompletedJobs:  completed,
		FailedJobs:     failed,
		FindingsTotal:  findings,
		FindingsPerMin: float64(recent),
	}, nil
}
