package metrics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/store"
)

func seedStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func createJob(t *testing.T, st *store.SQLiteStore, id string, state job.State) {
	t.Helper()
	ctx := context.Background()
	j := &job.Job{
		ID:        id,
		Type:      job.TypeSubdomains,
		State:     job.StateRunning,
		Config:    map[string]any{"domain": "example.com"},
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if state != job.StateRunning {
		if err := st.UpdateJobState(ctx, id, state, ""); err != nil {
			t.Fatalf("UpdateJobState: %v", err)
		}
	}
}

func addFinding(t *testing.T, st *store.SQLiteStore, jobID, name string, updatedAt time.Time) {
	t.Helper()
	f := &store.Finding{
		JobID: jobID,
		Kind:  store.KindSubdomain,
		Subdomain: &store.SubdomainData{
			Subdomain:   name,
			ResolvedIPs: []string{"192.0.2.1"},
			FirstSeen:   updatedAt,
			LastSeen:    updatedAt,
		},
		UpdatedAt: updatedAt,
	}
	if err := st.AppendFinding(context.Background(), f); err != nil {
		t.Fatalf("AppendFinding: %v", err)
	}
}

func TestCollectEmptyStore(t *testing.T) {
	a := NewAggregator(seedStore(t))
	snap, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.StartedJobs != 0 || snap.FindingsTotal != 0 || snap.FindingsPerMin != 0 {
		t.Errorf("snapshot = %+v, want zeros", snap)
	}
}

func TestCollectCountsJobsAndFindings(t *testing.T) {
	st := seedStore(t)
	createJob(t, st, "a", job.StateCompleted)
	createJob(t, st, "b", job.StateFailed)
	createJob(t, st, "c", job.StateRunning)

	now := time.Now().UTC()
	addFinding(t, st, "a", "one.example.com", now)
	addFinding(t, st, "a", "two.example.com", now.Add(-30*time.Second))
	addFinding(t, st, "b", "old.example.com", now.Add(-5*time.Minute))

	a := NewAggregator(st)
	a.now = func() time.Time { return now }

	snap, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.StartedJobs != 3 {
		t.Errorf("StartedJobs = %d, want 3", snap.StartedJobs)
	}
	if snap.CompletedJobs != 1 {
		t.Errorf("CompletedJobs = %d, want 1", snap.CompletedJobs)
	}
	if snap.FailedJobs != 1 {
		t.Errorf("FailedJobs = %d, want 1", snap.FailedJobs)
	}
	if snap.FindingsTotal != 3 {
		t.Errorf("FindingsTotal = %d, want 3", snap.FindingsTotal)
	}
	// Only the two findings inside the 60s window count toward the rate.
	if snap.FindingsPerMin != 2 {
		t.Errorf("FindingsPerMin = %v, want 2", snap.FindingsPerMin)
	}
}

func TestSnapshotJSONKeys(t *testing.T) {
	b, err := json.Marshal(&Snapshot{StartedJobs: 2, CompletedJobs: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"started_jobs", "completed_jobs", "failed_jobs", "findings_total", "findings_per_min"} {
		if _, ok := m[key]; !ok {
			t.Errorf("snapshot JSON missing key %q (got %v)", key, m)
		}
	}
}

func TestRateWindowSlides(t *testing.T) {
	st := seedStore(t)
	createJob(t, st, "a", job.StateCompleted)

	now := time.Now().UTC()
	addFinding(t, st, "a", "one.example.com", now.Add(-50*time.Second))

	a := NewAggregator(st)

	a.now = func() time.Time { return now }
	snap, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.FindingsPerMin != 1 {
		t.Errorf("FindingsPerMin = %v, want 1", snap.FindingsPerMin)
	}

	// Twenty seconds later the finding has aged out of the window.
	a.now = func() time.Time { return now.Add(20 * time.Second) }
	snap, err = a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.FindingsPerMin != 0 {
		t.Errorf("FindingsPerMin = %v, want 0 after window slides", snap.FindingsPerMin)
	}
}
