// Package orchestrator owns the job lifecycle: it validates scan requests,
// persists job records, drives the engines, and enforces the job state
// machine (running -> paused/completed/cancelled/failed, paused ->
// running/cancelled).
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvalt/reconx/internal/config"
	"github.com/nvalt/reconx/internal/engine"
	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/store"
	"github.com/nvalt/reconx/internal/wordlist"
)

// Orchestrator coordinates scan jobs across the engines and the store.
type Orchestrator struct {
	store   store.Store
	logger  *slog.Logger
	engines map[job.Type]engine.Engine

	// mu guards the runs map and serializes state transitions so a
	// finishing engine and an operator command cannot race.
	mu   sync.Mutex
	runs map[string]*runtime
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithEngine registers or replaces the engine for its job type.
func WithEngine(e engine.Engine) Option {
	return func(o *Orchestrator) {
		o.engines[e.Type()] = e
	}
}

// New creates an Orchestrator backed by st, with the three stock engines
// wired to the embedded wordlists.
func New(st store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  st,
		logger: slog.Default(),
		engines: map[job.Type]engine.Engine{
			job.TypeSubdomains: engine.NewSubdomainEngine(wordlist.Subdomains()),
			job.TypePorts:      engine.NewPortEngine(),
			job.TypeDirs:       engine.NewDirEngine(wordlist.Dirs()),
		},
		runs: make(map[string]*runtime),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create validates the request, persists a new job in the running state, and
// starts its engine in the background. The returned job is a snapshot.
func (o *Orchestrator) Create(ctx context.Context, cfg config.ScanConfig) (*job.Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, ok := o.engines[cfg.Type()]
	if !ok {
		return nil, fmt.Errorf("orchestrator: no engine registered for type %q", cfg.Type())
	}

	j := &job.Job{
		ID:        uuid.NewString(),
		Type:      cfg.Type(),
		State:     job.StateRunning,
		Config:    cfg.Map(),
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.CreateJob(ctx, j); err != nil {
		return nil, err
	}

	rt := newRuntime()
	o.mu.Lock()
	o.runs[j.ID] = rt
	o.mu.Unlock()

	go o.run(j.ID, eng, j.Config, rt)

	o.logger.Info("job started", "job", j.ID, "type", j.Type)
	return j.Clone(), nil
}

// run drives one engine to completion and records the terminal state.
func (o *Orchestrator) run(id string, eng engine.Engine, cfg map[string]any, rt *runtime) {
	defer close(rt.done)
	defer func() {
		o.mu.Lock()
		delete(o.runs, id)
		o.mu.Unlock()
	}()

	sink := &jobSink{orch: o, jobID: id, rt: rt}
	err := eng.Run(rt.ctx, cfg, sink, rt)

	// The runtime context is gone by now; terminal bookkeeping uses its own.
	bg := context.Background()
	switch {
	case err == nil:
		// Progress must reach 100 before the state freezes.
		if uerr := o.store.UpdateJobProgress(bg, id, 100); uerr != nil {
			o.logger.Warn("final progress update failed", "job", id, "error", uerr)
		}
		if terr := o.transition(bg, id, job.StateCompleted, ""); terr == nil {
			o.logger.Info("job completed", "job", id)
		}
	case errors.Is(err, context.Canceled):
		// Cancel or Delete already persisted the cancelled state.
		o.logger.Info("job cancelled", "job", id)
	default:
		if terr := o.transition(bg, id, job.StateFailed, err.Error()); terr == nil {
			o.logger.Error("job failed", "job", id, "error", err)
		}
	}
}

// transition moves a job to a new state after checking the state machine.
func (o *Orchestrator) transition(ctx context.Context, id string, to job.State, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	j, err := o.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !job.CanTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", job.ErrInvalidTransition, j.State, to)
	}
	return o.store.UpdateJobState(ctx, id, to, errMsg)
}

func (o *Orchestrator) runtimeFor(id string) *runtime {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs[id]
}

// Pause suspends a running job. In-flight probes finish; no new work starts
// until Resume.
func (o *Orchestrator) Pause(ctx context.Context, id string) (*job.Job, error) {
	if err := o.transition(ctx, id, job.StatePaused, ""); err != nil {
		return nil, err
	}
	if rt := o.runtimeFor(id); rt != nil {
		rt.pause()
	}
	o.logger.Info("job paused", "job", id)
	return o.store.GetJob(ctx, id)
}

// Resume releases a paused job's workers.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*job.Job, error) {
	if err := o.transition(ctx, id, job.StateRunning, ""); err != nil {
		return nil, err
	}
	rt := o.runtimeFor(id)
	if rt == nil {
		// A job paused by a previous process has no engine to release.
		o.logger.Warn("resumed job has no active runtime", "job", id)
	} else {
		rt.resume()
	}
	o.logger.Info("job resumed", "job", id)
	return o.store.GetJob(ctx, id)
}

// Cancel terminally stops a running or paused job. The cancelled state is
// persisted before the engine is torn down so no post-cancel finding can be
// attributed to the job.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*job.Job, error) {
	if err := o.transition(ctx, id, job.StateCancelled, ""); err != nil {
		return nil, err
	}
	if rt := o.runtimeFor(id); rt != nil {
		rt.cancel()
		rt.resume()
	}
	o.logger.Info("job cancelled", "job", id)
	return o.store.GetJob(ctx, id)
}

// Delete stops the job if it is still live, waits for its engine to unwind,
// and removes the job record and all its findings.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if _, err := o.store.GetJob(ctx, id); err != nil {
		return err
	}

	if rt := o.runtimeFor(id); rt != nil {
		// Transition failures here just mean the job already reached a
		// terminal state on its own.
		_ = o.transition(ctx, id, job.StateCancelled, "")
		rt.cancel()
		rt.resume()
		select {
		case <-rt.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := o.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	o.logger.Info("job deleted", "job", id)
	return nil
}

// Get returns the job snapshot.
func (o *Orchestrator) Get(ctx context.Context, id string) (*job.Job, error) {
	return o.store.GetJob(ctx, id)
}

// List returns all jobs, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]*job.Job, error) {
	return o.store.ListJobs(ctx)
}

// Findings returns the job's findings in insertion order. Records that are
// not attributed to this job, carry the wrong kind for its engine, or (for
// directory jobs) target a different host than the job's base URL are
// excluded rather than failing the read, so one bad row cannot make a job's
// findings unreadable.
func (o *Orchestrator) Findings(ctx context.Context, id string) ([]*store.Finding, error) {
	j, err := o.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	fs, err := o.store.FindingsByJob(ctx, id)
	if err != nil {
		return nil, err
	}

	want := store.KindForType(j.Type)
	var wantHost string
	if j.Type == job.TypeDirs {
		var dc config.DirScan
		if err := decodeJobConfig(j.Config, &dc); err == nil {
			wantHost = dc.Host()
		}
	}

	out := fs[:0]
	for _, f := range fs {
		if f.JobID != id || f.Kind != want {
			o.logger.Warn("excluding finding with mismatched job or kind", "job", id, "finding", f.ID, "kind", f.Kind)
			continue
		}
		if wantHost != "" && f.Dir != nil {
			if u, uerr := url.Parse(f.Dir.URL); uerr != nil || !strings.EqualFold(u.Host, wantHost) {
				o.logger.Warn("excluding finding outside job host scope", "job", id, "finding", f.ID, "url", f.Dir.URL)
				continue
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// Healthy reports whether the store is reachable.
func (o *Orchestrator) Healthy(ctx context.Context) error {
	return o.store.Ping(ctx)
}

// Close cancels every live job and waits for the engines to unwind.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	rts := make([]*runtime, 0, len(o.runs))
	for _, rt := range o.runs {
		rts = append(rts, rt)
	}
	o.mu.Unlock()

	for _, rt := range rts {
		rt.cancel()
		rt.resume()
	}
	for _, rt := range rts {
		<-rt.done
	}
}

// decodeJobConfig rebuilds a typed config from the persisted job map.
func decodeJobConfig(m map[string]any, dst any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// jobSink attributes engine output to its job and persists it.
type jobSink struct {
	orch  *Orchestrator
	jobID string
	rt    *runtime
}

// Emit persists one finding. Once the job is cancelled no further findings
// are accepted, even from probes that were already in flight.
func (s *jobSink) Emit(ctx context.Context, f *store.Finding) error {
	if err := s.rt.ctx.Err(); err != nil {
		return err
	}
	f.JobID = s.jobID
	return s.orch.store.AppendFinding(ctx, f)
}

// Progress records completed/total as a percentage. The store ignores
// regressions and updates to terminal jobs.
func (s *jobSink) Progress(completed, total int) {
	if total <= 0 {
		return
	}
	pct := float64(completed) / float64(total) * 100
	if err := s.orch.store.UpdateJobProgress(s.rt.ctx, s.jobID, pct); err != nil {
		s.orch.logger.Debug("progress update failed", "job", s.jobID, "error", err)
	}
}
