// Package engine provides the scan engines: subdomain enumeration, TCP port
// probing, and HTTP directory brute-forcing. Engines are pure workers; job
// lifecycle, persistence, and pause/resume live with the caller, reached
// through the Sink and Gate interfaces.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/store"
)

// Sink receives engine output. Emit persists one finding; Progress reports
// completed work items out of the total. Both must be safe for concurrent
// use.
type Sink interface {
	Emit(ctx context.Context, f *store.Finding) error
	Progress(completed, total int)
}

// Gate is the pause point engines pass through before each work item. Wait
// blocks while the job is paused and returns the context error once the job
// is cancelled.
type Gate interface {
	Wait(ctx context.Context) error
}

// Engine runs one scan job to completion. Run returns nil when the work list
// is exhausted (however few findings that produced), ctx.Err() on
// cancellation, and a FatalError when the engine cannot continue.
type Engine interface {
	Type() job.Type
	Run(ctx context.Context, cfg map[string]any, sink Sink, gate Gate) error
}

// FatalError marks an engine failure that should fail the whole job, as
// opposed to per-item probe failures which are swallowed and only reduce the
// finding count.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("engine: fatal: %v", e.Err) }

func (e *FatalError) Unwrap() error { return e.Err }

// fatal wraps err as a FatalError.
func fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err is or wraps a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// decodeConfig rebuilds a typed scan config from the generic map persisted
// on the job record.
func decodeConfig(m map[string]any, dst any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("engine: encoding config: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("engine: decoding config: %w", err)
	}
	return nil
}

// NopGate never pauses. Used where no pause control exists.
type NopGate struct{}

func (NopGate) Wait(ctx context.Context) error { return ctx.Err() }
