package orchestrator

import (
	"context"
	"sync"
)

// runtime tracks the live execution of one job: its cancellation scope and
// its pause gate. Engines block in Wait while the job is paused.
type runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

func newRuntime() *runtime {
	ctx, cancel := context.WithCancel(context.Background())
	return &runtime{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Wait blocks while the job is paused. It returns the context error once the
// job is cancelled, whether or not it was paused at the time.
func (r *runtime) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if !r.paused {
			r.mu.Unlock()
			return ctx.Err()
		}
		ch := r.resumeCh
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// pause closes the gate. In-flight work items finish; workers park before
// taking the next one.
func (r *runtime) pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paused {
		r.paused = true
		r.resumeCh = make(chan struct{})
	}
}

// resume reopens the gate and releases every parked worker.
func (r *runtime) resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		r.paused = false
		close(r.resumeCh)
	}
}
