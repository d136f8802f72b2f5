package engine

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter throttles probe traffic per destination host. A QPS of zero or
// less disables throttling entirely.
type hostLimiter struct {
	qps      float64
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newHostLimiter(qps float64) *hostLimiter {
	return &hostLimiter{
		qps:      qps,
		limiters: make(map[string]*rate.Limiter),
	}
}

// wait blocks until the host's limiter grants a slot or ctx is done.
func (h *hostLimiter) wait(ctx context.Context, host string) error {
	if h.qps <= 0 {
		return ctx.Err()
	}

	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(h.qps), 1)
		h.limiters[host] = lim
	}
	h.mu.Unlock()

	return lim.Wait(ctx)
}
