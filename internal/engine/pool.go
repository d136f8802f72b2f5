package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// forEach runs fn over indices [0,n) with the given number of workers. Every
// worker waits at the gate before taking an item, so a paused job quiesces
// within one in-flight item per worker. Progress is reported to the sink
// after each completed item.
//
// fn returning a non-nil error is treated as fatal: remaining work is
// abandoned and the first such error is returned. Per-item probe failures
// must be handled inside fn.
func forEach(ctx context.Context, workers, n int, gate Gate, sink Sink, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make(chan int)
	var (
		wg        sync.WaitGroup
		completed atomic.Int64
		once      sync.Once
		fatalErr  error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range items {
				if err := gate.Wait(ctx); err != nil {
					return
				}
				if err := fn(ctx, i); err != nil {
					once.Do(func() {
						fatalErr = err
						cancel()
					})
					return
				}
				sink.Progress(int(completed.Add(1)), n)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case items <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(items)
	wg.Wait()

	if fatalErr != nil {
		return fatalErr
	}
	return ctx.Err()
}
