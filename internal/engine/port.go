package engine

import (
	"context"
	"time"

	"github.com/nvalt/reconx/internal/config"
	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/probe"
	"github.com/nvalt/reconx/internal/store"
)

// PortEngine probes TCP ports across the expanded target list.
type PortEngine struct {
	// Probe performs one connect attempt. Tests substitute a fake.
	Probe func(ctx context.Context, host string, port int, timeout time.Duration) probe.PortResult
}

func NewPortEngine() *PortEngine {
	return &PortEngine{Probe: probe.ProbePort}
}

func (e *PortEngine) Type() job.Type { return job.TypePorts }

// Run probes every (target, port) pair. Unlike the other engines, every
// attempt produces a finding: closed and filtered ports are recorded too,
// so a port scan's finding count equals its work-item count.
func (e *PortEngine) Run(ctx context.Context, cfg map[string]any, sink Sink, gate Gate) error {
	var pc config.PortScan
	if err := decodeConfig(cfg, &pc); err != nil {
		return fatal(err)
	}
	if err := pc.Validate(); err != nil {
		return fatal(err)
	}

	n := len(pc.Targets) * len(pc.Ports)

	return forEach(ctx, pc.Concurrency, n, gate, sink, func(ctx context.Context, i int) error {
		target := pc.Targets[i/len(pc.Ports)]
		port := pc.Ports[i%len(pc.Ports)]

		res := e.Probe(ctx, target, port, pc.Timeout)
		if ctx.Err() != nil {
			return nil
		}

		f := &store.Finding{
			Kind: store.KindPort,
			Port: &store.PortData{
				Target: target,
				Port:   port,
				Status: res.Status,
				Banner: res.Banner,
			},
		}
		if err := sink.Emit(ctx, f); err != nil {
			return fatal(err)
		}
		return nil
	})
}
