package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nvalt/reconx/internal/config"
	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/probe"
	"github.com/nvalt/reconx/internal/store"
)

// SubdomainEngine enumerates subdomains by resolving wordlist candidates
// under the target domain.
type SubdomainEngine struct {
	// Words is the fallback wordlist when the job config carries none.
	Words []string

	// NewResolver builds the resolver for a run. Tests substitute a fake.
	NewResolver func(servers []string, timeout time.Duration) probe.ResolveFunc
}

func NewSubdomainEngine(words []string) *SubdomainEngine {
	return &SubdomainEngine{
		Words:       words,
		NewResolver: probe.NewResolver,
	}
}

func (e *SubdomainEngine) Type() job.Type { return job.TypeSubdomains }

// Run resolves every candidate name and emits a finding for each that
// resolves to at least one address. Lookup failures and NXDOMAIN answers are
// silent: they advance progress without producing findings. Candidates that
// only reproduce a wildcard DNS answer are dropped.
func (e *SubdomainEngine) Run(ctx context.Context, cfg map[string]any, sink Sink, gate Gate) error {
	var sc config.SubdomainScan
	if err := decodeConfig(cfg, &sc); err != nil {
		return fatal(err)
	}
	if err := sc.Validate(); err != nil {
		return fatal(err)
	}

	words := sc.Wordlist
	if len(words) == 0 {
		words = e.Words
	}
	if len(words) == 0 {
		return fatal(fmt.Errorf("no subdomain wordlist available"))
	}

	resolve := e.NewResolver(sc.Resolvers, sc.Timeout)
	wildcard := detectWildcard(ctx, resolve, sc.Domain)

	return forEach(ctx, sc.Concurrency, len(words), gate, sink, func(ctx context.Context, i int) error {
		name := words[i] + "." + sc.Domain
		ips, err := resolve(ctx, name)
		if err != nil || len(ips) == 0 {
			return nil
		}
		if wildcard.covers(ips) {
			return nil
		}

		now := time.Now().UTC()
		f := &store.Finding{
			Kind: store.KindSubdomain,
			Subdomain: &store.SubdomainData{
				Subdomain:   name,
				ResolvedIPs: ips,
				FirstSeen:   now,
				LastSeen:    now,
			},
		}
		if err := sink.Emit(ctx, f); err != nil {
			return fatal(err)
		}
		return nil
	})
}

// wildcardSet holds the addresses a wildcard DNS record answers with.
type wildcardSet map[string]struct{}

// detectWildcard resolves a random label that cannot exist under the domain.
// A non-empty answer means the zone has a wildcard record; its addresses are
// returned so matching candidates can be filtered out.
func detectWildcard(ctx context.Context, resolve probe.ResolveFunc, domain string) wildcardSet {
	label := strings.ReplaceAll(uuid.NewString(), "-", "")
	ips, err := resolve(ctx, label+"."+domain)
	if err != nil || len(ips) == 0 {
		return nil
	}
	set := make(wildcardSet, len(ips))
	for _, ip := range ips {
		set[ip] = struct{}{}
	}
	return set
}

// covers reports whether every address in ips came from the wildcard record.
// A candidate with at least one distinct address is a real subdomain.
func (w wildcardSet) covers(ips []string) bool {
	if len(w) == 0 {
		return false
	}
	for _, ip := range ips {
		if _, ok := w[ip]; !ok {
			return false
		}
	}
	return true
}
