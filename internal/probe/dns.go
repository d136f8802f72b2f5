// Package probe provides the stateless network primitives used by the scan
// engines: DNS resolution, TCP connect probing, and banner grabbing.
package probe

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
)

// ResolveFunc resolves a hostname to its A/AAAA addresses. A name that does
// not resolve returns an error or an empty slice; callers treat both as a
// silent miss.
type ResolveFunc func(ctx context.Context, name string) ([]string, error)

// NewResolver returns a ResolveFunc querying the given resolver addresses
// (IP or IP:port) with the per-request timeout. With no resolvers configured
// it falls back to the system resolver.
func NewResolver(servers []string, timeout time.Duration) ResolveFunc {
	if len(servers) == 0 {
		return systemResolver(timeout)
	}

	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		addrs = append(addrs, s)
	}

	client := &dns.Client{Timeout: timeout}

	return func(ctx context.Context, name string) ([]string, error) {
		var (
			ips     []string
			lastErr error
		)
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			msg := new(dns.Msg)
			msg.SetQuestion(dns.Fqdn(name), qtype)

			for _, addr := range addrs {
				in, _, err := client.ExchangeContext(ctx, msg, addr)
				if err != nil {
					lastErr = err
					continue
				}
				for _, rr := range in.Answer {
					switch a := rr.(type) {
					case *dns.A:
						ips = append(ips, a.A.String())
					case *dns.AAAA:
						ips = append(ips, a.AAAA.String())
					}
				}
				// First resolver that answered settles this qtype.
				break
			}
		}
		if len(ips) == 0 && lastErr != nil {
			return nil, lastErr
		}
		return dedupe(ips), nil
	}
}

func systemResolver(timeout time.Duration) ResolveFunc {
	return func(ctx context.Context, name string) ([]string, error) {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ips, err := net.DefaultResolver.LookupHost(rctx, name)
		if err != nil {
			return nil, err
		}
		return dedupe(ips), nil
	}
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	var out []string
	for _, s := range ss {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
