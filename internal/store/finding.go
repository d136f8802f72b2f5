// Package store persists jobs and the append-only findings ledger.
package store

import (
	"fmt"
	"time"

	"github.com/nvalt/reconx/internal/job"
)

// Kind discriminates the three finding payload shapes.
type Kind string

const (
	KindSubdomain Kind = "subdomain"
	KindPort      Kind = "port"
	KindDir       Kind = "dir"
)

// KindForType maps a job type to the finding kind its engine produces.
func KindForType(t job.Type) Kind {
	switch t {
	case job.TypeSubdomains:
		return KindSubdomain
	case job.TypePorts:
		return KindPort
	case job.TypeDirs:
		return KindDir
	}
	return ""
}

// SubdomainData is the payload of a resolved-subdomain finding.
type SubdomainData struct {
	Subdomain   string    `json:"subdomain"`
	ResolvedIPs []string  `json:"resolved_ips"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Port probe outcomes.
const (
	PortOpen     = "open"
	PortClosed   = "closed"
	PortFiltered = "filtered"
)

// PortData is the payload of a port probe finding. Every probe attempt
// produces exactly one of these.
type PortData struct {
	Target string `json:"target"`
	Port   int    `json:"port"`
	Status string `json:"status"`
	Banner string `json:"banner,omitempty"`
}

// DirData is the payload of a directory brute-force finding.
type DirData struct {
	URL          string `json:"url"`
	Status       int    `json:"status"`
	Length       int64  `json:"length,omitempty"`
	Title        string `json:"title,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	RedirectedTo string `json:"redirected_to,omitempty"`
}

// Finding is one discovered fact attributed to a job. Exactly one payload
// field matching Kind is set; the store interprets only the discriminant and
// the uniqueness key, never the full payload.
type Finding struct {
	ID        string         `json:"id"`
	JobID     string         `json:"job_id"`
	Kind      Kind           `json:"kind"`
	Subdomain *SubdomainData `json:"subdomain_data,omitempty"`
	Port      *PortData      `json:"port_data,omitempty"`
	Dir       *DirData       `json:"dir_data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Key returns the engine-specific uniqueness key within the finding's job.
// Upserts for the same (job, key) pair update the existing record.
func (f *Finding) Key() (string, error) {
	switch f.Kind {
	case KindSubdomain:
		if f.Subdomain == nil || f.Subdomain.Subdomain == "" {
			return "", fmt.Errorf("subdomain finding without payload")
		}
		return f.Subdomain.Subdomain, nil
	case KindPort:
		if f.Port == nil || f.Port.Target == "" {
			return "", fmt.Errorf("port finding without payload")
		}
		return fmt.Sprintf("%s:%d", f.Port.Target, f.Port.Port), nil
	case KindDir:
		if f.Dir == nil || f.Dir.URL == "" {
			return "", fmt.Errorf("dir finding without payload")
		}
		return f.Dir.URL, nil
	}
	return "", fmt.Errorf("unknown finding kind %q", f.Kind)
}
