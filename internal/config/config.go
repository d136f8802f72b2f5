// Package config defines the validated scan request configuration for each
// engine, including defaults, bounds, and input normalization.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/nvalt/reconx/internal/job"
)

// Defaults and bounds for scan configuration.
const (
	DefaultSubdomainConcurrency = 50
	DefaultSubdomainTimeout     = 10 * time.Second
	MaxConcurrency              = 1000

	DefaultPortTimeout     = 5 * time.Second
	DefaultPortConcurrency = 200

	DefaultDirTimeout     = 10 * time.Second
	DefaultDirConcurrency = 50
	DefaultDirRetries     = 1

	// maxExpandedTargets caps CIDR expansion so a typo'd prefix cannot
	// produce a practically unbounded work list.
	maxExpandedTargets = 4096
)

// DefaultPorts is the common-port set used when a port scan request does not
// specify ports explicitly.
var DefaultPorts = []int{22, 80, 443, 3389, 8080, 8443}

// CommonStatusInclude is the interesting-status set the CLI offers as its
// flag default. The library itself applies no filter: a directory scan with
// an empty status_include records every response it receives.
var CommonStatusInclude = []int{200, 204, 301, 302, 401, 403}

// ValidationError describes a malformed or unauthorized scan request. A
// request that fails validation never produces a job.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scan request: %s: %s", e.Field, e.Reason)
}

// ScanConfig is the validated configuration of one scan request.
type ScanConfig interface {
	// Type returns the job type this configuration drives.
	Type() job.Type

	// Validate checks required fields, applies defaults and bounds, and
	// returns a *ValidationError on malformed or unauthorized input.
	Validate() error

	// Map returns the configuration as a generic key-value mapping, the
	// form persisted on the job record and exposed to callers.
	Map() map[string]any
}

// SubdomainScan configures a subdomain enumeration job.
type SubdomainScan struct {
	Domain      string        `json:"domain"`
	Authorized  bool          `json:"authorized"`
	Concurrency int           `json:"concurrency"`
	Timeout     time.Duration `json:"timeout"`
	Resolvers   []string      `json:"resolvers,omitempty"`
	Wordlist    []string      `json:"wordlist,omitempty"`
}

func (c *SubdomainScan) Type() job.Type { return job.TypeSubdomains }

func (c *SubdomainScan) Validate() error {
	if !c.Authorized {
		return &ValidationError{Field: "authorized", Reason: "authorization confirmation is required"}
	}
	c.Domain = normalizeDomain(c.Domain)
	if c.Domain == "" {
		return &ValidationError{Field: "domain", Reason: "domain is required"}
	}
	if !validDomain(c.Domain) {
		return &ValidationError{Field: "domain", Reason: fmt.Sprintf("%q is not a parseable domain", c.Domain)}
	}
	for _, r := range c.Resolvers {
		if !validResolverAddr(r) {
			return &ValidationError{Field: "resolvers", Reason: fmt.Sprintf("%q is not an IP address", r)}
		}
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultSubdomainConcurrency
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return &ValidationError{Field: "concurrency", Reason: fmt.Sprintf("must be in [1,%d]", MaxConcurrency)}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultSubdomainTimeout
	}
	c.Wordlist = NormalizeWords(c.Wordlist)
	return nil
}

func (c *SubdomainScan) Map() map[string]any { return toMap(c) }

// PortScan configures a TCP port probe job. Targets accepts hosts, IPs, and
// CIDR blocks; Validate expands CIDR blocks into individual addresses.
type PortScan struct {
	Targets     []string      `json:"targets"`
	Authorized  bool          `json:"authorized"`
	Ports       []int         `json:"ports,omitempty"`
	Timeout     time.Duration `json:"timeout"`
	Concurrency int           `json:"concurrency"`
}

func (c *PortScan) Type() job.Type { return job.TypePorts }

func (c *PortScan) Validate() error {
	if !c.Authorized {
		return &ValidationError{Field: "authorized", Reason: "authorization confirmation is required"}
	}
	c.Targets = NormalizeWords(c.Targets)
	if len(c.Targets) == 0 {
		return &ValidationError{Field: "targets", Reason: "at least one target is required"}
	}
	expanded, err := ExpandTargets(c.Targets)
	if err != nil {
		return &ValidationError{Field: "targets", Reason: err.Error()}
	}
	c.Targets = expanded
	if len(c.Ports) == 0 {
		c.Ports = append([]int(nil), DefaultPorts...)
	}
	for _, p := range c.Ports {
		if p < 1 || p > 65535 {
			return &ValidationError{Field: "ports", Reason: fmt.Sprintf("port %d out of range", p)}
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultPortTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultPortConcurrency
	}
	if c.Concurrency > MaxConcurrency {
		c.Concurrency = MaxConcurrency
	}
	return nil
}

func (c *PortScan) Map() map[string]any { return toMap(c) }

// DirScan configures an HTTP directory brute-force job.
type DirScan struct {
	BaseURL       string        `json:"base_url"`
	Authorized    bool          `json:"authorized"`
	Extensions    []string      `json:"extensions,omitempty"`
	Wordlist      []string      `json:"wordlist,omitempty"`
	StatusInclude []int         `json:"status_include,omitempty"`
	AuthHeader    string        `json:"auth_header,omitempty"`
	Proxy         string        `json:"proxy,omitempty"`
	Timeout       time.Duration `json:"timeout"`
	Retries       int           `json:"retries"`
	QPSPerHost    float64       `json:"qps_per_host,omitempty"`
	Concurrency   int           `json:"concurrency"`
}

func (c *DirScan) Type() job.Type { return job.TypeDirs }

func (c *DirScan) Validate() error {
	if !c.Authorized {
		return &ValidationError{Field: "authorized", Reason: "authorization confirmation is required"}
	}
	if c.BaseURL == "" {
		return &ValidationError{Field: "base_url", Reason: "base URL is required"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "base_url", Reason: fmt.Sprintf("%q is not an absolute URL", c.BaseURL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "base_url", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if c.Proxy != "" {
		if pu, perr := url.Parse(c.Proxy); perr != nil || pu.Scheme == "" || pu.Host == "" {
			return &ValidationError{Field: "proxy", Reason: fmt.Sprintf("%q is not a proxy URL", c.Proxy)}
		}
	}
	c.Wordlist = NormalizeWords(c.Wordlist)
	c.Extensions = NormalizeExtensions(c.Extensions)
	for _, s := range c.StatusInclude {
		if s < 100 || s > 599 {
			return &ValidationError{Field: "status_include", Reason: fmt.Sprintf("status %d out of range", s)}
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultDirTimeout
	}
	if c.Retries < 0 {
		return &ValidationError{Field: "retries", Reason: "must be >= 0"}
	}
	if c.Retries == 0 {
		c.Retries = DefaultDirRetries
	}
	if c.QPSPerHost < 0 {
		return &ValidationError{Field: "qps_per_host", Reason: "must be >= 0"}
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultDirConcurrency
	}
	if c.Concurrency > MaxConcurrency {
		c.Concurrency = MaxConcurrency
	}
	return nil
}

func (c *DirScan) Map() map[string]any { return toMap(c) }

// Host returns the lowercased host component of the base URL. Callers must
// only use it after Validate has succeeded.
func (c *DirScan) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Host)
}

// toMap converts a config struct to a generic map via a JSON round trip.
func toMap(c any) map[string]any {
	var m map[string]any
	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	_ = json.Unmarshal(b, &m)
	return m
}
