// Package report provides export formatters for job findings.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nvalt/reconx/internal/store"
)

// Reporter writes findings in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "csv", "jsonl").
	Format() string

	// Write streams the findings to w. All findings must share the kind;
	// the orchestrator guarantees that for per-job exports.
	Write(ctx context.Context, kind store.Kind, findings []*store.Finding, w io.Writer) error
}

// New creates a reporter by format name ("csv" or "jsonl").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "csv":
		return &CSVReporter{}, nil
	case "jsonl":
		return &JSONLReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}
