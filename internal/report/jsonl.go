package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvalt/reconx/internal/store"
)

// JSONLReporter writes one JSON object per line, one line per finding.
type JSONLReporter struct{}

// Format returns "jsonl".
func (r *JSONLReporter) Format() string {
	return "jsonl"
}

// Write streams findings as line-delimited JSON.
func (r *JSONLReporter) Write(ctx context.Context, kind store.Kind, findings []*store.Finding, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, f := range findings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Kind != kind {
			return fmt.Errorf("report: finding %s has kind %q, want %q", f.ID, f.Kind, kind)
		}
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("report: encoding finding: %w", err)
		}
	}
	return nil
}
