package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nvalt/reconx/internal/store"
)

// CSVReporter writes one row per finding with kind-specific columns.
type CSVReporter struct{}

// Format returns "csv".
func (r *CSVReporter) Format() string {
	return "csv"
}

// Column layouts per finding kind.
var csvHeaders = map[store.Kind][]string{
	store.KindSubdomain: {"subdomain", "resolved_ips", "first_seen", "last_seen"},
	store.KindPort:      {"target", "port", "status", "banner"},
	store.KindDir:       {"url", "status", "length", "title", "content_type", "redirected_to"},
}

// Write streams findings as CSV. The header row matches the kind; findings
// of a different kind are an error.
func (r *CSVReporter) Write(ctx context.Context, kind store.Kind, findings []*store.Finding, w io.Writer) error {
	header, ok := csvHeaders[kind]
	if !ok {
		return fmt.Errorf("report: unknown finding kind %q", kind)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: writing header: %w", err)
	}

	for _, f := range findings {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := csvRow(kind, f)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(kind store.Kind, f *store.Finding) ([]string, error) {
	if f.Kind != kind {
		return nil, fmt.Errorf("report: finding %s has kind %q, want %q", f.ID, f.Kind, kind)
	}

	switch kind {
	case store.KindSubdomain:
		d := f.Subdomain
		return []string{
			d.Subdomain,
			strings.Join(d.ResolvedIPs, ";"),
			d.FirstSeen.UTC().Format(time.RFC3339),
			d.LastSeen.UTC().Format(time.RFC3339),
		}, nil
	case store.KindPort:
		d := f.Port
		return []string{
			d.Target,
			strconv.Itoa(d.Port),
			d.Status,
			d.Banner,
		}, nil
	case store.KindDir:
		d := f.Dir
		return []string{
			d.URL,
			strconv.Itoa(d.Status),
			strconv.FormatInt(d.Length, 10),
			d.Title,
			d.ContentType,
			d.RedirectedTo,
		}, nil
	}
	return nil, fmt.Errorf("report: unknown finding kind %q", kind)
}
