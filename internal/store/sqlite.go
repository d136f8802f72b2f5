package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nvalt/reconx/internal/job"
)

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// timeFormat is RFC3339 with fixed-width nanoseconds: all stored times are
// UTC, so the encoded strings compare lexicographically in SQL.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// NewSQLiteStore opens (creating if needed) a SQLite-backed store.
// dbPath is the path to the database file; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:"
	// databases shared across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			state       TEXT NOT NULL,
			progress    REAL NOT NULL DEFAULT 0,
			config_json TEXT NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS findings (
			id         TEXT PRIMARY KEY,
			job_id     TEXT NOT NULL,
			kind       TEXT NOT NULL,
			key        TEXT NOT NULL,
			data_json  TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (job_id, key)
		);

		CREATE INDEX IF NOT EXISTS idx_findings_job ON findings(job_id);
		CREATE INDEX IF NOT EXISTS idx_findings_updated ON findings(updated_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CreateJob persists a new job record.
func (s *SQLiteStore) CreateJob(ctx context.Context, j *job.Job) error {
	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return fmt.Errorf("store: marshal job config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, type, state, progress, config_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Type), string(j.State), j.Progress, string(cfg), j.Error,
		j.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("store: create job: %w", err)
	}
	return nil
}

// UpdateJobState sets the job's state and error message.
func (s *SQLiteStore) UpdateJobState(ctx context.Context, id string, state job.State, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, error = ? WHERE id = ?`,
		string(state), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("store: update job state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return job.ErrNotFound
	}
	return nil
}

// UpdateJobProgress raises the job's progress. The WHERE clause enforces
// monotonicity and freezes progress once the job is terminal.
func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, id string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress = ?
		 WHERE id = ? AND progress <= ?
		   AND state NOT IN ('completed', 'cancelled', 'failed')`,
		progress, id, progress,
	)
	if err != nil {
		return fmt.Errorf("store: update job progress: %w", err)
	}
	return nil
}

// GetJob returns the job with the given id.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, state, progress, config_json, error, created_at
		 FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, job.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns all jobs, most recently created first.
func (s *SQLiteStore) ListJobs(ctx context.Context) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, state, progress, config_json, error, created_at
		 FROM jobs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate jobs: %w", err)
	}
	return jobs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*job.Job, error) {
	var (
		j         job.Job
		typ       string
		state     string
		cfgJSON   string
		createdAt string
	)
	if err := r.Scan(&j.ID, &typ, &state, &j.Progress, &cfgJSON, &j.Error, &createdAt); err != nil {
		return nil, err
	}
	j.Type = job.Type(typ)
	j.State = job.State(state)
	if err := json.Unmarshal([]byte(cfgJSON), &j.Config); err != nil {
		return nil, fmt.Errorf("unmarshal job config: %w", err)
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	j.CreatedAt = t
	return &j, nil
}

// DeleteJob removes a job and cascades deletion of its findings.
func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return job.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete findings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit delete: %w", err)
	}
	return nil
}

// AppendFinding upserts a finding keyed by (job_id, key). The read-merge-write
// runs inside one transaction, so concurrent upserts to the same key are
// serialized and readers never observe a torn record.
func (s *SQLiteStore) AppendFinding(ctx context.Context, f *Finding) error {
	key, err := f.Key()
	if err != nil {
		return fmt.Errorf("store: append finding: %w", err)
	}

	now := time.Now().UTC()
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = now
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin append: %w", err)
	}
	defer tx.Rollback()

	var (
		existingID   string
		existingJSON string
		existingAt   string
	)
	row := tx.QueryRowContext(ctx,
		`SELECT id, data_json, created_at FROM findings WHERE job_id = ? AND key = ?`,
		f.JobID, key)
	switch err := row.Scan(&existingID, &existingJSON, &existingAt); err {
	case nil:
		f.ID = existingID
		created, perr := time.Parse(timeFormat, existingAt)
		if perr == nil {
			f.CreatedAt = created
		}
		if f.Kind == KindSubdomain {
			if merr := mergeSubdomain(f, existingJSON); merr != nil {
				return fmt.Errorf("store: merge subdomain finding: %w", merr)
			}
		}
	case sql.ErrNoRows:
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
	default:
		return fmt.Errorf("store: lookup finding: %w", err)
	}

	data, err := marshalPayload(f)
	if err != nil {
		return fmt.Errorf("store: marshal finding: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO findings (id, job_id, kind, key, data_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id, key) DO UPDATE SET
			data_json  = excluded.data_json,
			updated_at = excluded.updated_at`,
		f.ID, f.JobID, string(f.Kind), key, string(data),
		f.CreatedAt.UTC().Format(timeFormat),
		f.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("store: upsert finding: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit append: %w", err)
	}
	return nil
}

// mergeSubdomain folds a previously stored subdomain payload into f: the
// original first_seen is kept and resolved IPs are unioned, preserving order
// of first observation.
func mergeSubdomain(f *Finding, existingJSON string) error {
	var prev SubdomainData
	if err := json.Unmarshal([]byte(existingJSON), &prev); err != nil {
		return err
	}
	if !prev.FirstSeen.IsZero() {
		f.Subdomain.FirstSeen = prev.FirstSeen
	}
	seen := make(map[string]bool, len(prev.ResolvedIPs))
	merged := make([]string, 0, len(prev.ResolvedIPs)+len(f.Subdomain.ResolvedIPs))
	for _, ip := range prev.ResolvedIPs {
		if !seen[ip] {
			seen[ip] = true
			merged = append(merged, ip)
		}
	}
	for _, ip := range f.Subdomain.ResolvedIPs {
		if !seen[ip] {
			seen[ip] = true
			merged = append(merged, ip)
		}
	}
	f.Subdomain.ResolvedIPs = merged
	return nil
}

func marshalPayload(f *Finding) ([]byte, error) {
	switch f.Kind {
	case KindSubdomain:
		return json.Marshal(f.Subdomain)
	case KindPort:
		return json.Marshal(f.Port)
	case KindDir:
		return json.Marshal(f.Dir)
	}
	return nil, fmt.Errorf("unknown finding kind %q", f.Kind)
}

// FindingsByJob returns the job's findings in insertion order. Upserted rows
// keep their original position.
func (s *SQLiteStore) FindingsByJob(ctx context.Context, jobID string) ([]*Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, kind, data_json, created_at, updated_at
		 FROM findings WHERE job_id = ? ORDER BY rowid ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: query findings: %w", err)
	}
	defer rows.Close()

	var findings []*Finding
	for rows.Next() {
		var (
			f         Finding
			kind      string
			dataJSON  string
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&f.ID, &f.JobID, &kind, &dataJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan finding row: %w", err)
		}
		f.Kind = Kind(kind)
		if err := unmarshalPayload(&f, dataJSON); err != nil {
			return nil, fmt.Errorf("store: unmarshal finding: %w", err)
		}
		if t, err := time.Parse(timeFormat, createdAt); err == nil {
			f.CreatedAt = t
		}
		if t, err := time.Parse(timeFormat, updatedAt); err == nil {
			f.UpdatedAt = t
		}
		findings = append(findings, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate findings: %w", err)
	}
	return findings, nil
}

func unmarshalPayload(f *Finding, dataJSON string) error {
	switch f.Kind {
	case KindSubdomain:
		f.Subdomain = &SubdomainData{}
		return json.Unmarshal([]byte(dataJSON), f.Subdomain)
	case KindPort:
		f.Port = &PortData{}
		return json.Unmarshal([]byte(dataJSON), f.Port)
	case KindDir:
		f.Dir = &DirData{}
		return json.Unmarshal([]byte(dataJSON), f.Dir)
	}
	return fmt.Errorf("unknown finding kind %q", f.Kind)
}

// CountFindings returns the total number of stored findings.
func (s *SQLiteStore) CountFindings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count findings: %w", err)
	}
	return n, nil
}

// CountFindingsSince counts findings written (inserted or updated) at or
// after t.
func (s *SQLiteStore) CountFindingsSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM findings WHERE updated_at >= ?`,
		t.UTC().Format(timeFormat)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count findings since: %w", err)
	}
	return n, nil
}

// CountJobs returns total, completed, and failed job counts.
func (s *SQLiteStore) CountJobs(ctx context.Context) (total, completed, failed int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN state = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = 'failed' THEN 1 ELSE 0 END), 0)
		 FROM jobs`).Scan(&total, &completed, &failed)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("store: count jobs: %w", err)
	}
	return total, completed, failed, nil
}

// Ping reports backend reachability.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
