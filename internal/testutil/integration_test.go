package testutil_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nvalt/reconx/internal/config"
	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/orchestrator"
	"github.com/nvalt/reconx/internal/store"
	"github.com/nvalt/reconx/internal/testutil"
)

// These tests wire the full pipeline -- orchestrator, engines, transport,
// store -- against live loopback fixtures. No fakes are injected.

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	o := orchestrator.New(st)
	t.Cleanup(o.Close)
	return o
}

func waitForTerminal(t *testing.T, o *orchestrator.Orchestrator, id string) *job.Job {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		j, err := o.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if j.State.Terminal() {
			return j
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", id)
	return nil
}

func dirFindingsByPath(fs []*store.Finding) map[string]*store.DirData {
	out := make(map[string]*store.DirData, len(fs))
	for _, f := range fs {
		u := f.Dir.URL
		out[u[strings.LastIndex(u, "/"):]] = f.Dir
	}
	return out
}

func TestDirScanDiscoversLiveSite(t *testing.T) {
	site := testutil.NewTargetSite(t)
	o := newTestOrchestrator(t)

	j, err := o.Create(context.Background(), &config.DirScan{
		BaseURL:       site.URL(),
		Authorized:    true,
		Wordlist:      []string{"login", "admin", "secret", "backup", "old", "missing"},
		Extensions:    []string{"zip"},
		StatusInclude: config.CommonStatusInclude,
		Concurrency:   4,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	final := waitForTerminal(t, o, j.ID)
	if final.State != job.StateCompleted {
		t.Fatalf("state = %s (error %q), want completed", final.State, final.Error)
	}
	if final.Progress != 100 {
		t.Errorf("progress = %v, want 100", final.Progress)
	}

	fs, err := o.Findings(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("failed to list findings: %v", err)
	}
	byPath := dirFindingsByPath(fs)

	login, ok := byPath["/login"]
	if !ok {
		t.Fatal("missing finding for /login")
	}
	if login.Status != 200 {
		t.Errorf("/login status = %d, want 200", login.Status)
	}
	if login.Title != "Sign In - Acme" {
		t.Errorf("/login title = %q", login.Title)
	}

	if admin, ok := byPath["/admin"]; !ok || admin.Status != 401 {
		t.Errorf("/admin finding = %+v, want status 401", admin)
	}
	if secret, ok := byPath["/secret"]; !ok || secret.Status != 403 {
		t.Errorf("/secret finding = %+v, want status 403", secret)
	}

	old, ok := byPath["/old"]
	if !ok {
		t.Fatal("missing finding for /old")
	}
	if old.Status != 301 || old.RedirectedTo != "/login" {
		t.Errorf("/old = status %d redirect %q, want 301 -> /login", old.Status, old.RedirectedTo)
	}

	// backup itself 404s; the zip extension variant exists.
	if _, ok := byPath["/backup"]; ok {
		t.Error("/backup should not be recorded")
	}
	if zip, ok := byPath["/backup.zip"]; !ok || zip.Status != 200 {
		t.Errorf("/backup.zip finding = %+v, want status 200", zip)
	}
	if zip := byPath["/backup.zip"]; zip != nil && zip.ContentType != "application/zip" {
		t.Errorf("/backup.zip content type = %q", zip.ContentType)
	}

	if _, ok := byPath["/missing"]; ok {
		t.Error("404 path should not be recorded")
	}
}

func TestDirScanSendsAuthHeader(t *testing.T) {
	site := testutil.NewTargetSite(t)
	o := newTestOrchestrator(t)

	j, err := o.Create(context.Background(), &config.DirScan{
		BaseURL:    site.URL(),
		Authorized: true,
		Wordlist:   []string{"admin"},
		AuthHeader: "Bearer sesame",
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	waitForTerminal(t, o, j.ID)

	fs, err := o.Findings(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("failed to list findings: %v", err)
	}
	if len(fs) != 1 {
		t.Fatalf("got %d findings, want 1", len(fs))
	}
	if fs[0].Dir.Status != 200 || fs[0].Dir.Title != "Admin Panel" {
		t.Errorf("finding = %+v, want 200 Admin Panel", fs[0].Dir)
	}
}

func TestDirScanRetriesServerErrors(t *testing.T) {
	site := testutil.NewTargetSite(t)
	site.SetFlakyFailures(2)
	o := newTestOrchestrator(t)

	j, err := o.Create(context.Background(), &config.DirScan{
		BaseURL:    site.URL(),
		Authorized: true,
		Wordlist:   []string{"status"},
		Retries:    3,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	final := waitForTerminal(t, o, j.ID)
	if final.State != job.StateCompleted {
		t.Fatalf("state = %s, want completed", final.State)
	}

	fs, err := o.Findings(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("failed to list findings: %v", err)
	}
	if len(fs) != 1 || fs[0].Dir.Status != 200 {
		t.Fatalf("findings = %+v, want one 200 for /status", fs)
	}
	if n := site.Requests(); n < 3 {
		t.Errorf("server saw %d requests, want >= 3 (two failures retried)", n)
	}
}

func TestPortScanFindsLiveService(t *testing.T) {
	svc := testutil.NewBannerService(t, "SSH-2.0-TestServer\r\n")
	o := newTestOrchestrator(t)

	j, err := o.Create(context.Background(), &config.PortScan{
		Targets:    []string{svc.Host()},
		Ports:      []int{svc.Port()},
		Authorized: true,
		Timeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	final := waitForTerminal(t, o, j.ID)
	if final.State != job.StateCompleted {
		t.Fatalf("state = %s, want completed", final.State)
	}

	fs, err := o.Findings(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("failed to list findings: %v", err)
	}
	if len(fs) != 1 {
		t.Fatalf("got %d findings, want 1", len(fs))
	}
	p := fs[0].Port
	if p.Status != store.PortOpen {
		t.Errorf("status = %q, want open", p.Status)
	}
	if !strings.HasPrefix(p.Banner, "SSH-2.0-TestServer") {
		t.Errorf("banner = %q", p.Banner)
	}
	if p.Target != svc.Host() {
		t.Errorf("target = %q, want %q", p.Target, svc.Host())
	}
}
