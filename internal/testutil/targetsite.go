// Package testutil provides test fixtures for exercising the recon engines
// against live local endpoints: a mock web site with discoverable and hidden
// paths, and a TCP service that speaks a banner.
//
// SECURITY NOTE: these fixtures bind to loopback only and exist so the
// scanners can be tested without touching any real network.
package testutil

import (
	"html/template"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// Page templates. Titles are what the directory engine extracts, so each
// page carries a distinct one.
var siteTemplates = template.Must(template.New("").Parse(`
{{define "index"}}<html><head><title>Acme Store</title></head><body><h1>Welcome</h1></body></html>{{end}}
{{define "login"}}<html><head><title>Sign In - Acme</title></head><body><form method="post"></form></body></html>{{end}}
{{define "admin"}}<html><head><title>Admin Panel</title></head><body><h1>Restricted</h1></body></html>{{end}}
{{define "api"}}{"status":"ok","version":"2.4.1"}{{end}}
{{define "notfound"}}<html><head><title>Not Found</title></head><body><h1>404</h1></body></html>{{end}}
`))

// TargetSite is a loopback web site with a handful of discoverable paths.
// The zero value is not usable: construct with NewTargetSite.
type TargetSite struct {
	Server *httptest.Server

	// flakyFailures is the number of 500 responses /status left to serve
	// before it starts answering 200. Lets retry behaviour be exercised
	// against a real server.
	flakyFailures atomic.Int64

	requests atomic.Int64
}

// NewTargetSite starts the site and registers cleanup with t.
//
// Paths served:
//
//	/            200  title "Acme Store"
//	/login       200  title "Sign In - Acme"
//	/admin       401  (requires Authorization header "Bearer sesame")
//	/api         200  application/json
//	/backup.zip  200  application/zip
//	/old         301  -> /login
//	/secret      403
//	/status      500 for each queued failure, then 200
//	anything else 404
func NewTargetSite(t *testing.T) *TargetSite {
	t.Helper()

	ts := &TargetSite{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ts.handleIndex)
	mux.HandleFunc("/login", ts.page("login", "text/html; charset=utf-8"))
	mux.HandleFunc("/admin", ts.handleAdmin)
	mux.HandleFunc("/api", ts.page("api", "application/json"))
	mux.HandleFunc("/backup.zip", ts.handleBackup)
	mux.HandleFunc("/old", ts.handleOld)
	mux.HandleFunc("/secret", ts.handleSecret)
	mux.HandleFunc("/status", ts.handleStatus)

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Server.Close)
	return ts
}

// URL returns the site's base URL.
func (ts *TargetSite) URL() string { return ts.Server.URL }

// Requests returns the total number of requests served so far.
func (ts *TargetSite) Requests() int64 { return ts.requests.Load() }

// SetFlakyFailures makes the next n requests to /status answer 500.
func (ts *TargetSite) SetFlakyFailures(n int64) { ts.flakyFailures.Store(n) }

func (ts *TargetSite) page(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		w.Header().Set("Content-Type", contentType)
		siteTemplates.ExecuteTemplate(w, name, nil) //nolint:errcheck
	}
}

func (ts *TargetSite) handleIndex(w http.ResponseWriter, r *http.Request) {
	ts.requests.Add(1)
	if r.URL.Path != "/" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		siteTemplates.ExecuteTemplate(w, "notfound", nil) //nolint:errcheck
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	siteTemplates.ExecuteTemplate(w, "index", nil) //nolint:errcheck
}

func (ts *TargetSite) handleAdmin(w http.ResponseWriter, r *http.Request) {
	ts.requests.Add(1)
	if r.Header.Get("Authorization") != "Bearer sesame" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	siteTemplates.ExecuteTemplate(w, "admin", nil) //nolint:errcheck
}

func (ts *TargetSite) handleBackup(w http.ResponseWriter, r *http.Request) {
	ts.requests.Add(1)
	w.Header().Set("Content-Type", "application/zip")
	w.Write([]byte("PK\x03\x04 not really a zip")) //nolint:errcheck
}

func (ts *TargetSite) handleOld(w http.ResponseWriter, r *http.Request) {
	ts.requests.Add(1)
	http.Redirect(w, r, "/login", http.StatusMovedPermanently)
}

func (ts *TargetSite) handleSecret(w http.ResponseWriter, r *http.Request) {
	ts.requests.Add(1)
	w.WriteHeader(http.StatusForbidden)
}

func (ts *TargetSite) handleStatus(w http.ResponseWriter, r *http.Request) {
	ts.requests.Add(1)
	if ts.flakyFailures.Load() > 0 {
		ts.flakyFailures.Add(-1)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte("ok")) //nolint:errcheck
}

// BannerService is a loopback TCP listener that writes a fixed banner to
// every connection, like an SSH or SMTP daemon would.
type BannerService struct {
	listener net.Listener
	banner   string
}

// NewBannerService starts a TCP listener on an ephemeral loopback port and
// registers cleanup with t. An empty banner makes the service accept and
// hold the connection silently.
func NewBannerService(t *testing.T, banner string) *BannerService {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	svc := &BannerService{listener: ln, banner: banner}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				if svc.banner != "" {
					c.Write([]byte(svc.banner)) //nolint:errcheck
				}
				// Hold the connection briefly so the probe's read
				// window sees either the banner or silence.
				time.Sleep(500 * time.Millisecond)
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return svc
}

// Addr returns the host:port the service listens on.
func (s *BannerService) Addr() string { return s.listener.Addr().String() }

// Host returns the listen host.
func (s *BannerService) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the listen port.
func (s *BannerService) Port() int {
	addr := s.listener.Addr().(*net.TCPAddr)
	return addr.Port
}
