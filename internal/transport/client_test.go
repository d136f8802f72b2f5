package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Helper: create a default test client
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T) *DefaultClient {
	t.Helper()
	c, err := NewClient(ClientOptions{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Basic GET
// ---------------------------------------------------------------------------

func TestBasicGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "hello world")
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), &Request{
		URL: srv.URL + "/test",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello world" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello world")
	}
}

// ---------------------------------------------------------------------------
// User-Agent and Authorization headers
// ---------------------------------------------------------------------------

func TestDefaultHeaders(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOptions{
		Timeout:    5 * time.Second,
		AuthHeader: "Bearer tok123",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Do(context.Background(), &Request{URL: srv.URL}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotUA != UserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, UserAgent)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
}

func TestCustomHeaderOverride(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, err := c.Do(context.Background(), &Request{
		URL:     srv.URL,
		Headers: map[string]string{"X-Custom": "test-value"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "test-value" {
		t.Errorf("X-Custom header = %q, want %q", got, "test-value")
	}
}

// ---------------------------------------------------------------------------
// Redirects are never followed
// ---------------------------------------------------------------------------

func TestRedirectNotFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		fmt.Fprint(w, "final page")
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), &Request{
		URL: srv.URL + "/redirect",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Errorf("StatusCode = %d, want 302", resp.StatusCode)
	}
	if !strings.HasSuffix(resp.Location(), "/final") {
		t.Errorf("Location() = %q, want suffix /final", resp.Location())
	}
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func TestResponseTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple", "<html><head><title>Admin Panel</title></head></html>", "Admin Panel"},
		{"whitespace collapsed", "<title>\n  Login\n  Page\n</title>", "Login Page"},
		{"case insensitive", "<TITLE>Index</TITLE>", "Index"},
		{"attributes", `<title data-x="1">Home</title>`, "Home"},
		{"missing", "<html><body>no title</body></html>", ""},
		{"truncated", "<title>" + strings.Repeat("a", 200) + "</title>", strings.Repeat("a", 120)},
		// The cut must not split a multi-byte rune: the é straddles the
		// 120-byte cap, so the whole rune is dropped.
		{"truncated at rune boundary", "<title>" + strings.Repeat("a", 119) + "ééé</title>", strings.Repeat("a", 119)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{Body: []byte(tt.body)}
			if got := r.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseContentType(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	r := &Response{Headers: h}
	if got := r.ContentType(); got != "text/html" {
		t.Errorf("ContentType() = %q, want %q", got, "text/html")
	}
}

func TestResponseLength(t *testing.T) {
	r := &Response{ContentLength: 42, Body: []byte("abc")}
	if got := r.Length(); got != 42 {
		t.Errorf("Length() = %d, want 42", got)
	}
	r = &Response{ContentLength: -1, Body: []byte("abc")}
	if got := r.Length(); got != 3 {
		t.Errorf("Length() = %d, want 3 (fallback to body)", got)
	}
}

func TestResponseLocationNon3xx(t *testing.T) {
	h := http.Header{}
	h.Set("Location", "/elsewhere")
	r := &Response{StatusCode: 200, Headers: h}
	if got := r.Location(); got != "" {
		t.Errorf("Location() = %q, want empty for non-3xx", got)
	}
}

// ---------------------------------------------------------------------------
// Response timing measurement
// ---------------------------------------------------------------------------

func TestResponseTimingMeasurement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Duration < 40*time.Millisecond {
		t.Errorf("Duration = %v, expected at least ~50ms", resp.Duration)
	}
}

// ---------------------------------------------------------------------------
// Timeout handling
// ---------------------------------------------------------------------------

func TestTimeoutHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientOptions{Timeout: 100 * time.Millisecond})
	_, err := c.Do(context.Background(), &Request{URL: srv.URL})
	if err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestPerRequestTimeoutOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Client has 5s timeout, but per-request overrides to 100ms.
	c, _ := NewClient(ClientOptions{Timeout: 5 * time.Second})
	_, err := c.Do(context.Background(), &Request{
		URL:     srv.URL,
		Timeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Error("expected timeout error from per-request override, got nil")
	}
}

// ---------------------------------------------------------------------------
// Proxy configuration
// ---------------------------------------------------------------------------

func TestInvalidProxyURL(t *testing.T) {
	_, err := NewClient(ClientOptions{ProxyURL: "://bad-url"})
	if err == nil {
		t.Error("NewClient with invalid proxy URL should return error")
	}
}

// ---------------------------------------------------------------------------
// Status code handling
// ---------------------------------------------------------------------------

func TestStatusCodeHandling(t *testing.T) {
	codes := []int{200, 302, 403, 404, 500}
	for _, code := range codes {
		code := code
		t.Run(fmt.Sprintf("status_%d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			c := newTestClient(t)
			resp, err := c.Do(context.Background(), &Request{URL: srv.URL})
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if resp.StatusCode != code {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TLS InsecureSkipVerify
// ---------------------------------------------------------------------------

func TestTLSInsecureSkipVerifyWithHTTPS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secure")
	}))
	defer srv.Close()

	// Without InsecureSkipVerify, connection to self-signed cert should fail
	cStrict, _ := NewClient(ClientOptions{Timeout: 5 * time.Second})
	_, err := cStrict.Do(context.Background(), &Request{URL: srv.URL})
	if err == nil {
		t.Error("expected TLS error with strict verification, got nil")
	}

	// With InsecureSkipVerify, it should succeed
	cInsecure, _ := NewClient(ClientOptions{
		Timeout:            5 * time.Second,
		InsecureSkipVerify: true,
	})
	resp, err := cInsecure.Do(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do with InsecureSkipVerify: %v", err)
	}
	if string(resp.Body) != "secure" {
		t.Errorf("Body = %q, want %q", resp.Body, "secure")
	}
}

// ---------------------------------------------------------------------------
// Context cancellation
// ---------------------------------------------------------------------------

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := c.Do(ctx, &Request{URL: srv.URL})
	if err == nil {
		t.Error("expected context cancellation error, got nil")
	}
}
