package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nvalt/reconx/internal/config"
	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/store"
	"github.com/nvalt/reconx/internal/transport"
)

// retryBaseDelay and retryMaxDelay bound the exponential backoff between
// attempts on the same URL.
const (
	retryBaseDelay = 250 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// DirEngine brute-forces paths under a base URL.
type DirEngine struct {
	// Words is the fallback wordlist when the job config carries none.
	Words []string

	// NewClient builds the HTTP client for a run. Tests substitute a fake.
	NewClient func(opts transport.ClientOptions) (transport.Client, error)
}

func NewDirEngine(words []string) *DirEngine {
	return &DirEngine{
		Words: words,
		NewClient: func(opts transport.ClientOptions) (transport.Client, error) {
			return transport.NewClient(opts)
		},
	}
}

func (e *DirEngine) Type() job.Type { return job.TypeDirs }

// Run requests every candidate URL and emits a finding for each response
// whose status is in the configured include set; with no include set
// configured every response becomes a finding. Transport failures and
// 429/5xx responses are retried with backoff; a URL that never yields a
// response is silent and only advances progress. Per-host request pacing
// applies across all workers.
func (e *DirEngine) Run(ctx context.Context, cfg map[string]any, sink Sink, gate Gate) error {
	var dc config.DirScan
	if err := decodeConfig(cfg, &dc); err != nil {
		return fatal(err)
	}
	if err := dc.Validate(); err != nil {
		return fatal(err)
	}

	words := dc.Wordlist
	if len(words) == 0 {
		words = e.Words
	}
	if len(words) == 0 {
		return fatal(fmt.Errorf("no directory wordlist available"))
	}

	client, err := e.NewClient(transport.ClientOptions{
		Timeout:    dc.Timeout,
		ProxyURL:   dc.Proxy,
		AuthHeader: dc.AuthHeader,
	})
	if err != nil {
		return fatal(err)
	}

	urls := expandURLs(dc.BaseURL, words, dc.Extensions)

	// An empty include set means no filter: every response is recorded.
	include := make(map[int]struct{}, len(dc.StatusInclude))
	for _, s := range dc.StatusInclude {
		include[s] = struct{}{}
	}

	host := dc.Host()
	limiter := newHostLimiter(dc.QPSPerHost)
	attempts := dc.Retries + 1

	return forEach(ctx, dc.Concurrency, len(urls), gate, sink, func(ctx context.Context, i int) error {
		resp := fetchWithRetry(ctx, client, limiter, host, urls[i], attempts)
		if resp == nil {
			return nil
		}
		if len(include) > 0 {
			if _, ok := include[resp.StatusCode]; !ok {
				return nil
			}
		}

		f := &store.Finding{
			Kind: store.KindDir,
			Dir: &store.DirData{
				URL:          urls[i],
				Status:       resp.StatusCode,
				Length:       resp.Length(),
				Title:        resp.Title(),
				ContentType:  resp.ContentType(),
				RedirectedTo: resp.Location(),
			},
		}
		if err := sink.Emit(ctx, f); err != nil {
			return fatal(err)
		}
		return nil
	})
}

// fetchWithRetry requests url up to attempts times, backing off between
// tries. Retries fire on transport errors, 429, and 5xx. Returns nil when
// no usable response was obtained.
func fetchWithRetry(ctx context.Context, client transport.Client, limiter *hostLimiter, host, url string, attempts int) *transport.Response {
	var resp *transport.Response
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, backoff(attempt)) {
				return nil
			}
		}
		if err := limiter.wait(ctx, host); err != nil {
			return nil
		}

		r, err := client.Do(ctx, &transport.Request{URL: url})
		if err != nil {
			continue
		}
		resp = r
		if r.StatusCode != 429 && r.StatusCode < 500 {
			break
		}
	}
	return resp
}

// backoff returns the delay before the given retry attempt (attempt >= 1).
func backoff(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}

// sleepCtx sleeps for d, returning false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// expandURLs builds the candidate URL list: each word as-is, plus each word
// with each extension appended.
func expandURLs(baseURL string, words, exts []string) []string {
	base := strings.TrimRight(baseURL, "/")
	urls := make([]string, 0, len(words)*(1+len(exts)))
	for _, w := range words {
		w = strings.TrimLeft(w, "/")
		urls = append(urls, base+"/"+w)
		for _, ext := range exts {
			urls = append(urls, base+"/"+w+"."+ext)
		}
	}
	return urls
}
