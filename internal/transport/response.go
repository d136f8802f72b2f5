package transport

import (
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Response represents an HTTP response received from the transport client.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers contains the response headers.
	Headers http.Header

	// Body is the raw response body, bounded by maxBodyRead.
	Body []byte

	// ContentLength is the content length from the response header,
	// or -1 when the server did not declare one.
	ContentLength int64

	// Duration is the precise round-trip time for the request.
	Duration time.Duration

	// URL is the URL the response came from.
	URL string
}

// maxTitleLen caps extracted page titles.
const maxTitleLen = 120

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Length returns the response size in bytes, preferring the declared
// Content-Length and falling back to the bytes actually read.
func (r *Response) Length() int64 {
	if r.ContentLength >= 0 {
		return r.ContentLength
	}
	return int64(len(r.Body))
}

// Title extracts the page title from an HTML body. Whitespace is
// collapsed and the result is truncated to maxTitleLen. Returns ""
// when no title element is present.
func (r *Response) Title() string {
	m := titleRe.FindSubmatch(r.Body)
	if m == nil {
		return ""
	}
	title := strings.Join(strings.Fields(string(m[1])), " ")
	if len(title) > maxTitleLen {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := maxTitleLen
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut]
	}
	return title
}

// ContentType returns the Content-Type header without parameters.
func (r *Response) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// Location returns the redirect target for 3xx responses, "" otherwise.
func (r *Response) Location() string {
	if r.StatusCode < 300 || r.StatusCode > 399 {
		return ""
	}
	return r.Headers.Get("Location")
}
