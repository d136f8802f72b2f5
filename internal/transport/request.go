// Package transport provides the HTTP transport abstraction layer
// used by directory probing.
package transport

import "time"

// Request represents an HTTP request to be sent by the transport client.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// URL is the target URL.
	URL string

	// Headers contains custom HTTP headers to include.
	Headers map[string]string

	// Timeout overrides the client-level timeout for this specific
	// request. Zero means use the client default.
	Timeout time.Duration
}
