package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
	"unicode"
)

// Port probe classification.
const (
	PortOpen     = "open"
	PortClosed   = "closed"
	PortFiltered = "filtered"
)

// bannerLimit bounds how many bytes of a service banner are kept.
const bannerLimit = 128

// PortResult is the outcome of a single TCP connect probe.
type PortResult struct {
	Status string
	Banner string
}

// ProbePort attempts a TCP connection to host:port within timeout and
// classifies the outcome: open (connect succeeded), closed (actively
// refused), filtered (timeout or no response). On open ports it reads a
// short banner, best effort, never blocking beyond the timeout.
func ProbePort(ctx context.Context, host string, port int, timeout time.Duration) PortResult {
	dialer := net.Dialer{Timeout: timeout}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return PortResult{Status: classifyDialError(err)}
	}
	defer conn.Close()

	return PortResult{
		Status: PortOpen,
		Banner: readBanner(conn, timeout),
	}
}

// classifyDialError maps a connect failure to closed or filtered. An active
// refusal means something answered; everything else (timeout, unreachable,
// reset) is indistinguishable from a dropped packet.
func classifyDialError(err error) string {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return PortClosed
	}
	return PortFiltered
}

// readBanner pokes the connection with a CRLF pair and reads whatever the
// service volunteers, truncated to bannerLimit bytes. The read deadline is
// capped at one second so quiet services don't stall a worker.
func readBanner(conn net.Conn, timeout time.Duration) string {
	deadline := timeout
	if deadline > time.Second {
		deadline = time.Second
	}
	_ = conn.SetDeadline(time.Now().Add(deadline))

	// Some services (HTTP in particular) stay silent until prompted.
	_, _ = conn.Write([]byte("\r\n\r\n"))

	buf := make([]byte, bannerLimit)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return ""
	}
	return sanitizeBanner(string(buf[:n]))
}

// sanitizeBanner strips control characters and trims the result so banners
// are safe to log and export.
func sanitizeBanner(s string) string {
	s = strings.ToValidUTF8(s, "")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' {
			b.WriteRune(r)
		} else if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
