package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// NormalizeWords trims every entry and drops blanks, preserving order.
// Inline wordlists and uploaded wordlist files go through the same path so
// both forms produce identical work lists.
func NormalizeWords(words []string) []string {
	var out []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// NormalizeExtensions trims entries and strips any leading dot.
func NormalizeExtensions(exts []string) []string {
	var out []string
	for _, e := range exts {
		e = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

var listSep = regexp.MustCompile(`[\s,]+`)

// SplitList splits a comma/whitespace/newline separated flag value into
// normalized entries.
func SplitList(raw string) []string {
	return NormalizeWords(listSep.Split(raw, -1))
}

// ParsePorts parses a comma/whitespace separated port list.
func ParsePorts(raw string) ([]int, error) {
	var ports []int
	for _, p := range SplitList(raw) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		ports = append(ports, n)
	}
	return ports, nil
}

// ParseStatusList parses a comma/whitespace separated HTTP status list.
func ParseStatusList(raw string) ([]int, error) {
	var statuses []int
	for _, s := range SplitList(raw) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q", s)
		}
		statuses = append(statuses, n)
	}
	return statuses, nil
}

// ReadWordlist reads a newline-delimited wordlist, trimming entries and
// dropping blanks and # comment lines.
func ReadWordlist(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	return words, nil
}

// ExpandTargets expands CIDR blocks in the target list into individual
// addresses, leaving plain hosts and IPs untouched. Expansion is capped at
// maxExpandedTargets.
func ExpandTargets(targets []string) ([]string, error) {
	var out []string
	for _, t := range targets {
		if !strings.Contains(t, "/") {
			out = append(out, t)
			continue
		}
		ip, ipnet, err := net.ParseCIDR(t)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q", t)
		}
		for addr := ip.Mask(ipnet.Mask); ipnet.Contains(addr); incIP(addr) {
			out = append(out, addr.String())
			if len(out) > maxExpandedTargets {
				return nil, fmt.Errorf("target list exceeds %d addresses after CIDR expansion", maxExpandedTargets)
			}
		}
	}
	return out, nil
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

var domainLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func normalizeDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}

// validDomain reports whether d looks like a resolvable DNS domain: at least
// two labels, each of valid length and character set.
func validDomain(d string) bool {
	if len(d) > 253 {
		return false
	}
	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 {
			return false
		}
		if !domainLabel.MatchString(l) {
			return false
		}
	}
	return true
}

// validResolverAddr accepts an IP address with an optional port.
func validResolverAddr(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	return net.ParseIP(host) != nil
}

func normalizeHost(host string) string {
	return strings.ToLower(host)
}
