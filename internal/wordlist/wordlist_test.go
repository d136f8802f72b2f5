package wordlist

import (
	"strings"
	"testing"
)

func TestSubdomainsLoaded(t *testing.T) {
	words := Subdomains()
	if len(words) < 50 {
		t.Fatalf("subdomain list has %d entries, expected a usable default", len(words))
	}
	for _, w := range words {
		if strings.TrimSpace(w) != w || w == "" {
			t.Errorf("entry %q not normalized", w)
		}
		if strings.HasPrefix(w, "#") {
			t.Errorf("comment leaked into list: %q", w)
		}
	}
}

func TestDirsLoaded(t *testing.T) {
	words := Dirs()
	if len(words) < 50 {
		t.Fatalf("dir list has %d entries, expected a usable default", len(words))
	}
	seen := make(map[string]bool)
	for _, w := range words {
		if seen[w] {
			t.Errorf("duplicate entry %q", w)
		}
		seen[w] = true
	}
}

func TestStableAcrossCalls(t *testing.T) {
	a := Subdomains()
	b := Subdomains()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
}
