// Package wordlist ships the built-in candidate lists used when a scan
// request does not supply its own.
package wordlist

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/nvalt/reconx/internal/config"
)

//go:embed subdomains.txt
var subdomainsRaw string

//go:embed dirs.txt
var dirsRaw string

var (
	once       sync.Once
	subdomains []string
	dirs       []string
)

func load() {
	once.Do(func() {
		subdomains = parse(subdomainsRaw)
		dirs = parse(dirsRaw)
	})
}

// parse splits an embedded list into words, dropping blanks and comments.
func parse(raw string) []string {
	words, err := config.ReadWordlist(strings.NewReader(raw))
	if err != nil {
		// Embedded data cannot fail to read.
		panic(err)
	}
	return words
}

// Subdomains returns the built-in subdomain labels.
func Subdomains() []string {
	load()
	return subdomains
}

// Dirs returns the built-in directory and file names.
func Dirs() []string {
	load()
	return dirs
}
