package cipher

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// Global string-array constants some player versions use as lookup
	// tables: var NAME = ["...", "...", ...];
	globalArrayRe   = regexp.MustCompile(`var\s+([a-zA-Z_$][a-zA-Z0-9_$]*)\s*=\s*\[((?:\s*"[^"]*"\s*,?)+)\]`)
	stringLiteralRe = regexp.MustCompile(`"([^"]*)"`)
)

// PlayerScript holds the text of one versioned player script together
// with the global array constants it defines. The script URL path
// embeds a version token, so it serves as the fingerprint under which
// derived state (operation sequences, globals) is cached.
type PlayerScript struct {
	URL     string
	Body    string
	globals map[string][]string
}

// NewPlayerScript wraps a fetched script body. Null bytes are stripped;
// the heavily compressed script otherwise passes through untouched.
func NewPlayerScript(scriptURL, body string) *PlayerScript {
	s := &PlayerScript{
		URL:  scriptURL,
		Body: strings.ReplaceAll(body, "\x00", ""),
	}
	s.globals = extractGlobalArrays(s.Body)
	return s
}

// Fingerprint identifies the player version. The URL path carries the
// version token; a script with no URL falls back to its body.
func (s *PlayerScript) Fingerprint() string {
	if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
		return u.Path
	}
	return s.Body
}

// Globals returns the named global string arrays defined by the script.
func (s *PlayerScript) Globals() map[string][]string {
	return s.globals
}

func extractGlobalArrays(body string) map[string][]string {
	globals := make(map[string][]string)
	for _, m := range globalArrayRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		var items []string
		for _, lit := range stringLiteralRe.FindAllStringSubmatch(m[2], -1) {
			items = append(items, lit[1])
		}
		if len(items) > 0 {
			globals[name] = items
		}
	}
	return globals
}
