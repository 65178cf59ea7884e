package store

import (
	"regexp"
	"strings"
)

const (
	placeholderName = "untitled"
	maxFilenameLen  = 100
)

var dashRunRe = regexp.MustCompile(`-+`)

// SanitizeTitle derives a file name from a document title: path-separator
// and shell-special characters become dashes, dash runs collapse, edges
// are trimmed, and the result is capped at 100 characters. An empty
// result falls back to a fixed placeholder. Deterministic for identical
// titles; collisions across distinct documents are handled by the store.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	out := dashRunRe.ReplaceAllString(b.String(), "-")
	out = strings.Trim(out, "- \t")
	if runes := []rune(out); len(runes) > maxFilenameLen {
		out = strings.Trim(string(runes[:maxFilenameLen]), "- \t")
	}
	if out == "" {
		return placeholderName
	}
	return out
}

// shortRemoteID returns a short, filename-safe fragment of a remote id,
// used to disambiguate colliding derived filenames.
func shortRemoteID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 8 {
			break
		}
	}
	if b.Len() == 0 {
		return "x"
	}
	return b.String()
}
