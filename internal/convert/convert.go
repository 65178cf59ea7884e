// Package convert turns remote documents into saved-file content: a
// frontmatter header plus a Markdown body, and the inverse split used
// when re-reading saved files.
package convert

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/markup"
	"github.com/starford/ansuz/internal/remote"
)

// Result is the outcome of converting one remote document.
type Result struct {
	Markdown    string
	Frontmatter Frontmatter
}

// Document converts a remote document into Markdown plus frontmatter.
// Converting the same document twice yields identical output except for
// the synced_at timestamp.
func Document(doc *remote.Document, syncedAt time.Time) (*Result, error) {
	md, err := markup.ToMarkdown(doc.Content)
	if err != nil {
		return nil, err
	}
	return &Result{
		Markdown:    md,
		Frontmatter: BuildFrontmatter(doc, syncedAt),
	}, nil
}

// RenderFile produces the final file bytes: header, blank line, body.
func RenderFile(res *Result) []byte {
	return []byte(res.Frontmatter.Render() + "\n" + res.Markdown + "\n")
}

// header mirrors the rendered frontmatter keys for parsing. Timestamps
// are kept as strings and parsed separately so a hand-edited header
// cannot fail the whole split.
type header struct {
	Title      string   `yaml:"title"`
	RemoteID   string   `yaml:"remote_id"`
	RemoteURL  string   `yaml:"remote_url"`
	SpaceKey   string   `yaml:"space_key"`
	Version    int      `yaml:"version"`
	Author     string   `yaml:"author"`
	Labels     []string `yaml:"labels"`
	SyncedAt   string   `yaml:"synced_at"`
	ModifiedAt string   `yaml:"modified_at"`
}

// Split separates a saved file into its frontmatter and Markdown body.
// A file without a header (or with an unparsable one) yields a nil
// frontmatter and the entire content as body.
func Split(data []byte) (*Frontmatter, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(Delimiter)) {
		return nil, string(data)
	}

	rest := trimmed[len(Delimiter):]
	idx := bytes.Index(rest, []byte("\n"+Delimiter))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	afterDelim := rest[idx+1+len(Delimiter):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var h header
	if err := yaml.Unmarshal(block, &h); err != nil {
		return nil, string(data)
	}

	fm := &Frontmatter{
		Title:      h.Title,
		RemoteID:   h.RemoteID,
		RemoteURL:  h.RemoteURL,
		SpaceKey:   h.SpaceKey,
		Version:    h.Version,
		Author:     h.Author,
		Labels:     h.Labels,
		SyncedAt:   parseTime(h.SyncedAt),
		ModifiedAt: parseTime(h.ModifiedAt),
	}
	if fm.Labels == nil {
		fm.Labels = []string{}
	}
	return fm, body
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
