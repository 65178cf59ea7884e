package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/remote"
)

// Delimiter marks the start and end of the file header block.
const Delimiter = "---"

// Frontmatter is the structured header embedded at the top of each saved
// Markdown file.
type Frontmatter struct {
	Title      string
	RemoteID   string
	RemoteURL  string
	SpaceKey   string
	Version    int
	Author     string
	Labels     []string
	SyncedAt   time.Time // conversion wall-clock time
	ModifiedAt time.Time // remote's last-modified time
}

// BuildFrontmatter derives a header from a remote document. syncedAt is
// the conversion time, not the remote's timestamp.
func BuildFrontmatter(doc *remote.Document, syncedAt time.Time) Frontmatter {
	labels := doc.Labels
	if labels == nil {
		labels = []string{}
	}
	return Frontmatter{
		Title:      doc.Title,
		RemoteID:   doc.ID,
		RemoteURL:  doc.WebURL,
		SpaceKey:   doc.SpaceKey,
		Version:    doc.Version,
		Author:     doc.Author,
		Labels:     labels,
		SyncedAt:   syncedAt,
		ModifiedAt: doc.UpdatedAt,
	}
}

// Render emits the header block: key/value pairs between delimiter lines,
// string values quoted, labels as a block list or an explicit empty list.
func (f Frontmatter) Render() string {
	var sb strings.Builder
	sb.WriteString(Delimiter + "\n")
	writeStr := func(key, val string) {
		sb.WriteString(key + ": " + quote(val) + "\n")
	}
	writeStr("title", f.Title)
	writeStr("remote_id", f.RemoteID)
	writeStr("remote_url", f.RemoteURL)
	writeStr("space_key", f.SpaceKey)
	fmt.Fprintf(&sb, "version: %d\n", f.Version)
	writeStr("author", f.Author)
	if len(f.Labels) == 0 {
		sb.WriteString("labels: []\n")
	} else {
		sb.WriteString("labels:\n")
		for _, l := range f.Labels {
			sb.WriteString("  - " + quote(l) + "\n")
		}
	}
	writeStr("synced_at", f.SyncedAt.UTC().Format(time.RFC3339))
	writeStr("modified_at", f.ModifiedAt.UTC().Format(time.RFC3339))
	sb.WriteString(Delimiter + "\n")
	return sb.String()
}

// quote wraps s in double quotes, escaping backslash and quote characters.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
