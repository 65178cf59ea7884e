package convert

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/remote"
)

func sampleDoc() *remote.Document {
	return &remote.Document{
		ID:        "12345",
		Title:     `Release "Q3" notes`,
		SpaceKey:  "ENG",
		Version:   4,
		UpdatedAt: time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
		Author:    "jane.doe",
		Content:   "<h1>Release</h1><p>Shipped.</p>",
		WebURL:    "https://wiki.example.com/pages/12345",
		Labels:    []string{"release", "eng"},
	}
}

func TestDocument_RoundTripStableExceptSyncedAt(t *testing.T) {
	doc := sampleDoc()
	t1 := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	r1, err := Document(doc, t1)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	r2, err := Document(doc, t2)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	f1 := string(RenderFile(r1))
	f2 := string(RenderFile(r2))

	strip := func(s string) string {
		var out []string
		for _, line := range strings.Split(s, "\n") {
			if strings.HasPrefix(line, "synced_at:") {
				continue
			}
			out = append(out, line)
		}
		return strings.Join(out, "\n")
	}
	if strip(f1) != strip(f2) {
		t.Errorf("output differs beyond synced_at:\n%s\n---\n%s", f1, f2)
	}
	if f1 == f2 {
		t.Errorf("synced_at did not change between conversions")
	}
}

func TestRenderFile_Layout(t *testing.T) {
	doc := sampleDoc()
	res, err := Document(doc, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	content := string(RenderFile(res))

	if !strings.HasPrefix(content, "---\n") {
		t.Errorf("missing opening delimiter: %q", content[:20])
	}
	for _, want := range []string{
		`title: "Release \"Q3\" notes"`,
		`remote_id: "12345"`,
		`space_key: "ENG"`,
		"version: 4",
		`author: "jane.doe"`,
		`  - "release"`,
		`synced_at: "2026-08-23T10:00:00Z"`,
		`modified_at: "2026-08-20T09:30:00Z"`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in:\n%s", want, content)
		}
	}
	if !strings.Contains(content, "# Release\n\nShipped.") {
		t.Errorf("body missing:\n%s", content)
	}
	if !strings.HasSuffix(content, "\n") {
		t.Errorf("missing trailing newline")
	}
}

func TestFrontmatter_EmptyLabels(t *testing.T) {
	doc := sampleDoc()
	doc.Labels = nil
	fm := BuildFrontmatter(doc, time.Now())
	if fm.Labels == nil {
		t.Fatal("labels should never be nil")
	}
	if !strings.Contains(fm.Render(), "labels: []\n") {
		t.Errorf("expected explicit empty list:\n%s", fm.Render())
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	doc := sampleDoc()
	syncedAt := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	res, err := Document(doc, syncedAt)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	data := RenderFile(res)

	fm, body := Split(data)
	if fm == nil {
		t.Fatal("expected frontmatter")
	}
	if fm.Title != doc.Title {
		t.Errorf("title = %q, want %q", fm.Title, doc.Title)
	}
	if fm.RemoteID != doc.ID {
		t.Errorf("remote_id = %q, want %q", fm.RemoteID, doc.ID)
	}
	if fm.Version != doc.Version {
		t.Errorf("version = %d, want %d", fm.Version, doc.Version)
	}
	if !fm.SyncedAt.Equal(syncedAt) {
		t.Errorf("synced_at = %v, want %v", fm.SyncedAt, syncedAt)
	}
	if len(fm.Labels) != 2 || fm.Labels[0] != "release" {
		t.Errorf("labels = %v", fm.Labels)
	}
	if !strings.HasPrefix(body, "# Release") {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_NoFrontmatter(t *testing.T) {
	fm, body := Split([]byte("# Plain file\n"))
	if fm != nil {
		t.Errorf("expected nil frontmatter, got %+v", fm)
	}
	if body != "# Plain file\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_UnterminatedHeader(t *testing.T) {
	in := "---\ntitle: broken\n# no closing fence\n"
	fm, body := Split([]byte(in))
	if fm != nil {
		t.Errorf("expected nil frontmatter, got %+v", fm)
	}
	if body != in {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_InvalidYAML(t *testing.T) {
	in := "---\n: not: valid: {{{\n---\nBody\n"
	fm, body := Split([]byte(in))
	if fm != nil {
		t.Errorf("expected nil frontmatter, got %+v", fm)
	}
	if body != in {
		t.Errorf("body = %q", body)
	}
}
