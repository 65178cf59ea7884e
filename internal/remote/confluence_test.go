package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

const contentJSON = `{
	"id": "12345",
	"title": "Getting Started",
	"space": {"key": "ENG"},
	"version": {"number": 7, "when": "2026-08-20T09:30:00Z", "by": {"displayName": "jane.doe"}},
	"history": {"createdDate": "2026-01-01T00:00:00Z", "createdBy": {"displayName": "john.roe"}},
	"body": {"storage": {"value": "<p>hello</p>"}},
	"metadata": {"labels": {"results": [{"name": "how-to"}, {"name": "onboarding"}]}},
	"_links": {"webui": "/spaces/ENG/pages/12345", "base": "https://wiki.example.com/wiki"}
}`

func TestGetDocument(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(contentJSON))
	}))
	defer srv.Close()

	c := NewConfluence(srv.URL, "user", "token")
	doc, err := c.GetDocument(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}

	if gotPath != "/rest/api/content/12345" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth == "" {
		t.Errorf("missing basic auth header")
	}
	if doc.ID != "12345" || doc.Title != "Getting Started" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.SpaceKey != "ENG" || doc.Version != 7 {
		t.Errorf("space/version = %q/%d", doc.SpaceKey, doc.Version)
	}
	if doc.Author != "jane.doe" {
		t.Errorf("author = %q", doc.Author)
	}
	if doc.Content != "<p>hello</p>" {
		t.Errorf("content = %q", doc.Content)
	}
	if len(doc.Labels) != 2 || doc.Labels[0] != "how-to" {
		t.Errorf("labels = %v", doc.Labels)
	}
	if doc.WebURL != "https://wiki.example.com/wiki/spaces/ENG/pages/12345" {
		t.Errorf("web url = %q", doc.WebURL)
	}
}

func TestGetDocument_AuthorFallsBackToCreator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1","title":"T","version":{"number":1},"history":{"createdBy":{"displayName":"john.roe"}}}`))
	}))
	defer srv.Close()

	doc, err := NewConfluence(srv.URL, "u", "t").GetDocument(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Author != "john.roe" {
		t.Errorf("author = %q", doc.Author)
	}
}

func TestGetDocument_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusUnauthorized, apperr.ErrUnauthorized},
		{http.StatusForbidden, apperr.ErrUnauthorized},
		{http.StatusTooManyRequests, apperr.ErrRateLimited},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := NewConfluence(srv.URL, "u", "t")
		_, err := c.GetDocument(context.Background(), "1")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}

func TestGetDocument_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewConfluence(srv.URL, "u", "t").GetDocument(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sentinel := range []error{apperr.ErrNotFound, apperr.ErrUnauthorized, apperr.ErrRateLimited} {
		if errors.Is(err, sentinel) {
			t.Errorf("502 must not map onto %v", sentinel)
		}
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"results":[{
			"content": {"id": "9", "title": "Hit"},
			"excerpt": "matching text",
			"resultGlobalContainer": {"displayUrl": "/spaces/ENG/overview"},
			"lastModified": "2026-08-01T00:00:00Z"
		}]}`))
	}))
	defer srv.Close()

	hits, err := NewConfluence(srv.URL, "u", "t").Search(context.Background(), "matching", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].ID != "9" || hits[0].SpaceKey != "ENG" {
		t.Errorf("hit = %+v", hits[0])
	}
}

func TestParsePageURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://wiki.example.com/spaces/ENG/pages/12345/Getting+Started", "12345", false},
		{"https://wiki.example.com/wiki/spaces/ENG/pages/98765", "98765", false},
		{"https://wiki.example.com/pages/viewpage.action?pageId=555", "555", false},
		{"https://wiki.example.com/display/ENG/Some+Page", "", true},
		{"not a url ://", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePageURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePageURL(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePageURL(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePageURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSpaceKeyFromDisplayURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/spaces/ENG/overview", "ENG"},
		{"/display/OPS", "OPS"},
		{"/something/else", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := spaceKeyFromDisplayURL(tt.in); got != tt.want {
			t.Errorf("spaceKeyFromDisplayURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
