// Package remote defines the wiki service boundary: the document model,
// the client interface, and a Confluence REST implementation.
package remote

import "time"

// Document is a wiki page as fetched from the remote service.
// It is immutable once fetched.
type Document struct {
	ID        string
	Title     string
	SpaceKey  string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    string
	Content   string // raw storage-format markup
	WebURL    string
	Labels    []string
}

// SearchHit is a lightweight result from a remote search.
type SearchHit struct {
	ID           string
	Title        string
	Excerpt      string
	SpaceKey     string
	LastModified time.Time
}
