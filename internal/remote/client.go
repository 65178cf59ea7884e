package remote

import "context"

// Client is the interface to the remote wiki service.
// Consumers should depend on this interface rather than the concrete
// *Confluence type to facilitate testing with fakes.
type Client interface {
	// GetDocument fetches a page with its raw markup, version, and metadata.
	GetDocument(ctx context.Context, id string) (*Document, error)
	// Search returns lightweight hits for a free-text query.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// Verify *Confluence satisfies Client at compile time.
var _ Client = (*Confluence)(nil)
