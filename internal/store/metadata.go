// Package store persists synced documents: Markdown files on disk plus a
// JSON index tracking provenance (remote id, version, checksum) per file.
package store

import "time"

// IndexFileName is the metadata index file kept at the sync root.
const IndexFileName = ".ansuz-index.json"

const schemaVersion = "1"

// DocumentMetadata is the persisted record for one locally-saved document.
// LocalID and RelativePath are stable for the document's life; the rest is
// refreshed on every successful sync.
type DocumentMetadata struct {
	LocalID      string    `json:"localId"`
	RemoteID     string    `json:"remoteId"`
	ConnectionID string    `json:"connectionId"`
	RelativePath string    `json:"relativePath"`
	Title        string    `json:"title"`
	RemoteURL    string    `json:"remoteUrl"`
	SpaceKey     string    `json:"spaceKey"`
	Version      int       `json:"version"`
	SyncedAt     time.Time `json:"syncedAt"`
	Checksum     string    `json:"checksum"`
	Category     string    `json:"category"`
	Labels       []string  `json:"labels"`
}

// metadataIndex is the on-disk index shape. It holds at most one entry
// per distinct remote id and is rewritten in full on every mutation.
type metadataIndex struct {
	SchemaVersion string             `json:"schemaVersion"`
	Documents     []DocumentMetadata `json:"documents"`
}
