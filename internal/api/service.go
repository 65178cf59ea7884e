package api

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/syncer"
)

// Service coordinates store, index, and sync operations for the API layer.
type Service struct {
	store *store.Store
	fs    storage.Provider
	db    index.DocumentIndex
	sync  *syncer.Syncer
}

// NewService creates a new API service. db and sync may be nil; the
// corresponding endpoints then report that the feature is unavailable.
func NewService(st *store.Store, fs storage.Provider, db index.DocumentIndex, sync *syncer.Syncer) *Service {
	return &Service{store: st, fs: fs, db: db, sync: sync}
}

// DocumentDetail is the response payload for a single tracked document.
type DocumentDetail struct {
	LocalID  string    `json:"local_id"`
	RemoteID string    `json:"remote_id"`
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	SpaceKey string    `json:"space_key,omitempty"`
	Version  int       `json:"version"`
	Labels   []string  `json:"labels"`
	Checksum string    `json:"checksum"`
	SyncedAt time.Time `json:"synced_at"`
	Content  string    `json:"content"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	LocalID  string    `json:"local_id"`
	RemoteID string    `json:"remote_id"`
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	Version  int       `json:"version"`
	SyncedAt time.Time `json:"synced_at"`
}

// ListDocuments returns tracked documents, optionally limited to a category.
func (s *Service) ListDocuments(category string) []DocumentListItem {
	metas := s.store.List(category)
	items := make([]DocumentListItem, len(metas))
	for i, m := range metas {
		items[i] = DocumentListItem{
			LocalID:  m.LocalID,
			RemoteID: m.RemoteID,
			Path:     m.RelativePath,
			Title:    m.Title,
			Version:  m.Version,
			SyncedAt: m.SyncedAt,
		}
	}
	return items
}

// GetDocument reads a tracked document by its root-relative path.
func (s *Service) GetDocument(path string) (*DocumentDetail, error) {
	meta, ok := s.store.FindByLocalPath(path)
	if !ok {
		return nil, fmt.Errorf("api: %s: %w", path, apperr.ErrNotTracked)
	}
	data, err := s.fs.Read(meta.RelativePath)
	if err != nil {
		return nil, err
	}
	labels := meta.Labels
	if labels == nil {
		labels = []string{}
	}
	return &DocumentDetail{
		LocalID:  meta.LocalID,
		RemoteID: meta.RemoteID,
		Path:     meta.RelativePath,
		Title:    meta.Title,
		SpaceKey: meta.SpaceKey,
		Version:  meta.Version,
		Labels:   labels,
		Checksum: meta.Checksum,
		SyncedAt: meta.SyncedAt,
		Content:  string(data),
	}, nil
}

// DeleteDocument removes a tracked document from disk, metadata, and index.
func (s *Service) DeleteDocument(localID string) error {
	meta := s.findByLocalID(localID)
	if meta == nil {
		return fmt.Errorf("api: local id %s: %w", localID, apperr.ErrNotTracked)
	}
	if err := s.store.Delete(localID); err != nil {
		return err
	}
	if s.db != nil {
		if err := s.db.DeleteDocument(meta.RelativePath); err != nil {
			return err
		}
	}
	return nil
}

// Search delegates to the search index.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("api: search index not configured")
	}
	return s.db.Search(query, limit)
}

// SyncAll re-syncs every tracked document.
func (s *Service) SyncAll(ctx context.Context, category string) (*syncer.Summary, error) {
	if s.sync == nil {
		return nil, fmt.Errorf("api: remote connection not configured")
	}
	return s.sync.SyncAll(ctx, category), nil
}

// SyncOne re-syncs a single tracked document by remote id.
func (s *Service) SyncOne(ctx context.Context, remoteID string) (*store.DocumentMetadata, syncer.Outcome, error) {
	if s.sync == nil {
		return nil, syncer.OutcomeFailed, fmt.Errorf("api: remote connection not configured")
	}
	return s.sync.SyncOne(ctx, remoteID)
}

func (s *Service) findByLocalID(localID string) *store.DocumentMetadata {
	for _, m := range s.store.List("") {
		if m.LocalID == localID {
			return &m
		}
	}
	return nil
}
