package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/convert"
	"github.com/starford/ansuz/internal/remote"
	"github.com/starford/ansuz/internal/storage"
)

// Store owns the metadata index and the Markdown files it describes.
// The index is read once at construction and rewritten in full on every
// mutation; concurrent writers on the same index file are not guarded
// (documented lost-update hazard).
type Store struct {
	mu  sync.RWMutex // guards idx against concurrent API/watcher access
	fs  storage.Provider
	idx metadataIndex
	now func() time.Time
}

// New loads the metadata index from the sync root. A missing index file
// starts an empty store; a corrupt one is an error.
func New(fs storage.Provider) (*Store, error) {
	s := &Store{
		fs:  fs,
		idx: metadataIndex{SchemaVersion: schemaVersion, Documents: []DocumentMetadata{}},
		now: time.Now,
	}
	data, err := fs.Read(IndexFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("store: read index: %w", err)
	}
	if err := json.Unmarshal(data, &s.idx); err != nil {
		return nil, fmt.Errorf("store: parse index: %w", err)
	}
	if s.idx.SchemaVersion == "" {
		s.idx.SchemaVersion = schemaVersion
	}
	if s.idx.Documents == nil {
		s.idx.Documents = []DocumentMetadata{}
	}
	return s, nil
}

// Save converts a newly-fetched document, writes it under
// <category>/<sanitized-title>.md, and appends a fresh index entry.
// Saving a remote id that is already tracked is a conflict; use Update.
func (s *Store) Save(doc *remote.Document, connectionID, category string) (*DocumentMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findByRemoteID(doc.ID); ok {
		return nil, fmt.Errorf("store: remote id %s already tracked: %w", doc.ID, apperr.ErrConflict)
	}

	content, err := s.renderFile(doc)
	if err != nil {
		return nil, err
	}

	name := SanitizeTitle(doc.Title)
	rel := path.Join(category, name+".md")
	// Distinct documents can derive the same filename. Disambiguate with
	// a short remote-id suffix so the first document keeps its path.
	if other, ok := s.findByLocalPath(rel); ok && other.RemoteID != doc.ID {
		rel = path.Join(category, name+"-"+shortRemoteID(doc.ID)+".md")
	}

	if err := s.fs.Write(rel, content); err != nil {
		return nil, err
	}

	meta := DocumentMetadata{
		LocalID:      uuid.NewString(),
		RemoteID:     doc.ID,
		ConnectionID: connectionID,
		RelativePath: rel,
		Title:        doc.Title,
		RemoteURL:    doc.WebURL,
		SpaceKey:     doc.SpaceKey,
		Version:      doc.Version,
		SyncedAt:     s.now(),
		Checksum:     checksum.Short(content),
		Category:     category,
		Labels:       nonNilLabels(doc.Labels),
	}
	s.idx.Documents = append(s.idx.Documents, meta)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Update re-renders an already-tracked document and overwrites the file
// at its existing path. The filename never changes on update, even when
// the remote title did. Identity and path are preserved; version,
// checksum, title, and labels are refreshed in place.
func (s *Store) Update(doc *remote.Document, existing DocumentMetadata) (*DocumentMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(existing.LocalID)
	if i < 0 {
		return nil, fmt.Errorf("store: local id %s: %w", existing.LocalID, apperr.ErrNotTracked)
	}

	content, err := s.renderFile(doc)
	if err != nil {
		return nil, err
	}
	if err := s.fs.Write(s.idx.Documents[i].RelativePath, content); err != nil {
		return nil, err
	}

	entry := &s.idx.Documents[i]
	entry.Title = doc.Title
	entry.RemoteURL = doc.WebURL
	entry.SpaceKey = doc.SpaceKey
	entry.Version = doc.Version
	entry.SyncedAt = s.now()
	entry.Checksum = checksum.Short(content)
	entry.Labels = nonNilLabels(doc.Labels)

	if err := s.persist(); err != nil {
		return nil, err
	}
	meta := *entry
	return &meta, nil
}

// FindByRemoteID returns the metadata entry for a remote id, if tracked.
func (s *Store) FindByRemoteID(remoteID string) (*DocumentMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByRemoteID(remoteID)
}

func (s *Store) findByRemoteID(remoteID string) (*DocumentMetadata, bool) {
	for i := range s.idx.Documents {
		if s.idx.Documents[i].RemoteID == remoteID {
			meta := s.idx.Documents[i]
			return &meta, true
		}
	}
	return nil, false
}

// FindByLocalPath returns the metadata entry for a relative path, if tracked.
func (s *Store) FindByLocalPath(relativePath string) (*DocumentMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByLocalPath(relativePath)
}

func (s *Store) findByLocalPath(relativePath string) (*DocumentMetadata, bool) {
	for i := range s.idx.Documents {
		if s.idx.Documents[i].RelativePath == relativePath {
			meta := s.idx.Documents[i]
			return &meta, true
		}
	}
	return nil, false
}

// List returns tracked documents, optionally filtered by category.
func (s *Store) List(category string) []DocumentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DocumentMetadata, 0, len(s.idx.Documents))
	for _, m := range s.idx.Documents {
		if category != "" && m.Category != category {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Delete removes the document's file (absence is not an error) and its
// index entry.
func (s *Store) Delete(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(localID)
	if i < 0 {
		return fmt.Errorf("store: local id %s: %w", localID, apperr.ErrNotFound)
	}
	if err := s.fs.Delete(s.idx.Documents[i].RelativePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.idx.Documents = append(s.idx.Documents[:i], s.idx.Documents[i+1:]...)
	return s.persist()
}

// HasFile reports whether the file backing a metadata entry still exists.
func (s *Store) HasFile(meta DocumentMetadata) bool {
	_, err := s.fs.Read(meta.RelativePath)
	return err == nil
}

func (s *Store) renderFile(doc *remote.Document) ([]byte, error) {
	res, err := convert.Document(doc, s.now())
	if err != nil {
		return nil, fmt.Errorf("store: convert %s: %w", doc.ID, err)
	}
	return convert.RenderFile(res), nil
}

func (s *Store) indexOf(localID string) int {
	for i := range s.idx.Documents {
		if s.idx.Documents[i].LocalID == localID {
			return i
		}
	}
	return -1
}

// persist rewrites the whole index file through the atomic provider.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.idx, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal index: %w", err)
	}
	return s.fs.Write(IndexFileName, append(data, '\n'))
}

func nonNilLabels(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return append([]string(nil), labels...)
}
