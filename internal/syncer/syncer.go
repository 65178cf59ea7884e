// Package syncer orchestrates fetching remote documents and keeping their
// local copies current.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/remote"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// Outcome classifies what happened to one document during a sync.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result is the per-document record in a bulk-sync summary.
type Result struct {
	RemoteID string  `json:"remote_id"`
	Path     string  `json:"path,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
}

// Summary is the end-of-run report of a bulk sync.
type Summary struct {
	Synced    int      `json:"synced"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Cancelled bool     `json:"cancelled,omitempty"`
	Results   []Result `json:"results"`
}

func (s *Summary) record(r Result) {
	switch r.Outcome {
	case OutcomeSynced:
		s.Synced++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// Syncer coordinates the remote client, the document store, and the
// optional search index.
type Syncer struct {
	client       remote.Client
	store        *store.Store
	fs           storage.Provider
	db           index.DocumentIndex // nil disables search indexing
	connectionID string
	logger       *slog.Logger
}

// New creates a Syncer. db may be nil when no search index is in play.
func New(client remote.Client, st *store.Store, fs storage.Provider, db index.DocumentIndex, connectionID string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client:       client,
		store:        st,
		fs:           fs,
		db:           db,
		connectionID: connectionID,
		logger:       logger,
	}
}

// Fetch fetches a page by remote id and saves a new local copy, or brings
// an already-tracked copy up to date.
func (s *Syncer) Fetch(ctx context.Context, remoteID, category string) (*store.DocumentMetadata, Outcome, error) {
	doc, err := s.client.GetDocument(ctx, remoteID)
	if err != nil {
		return nil, OutcomeFailed, err
	}

	existing, ok := s.store.FindByRemoteID(remoteID)
	if !ok {
		meta, err := s.store.Save(doc, s.connectionID, category)
		if err != nil {
			return nil, OutcomeFailed, err
		}
		s.indexSaved(meta)
		s.logger.Info("fetched", slog.String("remote_id", remoteID), slog.String("path", meta.RelativePath))
		return meta, OutcomeSynced, nil
	}
	return s.apply(doc, existing)
}

// FetchURL resolves a page URL to its remote id and fetches it.
func (s *Syncer) FetchURL(ctx context.Context, rawURL, category string) (*store.DocumentMetadata, Outcome, error) {
	id, err := remote.ParsePageURL(rawURL)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	return s.Fetch(ctx, id, category)
}

// SyncOne re-fetches a single tracked document and conditionally rewrites
// its local copy. Errors surface directly to the caller.
func (s *Syncer) SyncOne(ctx context.Context, remoteID string) (*store.DocumentMetadata, Outcome, error) {
	existing, ok := s.store.FindByRemoteID(remoteID)
	if !ok {
		return nil, OutcomeFailed, fmt.Errorf("syncer: remote id %s: %w", remoteID, apperr.ErrNotTracked)
	}
	doc, err := s.client.GetDocument(ctx, remoteID)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	return s.apply(doc, existing)
}

// SyncAll sequentially re-fetches every tracked document (optionally
// limited to a category). Per-document failures are counted, never fatal;
// cancellation between documents stops the loop, leaving already-synced
// documents committed and the remainder untouched.
func (s *Syncer) SyncAll(ctx context.Context, category string) *Summary {
	sum := &Summary{Results: []Result{}}

	for _, meta := range s.store.List(category) {
		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}

		doc, err := s.client.GetDocument(ctx, meta.RemoteID)
		if err != nil {
			s.logger.Warn("sync: fetch failed",
				slog.String("remote_id", meta.RemoteID),
				slog.String("error", err.Error()))
			sum.record(Result{RemoteID: meta.RemoteID, Path: meta.RelativePath, Outcome: OutcomeFailed, Error: err.Error()})
			continue
		}

		updated, outcome, err := s.apply(doc, &meta)
		r := Result{RemoteID: meta.RemoteID, Path: meta.RelativePath, Outcome: outcome}
		if err != nil {
			r.Error = err.Error()
		}
		if updated != nil {
			r.Path = updated.RelativePath
		}
		sum.record(r)
	}

	s.logger.Info("sync: done",
		slog.Int("synced", sum.Synced),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Bool("cancelled", sum.Cancelled))
	return sum
}

// apply decides between skip and update for an already-tracked document.
// A remote version that has not advanced, or a missing local file, is a
// skip, not a failure.
func (s *Syncer) apply(doc *remote.Document, existing *store.DocumentMetadata) (*store.DocumentMetadata, Outcome, error) {
	if doc.Version <= existing.Version {
		s.logger.Debug("sync: up to date",
			slog.String("remote_id", doc.ID),
			slog.Int("version", existing.Version))
		return existing, OutcomeSkipped, nil
	}
	if !s.store.HasFile(*existing) {
		s.logger.Warn("sync: local file missing", slog.String("path", existing.RelativePath))
		return existing, OutcomeSkipped, nil
	}

	meta, err := s.store.Update(doc, *existing)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	s.indexSaved(meta)
	s.logger.Info("synced",
		slog.String("remote_id", doc.ID),
		slog.String("path", meta.RelativePath),
		slog.Int("version", meta.Version))
	return meta, OutcomeSynced, nil
}

// indexSaved refreshes the search index entry for a just-written file.
func (s *Syncer) indexSaved(meta *store.DocumentMetadata) {
	if s.db == nil {
		return
	}
	data, err := s.fs.Read(meta.RelativePath)
	if err != nil {
		s.logger.Warn("index: read back failed", slog.String("path", meta.RelativePath), slog.String("error", err.Error()))
		return
	}
	if err := index.IndexFile(s.db, *meta, data); err != nil {
		s.logger.Warn("index: upsert failed", slog.String("path", meta.RelativePath), slog.String("error", err.Error()))
	}
}
