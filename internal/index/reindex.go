package index

import (
	"log/slog"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/convert"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/storage"
)

// Reindex walks the document store and brings the search index up to date:
//   - tracked files whose content changed are re-indexed
//   - index rows whose documents are no longer tracked are removed
func Reindex(db DocumentIndex, st *store.Store, fs storage.Provider, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	tracked := make(map[string]struct{})
	for _, meta := range st.List("") {
		tracked[meta.RelativePath] = struct{}{}

		data, err := fs.Read(meta.RelativePath)
		if err != nil {
			logger.Warn("reindex: read failed", slog.String("path", meta.RelativePath), slog.String("error", err.Error()))
			continue
		}
		if checksums[meta.RelativePath] == checksum.Sum(data) {
			continue
		}
		if err := IndexFile(db, meta, data); err != nil {
			logger.Warn("reindex: index failed", slog.String("path", meta.RelativePath), slog.String("error", err.Error()))
		} else {
			logger.Debug("reindex: indexed", slog.String("path", meta.RelativePath))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := tracked[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("reindex: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("reindex: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile splits a saved file and upserts it into the search index.
// The metadata entry is authoritative for title, space, and labels.
func IndexFile(db DocumentIndex, meta store.DocumentMetadata, data []byte) error {
	_, body := convert.Split(data)
	return db.UpsertDocument(DocumentRow{
		Path:     meta.RelativePath,
		RemoteID: meta.RemoteID,
		Title:    meta.Title,
		SpaceKey: meta.SpaceKey,
		Labels:   meta.Labels,
		Checksum: checksum.Sum(data),
		SyncedAt: meta.SyncedAt,
	}, body)
}
