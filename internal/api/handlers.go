package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL (everything after
// /api/documents/). Supports encoded slashes (e.g. guides%2Fpage.md).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List tracked documents with optional category filter
//	@Tags			documents
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Success		200			{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	items := h.svc.ListDocuments(category)
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     len(items),
	})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single tracked document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotTracked) || errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get document failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{localID}.
//
//	@Summary		Delete a tracked document
//	@Tags			documents
//	@Param			localID	path	string	true	"Local document id"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{localID} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	localID := chi.URLParam(r, "localID")
	if localID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("local id is required"))
		return
	}
	if err := h.svc.DeleteDocument(localID); err != nil {
		if errors.Is(err, apperr.ErrNotTracked) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete document failed", slog.String("local_id", localID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across synced documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// SyncAll handles POST /api/sync.
//
//	@Summary		Re-sync every tracked document
//	@Tags			sync
//	@Produce		json
//	@Param			category	query		string	false	"Limit to a category"
//	@Success		200			{object}	syncer.Summary
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	sum, err := h.svc.SyncAll(r.Context(), category)
	if err != nil {
		slog.Error("sync all failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// SyncOne handles POST /api/sync/{remoteID}.
//
//	@Summary		Re-sync a single tracked document
//	@Tags			sync
//	@Produce		json
//	@Param			remoteID	path		string	true	"Remote page id"
//	@Success		200			{object}	map[string]any
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/{remoteID} [post]
func (h *Handler) SyncOne(w http.ResponseWriter, r *http.Request) {
	remoteID := chi.URLParam(r, "remoteID")
	if remoteID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("remote id is required"))
		return
	}
	meta, outcome, err := h.svc.SyncOne(r.Context(), remoteID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotTracked):
			writeJSON(w, http.StatusNotFound, errorBody("not tracked"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("remote page not found"))
		case errors.Is(err, apperr.ErrUnauthorized):
			writeJSON(w, http.StatusBadGateway, errorBody("remote authentication failed"))
		default:
			slog.Error("sync failed", slog.String("remote_id", remoteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":  outcome,
		"document": meta,
	})
}
