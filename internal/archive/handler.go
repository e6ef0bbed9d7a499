package archive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// SessionCloser loads and ends dialogue sessions.
type SessionCloser interface {
	Session(ctx context.Context, sessionID string) (dialogue.Record, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Handler archives a session and then drops its state.
type Handler struct {
	sessions SessionCloser
	archiver *Archiver
	logger   *logging.Logger
}

func NewHandler(sessions SessionCloser, archiver *Archiver, logger *logging.Logger) *Handler {
	if sessions == nil {
		panic("archive: session closer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sessions: sessions, archiver: archiver, logger: logger}
}

// ArchiveSession handles POST /admin/sessions/{sessionID}/archive.
func (h *Handler) ArchiveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.sessions.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, dialogue.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("archive: failed to load session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	key, err := h.archiver.Archive(r.Context(), rec)
	if err != nil {
		h.logger.Error("archive: failed to archive session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to archive session", http.StatusBadGateway)
		return
	}
	if err := h.sessions.EndSession(r.Context(), sessionID); err != nil {
		h.logger.Error("archive: failed to end session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to end session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": sessionID,
		"archived":   key != "",
		"s3_key":     key,
	})
}
