package unanswered

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// Handler exposes the unanswered-question log to admins.
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("unanswered: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /admin/unanswered/{orgID}?limit=N.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
	if orgID == "" {
		http.Error(w, "missing orgID", http.StatusBadRequest)
		return
	}
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	questions, err := h.store.List(r.Context(), orgID, limit)
	if err != nil {
		h.logger.Error("unanswered: list failed", "org_id", orgID, "error", err)
		http.Error(w, "Failed to list questions", http.StatusInternalServerError)
		return
	}
	if questions == nil {
		questions = []Question{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"org_id": orgID, "questions": questions})
}
