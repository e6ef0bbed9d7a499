package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const maxDocumentsPerRequest = 100

// Ingester accepts new documents for an org.
type Ingester interface {
	Ingest(ctx context.Context, orgID string, docs []string) error
}

// Handler serves the knowledge admin routes.
type Handler struct {
	ingester Ingester
	logger   *logging.Logger
}

func NewHandler(ingester Ingester, logger *logging.Logger) *Handler {
	if ingester == nil {
		panic("knowledge: ingester cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{ingester: ingester, logger: logger}
}

type ingestRequest struct {
	Documents []string `json:"documents"`
}

// Ingest handles POST /admin/knowledge/{orgID}.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
	if orgID == "" {
		http.Error(w, "missing orgID", http.StatusBadRequest)
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	docs := make([]string, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d = strings.TrimSpace(d); d != "" {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		http.Error(w, "documents are required", http.StatusBadRequest)
		return
	}
	if len(docs) > maxDocumentsPerRequest {
		http.Error(w, "too many documents", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.ingester.Ingest(r.Context(), orgID, docs); err != nil {
		h.logger.Error("knowledge: ingest failed", "org_id", orgID, "error", err)
		http.Error(w, "Failed to ingest documents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"org_id": orgID, "ingested": len(docs)})
}
