package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// TurnProcessor is the engine surface the transport needs.
type TurnProcessor interface {
	HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error)
	Session(ctx context.Context, sessionID string) (Record, error)
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Question  string      `json:"question"`
	SessionID string      `json:"session_id"`
	OrgID     string      `json:"org_id"`
	Mode      string      `json:"mode"`
	UserData  UserProfile `json:"user_data"`
}

// ChatResponse is returned for every accepted turn. A suppressed turn has an empty answer.
type ChatResponse struct {
	Answer     string      `json:"answer"`
	Mode       Mode        `json:"mode"`
	UserData   UserProfile `json:"user_data"`
	SessionID  string      `json:"session_id"`
	Suppressed bool        `json:"suppressed"`
	Category   Category    `json:"category,omitempty"`
}

// Handler wires HTTP requests to the dialogue engine.
type Handler struct {
	engine TurnProcessor
	logger *logging.Logger
}

func NewHandler(engine TurnProcessor, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("dialogue: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("dialogue: failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	orgID := strings.TrimSpace(req.OrgID)
	if orgID == "" {
		orgID = strings.TrimSpace(r.Header.Get("X-Org-ID"))
	}
	if orgID == "" {
		http.Error(w, "org_id is required", http.StatusBadRequest)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.engine.HandleTurn(r.Context(), TurnRequest{
		SessionID: sessionID,
		OrgID:     orgID,
		Utterance: req.Question,
		Mode:      ParseMode(req.Mode),
		UserData:  req.UserData,
	})
	if errors.Is(err, ErrOrgMismatch) {
		http.Error(w, "session belongs to another org", http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.Error("dialogue: failed to handle turn", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, ChatResponse{
		Answer:     result.Answer,
		Mode:       result.Mode,
		UserData:   result.Profile,
		SessionID:  sessionID,
		Suppressed: result.Suppressed,
		Category:   result.Category,
	})
}

// Session handles GET /admin/sessions/{sessionID}.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("dialogue: failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// SessionOrg reports the org that owns a session, for admin scope checks.
func (h *Handler) SessionOrg(ctx context.Context, sessionID string) (string, bool, error) {
	rec, err := h.engine.Session(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Session.OrgID, true, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("dialogue: failed to write JSON response", "error", err)
	}
}
