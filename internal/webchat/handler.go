package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const historyLimit = 50

var errForeignSession = errors.New("webchat: session belongs to another org")

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type     string               `json:"type"` // "message", "ping"
	Text     string               `json:"text"`
	Mode     string               `json:"mode,omitempty"`
	UserData dialogue.UserProfile `json:"user_data,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	Category  string           `json:"category,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Handler serves the WebSocket chat transport on top of the dialogue engine.
type Handler struct {
	engine dialogue.TurnProcessor
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(engine dialogue.TurnProcessor, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger, now: time.Now}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades GET /chat/ws?org=&session= and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	orgID := strings.TrimSpace(r.URL.Query().Get("org"))
	if orgID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing org parameter"})
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	logger := h.logger.With("org_id", orgID, "session_id", sessionID)

	history, err := h.history(r.Context(), orgID, sessionID)
	if errors.Is(err, errForeignSession) {
		logger.Warn("webchat: refused connection to another org's session")
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "session not found"})
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	if len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}
	logger.Info("webchat: connection opened")

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logger.Debug("webchat: connection closed", "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		case "message":
		default:
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}

		for _, out := range h.processMessage(r.Context(), orgID, sessionID, msg, logger) {
			if err := websocket.JSON.Send(conn, out); err != nil {
				logger.Debug("webchat: send failed", "error", err)
				return
			}
		}
	}
}

// processMessage runs one turn and returns the frames to send. A suppressed turn yields only the typing frame.
func (h *Handler) processMessage(ctx context.Context, orgID, sessionID string, msg InboundMessage, logger *logging.Logger) []OutboundMessage {
	frames := []OutboundMessage{{Type: "typing"}}
	result, err := h.engine.HandleTurn(ctx, dialogue.TurnRequest{
		SessionID: sessionID,
		OrgID:     orgID,
		Utterance: msg.Text,
		Mode:      dialogue.ParseMode(msg.Mode),
		UserData:  msg.UserData,
	})
	if errors.Is(err, dialogue.ErrOrgMismatch) {
		return append(frames, OutboundMessage{Type: "error", Text: "session not found"})
	}
	if err != nil {
		logger.Error("webchat: failed to handle turn", "error", err)
		return append(frames, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
	}
	if result.Suppressed {
		return frames
	}
	return append(frames, OutboundMessage{
		Type:      "message",
		Role:      dialogue.RoleAssistant,
		Text:      result.Answer,
		Category:  string(result.Category),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// history returns the session transcript. A session owned by another org is never disclosed.
func (h *Handler) history(ctx context.Context, orgID, sessionID string) ([]HistoryMessage, error) {
	rec, err := h.engine.Session(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, dialogue.ErrSessionNotFound) {
			h.logger.Warn("webchat: failed to load history", "session_id", sessionID, "error", err)
		}
		return nil, nil
	}
	if rec.Session.OrgID != orgID {
		return nil, errForeignSession
	}
	turns := rec.State.Turns
	if len(turns) > historyLimit {
		turns = turns[len(turns)-historyLimit:]
	}
	out := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryMessage{Role: t.Role, Text: t.Text, Timestamp: t.Timestamp.Format(time.RFC3339)})
	}
	return out, nil
}

// HandleHistory handles GET /chat/history?org=&session=. The org may also come from X-Org-ID.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	orgID := strings.TrimSpace(r.URL.Query().Get("org"))
	if orgID == "" {
		orgID = strings.TrimSpace(r.Header.Get("X-Org-ID"))
	}
	if orgID == "" {
		http.Error(w, "org parameter required", http.StatusBadRequest)
		return
	}
	history, err := h.history(r.Context(), orgID, sessionID)
	if err != nil {
		h.logger.Warn("webchat: refused history for another org's session", "org_id", orgID, "session_id", sessionID)
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if history == nil {
		history = []HistoryMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"messages": history})
}
