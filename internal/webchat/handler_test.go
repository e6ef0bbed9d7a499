package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

type stubEngine struct {
	mu       sync.Mutex
	requests []dialogue.TurnRequest
	result   func(req dialogue.TurnRequest) (dialogue.TurnResult, error)
	records  map[string]dialogue.Record
}

func (s *stubEngine) HandleTurn(_ context.Context, req dialogue.TurnRequest) (dialogue.TurnResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.result(req)
}

func (s *stubEngine) Session(_ context.Context, id string) (dialogue.Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return dialogue.Record{}, dialogue.ErrSessionNotFound
	}
	return rec, nil
}

func echoEngine() *stubEngine {
	return &stubEngine{
		records: map[string]dialogue.Record{},
		result: func(req dialogue.TurnRequest) (dialogue.TurnResult, error) {
			if strings.EqualFold(strings.TrimSpace(req.Utterance), "hi") {
				return dialogue.TurnResult{SessionID: req.SessionID, Suppressed: true}, nil
			}
			return dialogue.TurnResult{SessionID: req.SessionID, Answer: "echo: " + req.Utterance, Category: dialogue.CategoryKnowledge}, nil
		},
	}
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?" + query
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func newServer(engine dialogue.TurnProcessor) *httptest.Server {
	h := NewHandler(engine, logging.New("error"))
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/ws", h.HandleWebSocket)
	mux.HandleFunc("/chat/history", h.HandleHistory)
	return httptest.NewServer(mux)
}

func TestGenerateSessionID(t *testing.T) {
	id1 := generateSessionID()
	id2 := generateSessionID()
	assert.Len(t, id1, 32)
	assert.NotEqual(t, id1, id2)
}

func TestNewHandlerPanicsWithoutEngine(t *testing.T) {
	assert.Panics(t, func() { NewHandler(nil, nil) })
}

func TestWebSocketAssignsSession(t *testing.T) {
	srv := newServer(echoEngine())
	defer srv.Close()

	conn := dial(t, srv, "org=org-1")
	msg := receive(t, conn)
	assert.Equal(t, "session", msg.Type)
	assert.Len(t, msg.SessionID, 32)
}

func TestWebSocketRequiresOrg(t *testing.T) {
	srv := newServer(echoEngine())
	defer srv.Close()

	conn := dial(t, srv, "session=abc")
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Text, "org")
}

func TestWebSocketPingPong(t *testing.T) {
	srv := newServer(echoEngine())
	defer srv.Close()

	conn := dial(t, srv, "org=org-1&session=sess-1")
	assert.Equal(t, "session", receive(t, conn).Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)
}

func TestWebSocketMessageRoundTrip(t *testing.T) {
	engine := echoEngine()
	srv := newServer(engine)
	defer srv.Close()

	conn := dial(t, srv, "org=org-1&session=sess-1")
	assert.Equal(t, "sess-1", receive(t, conn).SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "what is a contingency fee?", Mode: "appointment"}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	reply := receive(t, conn)
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, dialogue.RoleAssistant, reply.Role)
	assert.Equal(t, "echo: what is a contingency fee?", reply.Text)
	assert.Equal(t, string(dialogue.CategoryKnowledge), reply.Category)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.requests, 1)
	assert.Equal(t, "org-1", engine.requests[0].OrgID)
	assert.Equal(t, "sess-1", engine.requests[0].SessionID)
	assert.Equal(t, dialogue.ModeAppointment, engine.requests[0].Mode)
}

func TestWebSocketSuppressedTurnSendsNoMessage(t *testing.T) {
	srv := newServer(echoEngine())
	defer srv.Close()

	conn := dial(t, srv, "org=org-1&session=sess-1")
	receive(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "Hi"}))
	assert.Equal(t, "typing", receive(t, conn).Type)

	// The next frame must belong to the ping, not to the greeting.
	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)
}

func TestWebSocketEngineError(t *testing.T) {
	engine := echoEngine()
	engine.result = func(dialogue.TurnRequest) (dialogue.TurnResult, error) {
		return dialogue.TurnResult{}, errors.New("boom")
	}
	srv := newServer(engine)
	defer srv.Close()

	conn := dial(t, srv, "org=org-1&session=sess-1")
	receive(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hello there friend"}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.NotContains(t, msg.Text, "boom")
}

func TestWebSocketReplaysHistory(t *testing.T) {
	engine := echoEngine()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.records["sess-1"] = dialogue.Record{
		Session: dialogue.Session{ID: "sess-1", OrgID: "org-1"},
		State: dialogue.ConversationState{Turns: []dialogue.Turn{
			{Role: dialogue.RoleUser, Text: "Do you take car accident cases?", Timestamp: ts},
			{Role: dialogue.RoleAssistant, Text: "Yes, we do.", Timestamp: ts},
		}},
	}
	srv := newServer(engine)
	defer srv.Close()

	conn := dial(t, srv, "org=org-1&session=sess-1")
	assert.Equal(t, "session", receive(t, conn).Type)
	history := receive(t, conn)
	assert.Equal(t, "history", history.Type)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "Yes, we do.", history.Messages[1].Text)
	assert.Equal(t, "2026-03-01T12:00:00Z", history.Messages[0].Timestamp)
}

func TestWebSocketRefusesAnotherOrgsSession(t *testing.T) {
	engine := echoEngine()
	engine.records["sess-1"] = dialogue.Record{
		Session: dialogue.Session{ID: "sess-1", OrgID: "org-1"},
		State:   dialogue.ConversationState{Turns: []dialogue.Turn{{Role: dialogue.RoleUser, Text: "I was rear-ended"}}},
	}
	srv := newServer(engine)
	defer srv.Close()

	conn := dial(t, srv, "org=org-2&session=sess-1")
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Empty(t, msg.Messages)
	assert.NotContains(t, msg.Text, "rear-ended")
}

func TestWebSocketOrgMismatchOnTurn(t *testing.T) {
	engine := echoEngine()
	engine.result = func(dialogue.TurnRequest) (dialogue.TurnResult, error) {
		return dialogue.TurnResult{}, dialogue.ErrOrgMismatch
	}
	srv := newServer(engine)
	defer srv.Close()

	conn := dial(t, srv, "org=org-2&session=sess-new")
	receive(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "what happens next here"}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "session not found", msg.Text)
}

func TestHandleHistory(t *testing.T) {
	engine := echoEngine()
	engine.records["sess-1"] = dialogue.Record{
		Session: dialogue.Session{ID: "sess-1", OrgID: "org-1"},
		State:   dialogue.ConversationState{Turns: []dialogue.Turn{{Role: dialogue.RoleUser, Text: "Driver"}}},
	}
	h := NewHandler(engine, logging.New("error"))

	tests := []struct {
		name     string
		query    string
		header   string
		status   int
		messages int
	}{
		{"missing session", "org=org-1", "", http.StatusBadRequest, 0},
		{"missing org", "session=sess-1", "", http.StatusBadRequest, 0},
		{"known session", "org=org-1&session=sess-1", "", http.StatusOK, 1},
		{"org from header", "session=sess-1", "org-1", http.StatusOK, 1},
		{"another org", "org=org-2&session=sess-1", "", http.StatusNotFound, 0},
		{"unknown session", "org=org-1&session=nope", "", http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chat/history?"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("X-Org-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.HandleHistory(rec, req)
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Messages []HistoryMessage `json:"messages"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotNil(t, body.Messages)
			assert.Len(t, body.Messages, tt.messages)
		})
	}
}
