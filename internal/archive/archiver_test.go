package archive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

func sampleRecord() dialogue.Record {
	start := time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)
	st := dialogue.NewConversationState()
	st.Stage = dialogue.StageAwaitingName
	st.Turns = []dialogue.Turn{
		{Role: dialogue.RoleUser, Text: "Do you take car accident cases?", Timestamp: start, Intent: dialogue.IntentInformation, Topic: dialogue.TopicAutoAccident},
		{Role: dialogue.RoleAssistant, Text: "Absolutely.", Timestamp: start.Add(time.Second)},
		{Role: dialogue.RoleUser, Text: "my email is driver@example.com", Timestamp: start.Add(90 * time.Second)},
	}
	return dialogue.Record{
		Session: dialogue.Session{ID: "sess-1", OrgID: "org-1", Mode: dialogue.ModeFAQ},
		Profile: dialogue.UserProfile{Email: "driver@example.com"},
		State:   st,
		Version: 3,
	}
}

func TestBuildRecord(t *testing.T) {
	rec := BuildRecord(sampleRecord(), time.Date(2026, 2, 12, 16, 0, 0, 0, time.UTC))

	assert.Equal(t, "sess-1", rec.SessionID)
	assert.Equal(t, 3, rec.MessageCount)
	assert.Equal(t, 90, rec.DurationSeconds)
	assert.Equal(t, "my email is [EMAIL]", rec.Messages[2].Content)
	assert.Equal(t, HashIdentity("driver@example.com"), rec.IdentityHash)
	assert.Equal(t, OutcomeEngaged, rec.Outcome)
	assert.Equal(t, []string{dialogue.TopicAutoAccident}, rec.Labels.Topics)
	assert.False(t, rec.Labels.ContactCaptured)
}

func TestLabelSessionOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dialogue.Record)
		want   string
	}{
		{"contact captured", func(r *dialogue.Record) { r.Profile.Name = "Dana" }, OutcomeContactCaptured},
		{"escalated", func(r *dialogue.Record) { r.State.Stage = dialogue.StageEscalated }, OutcomeEscalated},
		{"declined", func(r *dialogue.Record) { r.State.CaptureAbandoned = true }, OutcomeCaptureDeclined},
		{"idle", func(r *dialogue.Record) { r.State.Stage = dialogue.StageIdle }, OutcomeNoEngagement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			tt.mutate(&rec)
			_, outcome := LabelSession(rec)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

type stubSessions struct {
	rec    dialogue.Record
	getErr error
	ended  []string
	endErr error
}

func (s *stubSessions) Session(context.Context, string) (dialogue.Record, error) {
	return s.rec, s.getErr
}

func (s *stubSessions) EndSession(_ context.Context, id string) error {
	s.ended = append(s.ended, id)
	return s.endErr
}

func serveArchive(h *Handler, sessionID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/admin/sessions/{sessionID}/archive", h.ArchiveSession)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/sessions/"+sessionID+"/archive", nil))
	return rec
}

func TestHandler_ArchiveThenEnd(t *testing.T) {
	mock := newMockS3()
	sessions := &stubSessions{rec: sampleRecord()}
	h := NewHandler(sessions, NewArchiver(NewStore(mock, "bucket", nil), nil), logging.New("error"))

	rec := serveArchive(h, "sess-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["archived"])
	assert.Equal(t, []string{"sess-1"}, sessions.ended)
	require.NotEmpty(t, mock.putCalls)
	assert.Contains(t, mock.putCalls[0].key, "/org-1/sess-1.json")
}

func TestHandler_ArchiveDisabledStillEnds(t *testing.T) {
	sessions := &stubSessions{rec: sampleRecord()}
	h := NewHandler(sessions, NewArchiver(NewStore(nil, "", nil), nil), logging.New("error"))

	rec := serveArchive(h, "sess-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"archived":false`)
	assert.Equal(t, []string{"sess-1"}, sessions.ended)
}

func TestHandler_ArchiveMissingSession(t *testing.T) {
	sessions := &stubSessions{getErr: dialogue.ErrSessionNotFound}
	h := NewHandler(sessions, NewArchiver(nil, nil), logging.New("error"))

	rec := serveArchive(h, "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, sessions.ended)

	sessions.getErr = errors.New("redis down")
	rec = serveArchive(h, "nope")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
