package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
)

type scriptedEngine struct {
	utterances []string
}

func (s *scriptedEngine) HandleTurn(_ context.Context, req dialogue.TurnRequest) (dialogue.TurnResult, error) {
	s.utterances = append(s.utterances, req.Utterance)
	if req.Utterance == "Hi" {
		return dialogue.TurnResult{Suppressed: true}, nil
	}
	return dialogue.TurnResult{Answer: "Were you the driver?", Category: dialogue.CategoryProgression}, nil
}

func (s *scriptedEngine) Session(context.Context, string) (dialogue.Record, error) {
	rec := dialogue.Record{State: dialogue.NewConversationState()}
	rec.State.UserTurnCount = 2
	rec.Profile.Email = "driver@example.com"
	return rec, nil
}

func TestREPL(t *testing.T) {
	engine := &scriptedEngine{}
	r := &repl{engine: engine, orgID: "org-1", sessionID: "s-1", mode: dialogue.ModeFAQ}
	var out bytes.Buffer

	in := strings.NewReader("Hi\n\nDo you take car accident cases?\n/state\n/quit\nnever read\n")
	require.NoError(t, r.run(context.Background(), in, &out))

	assert.Equal(t, []string{"Hi", "Do you take car accident cases?"}, engine.utterances)
	assert.Contains(t, out.String(), "(no response)")
	assert.Contains(t, out.String(), "[progression] Were you the driver?")
	assert.Contains(t, out.String(), "user_turns=2")
	assert.Contains(t, out.String(), `email="driver@example.com"`)
}
