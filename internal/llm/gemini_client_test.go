package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestGeminiHistoryMapsRoles(t *testing.T) {
	history := geminiHistory([]Message{
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleUser, Content: "Do you take car accident cases?"},
		{Role: RoleAssistant, Content: "Yes. Were you the driver?"},
		{Role: RoleUser, Content: "   "},
	})
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Fatalf("unexpected roles %q, %q", history[0].Role, history[1].Role)
	}
	if text, ok := history[1].Parts[0].(genai.Text); !ok || string(text) != "Yes. Were you the driver?" {
		t.Fatalf("unexpected part %#v", history[1].Parts[0])
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), " ", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestGeminiCompleteRequiresMessages(t *testing.T) {
	c := &GeminiClient{modelID: "gemini-2.5-flash"}
	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error without messages")
	}
}
