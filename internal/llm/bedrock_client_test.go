package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type stubConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (s *stubConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.input = params
	return s.out, s.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
	}
}

func TestBedrockClient_MapsRolesAndSystem(t *testing.T) {
	api := &stubConverse{out: textOutput("  general answer  ")}
	client := NewBedrockClient(api, "anthropic.test-model")

	resp, err := client.Complete(context.Background(), Request{
		System: []string{"persona", " "},
		Messages: []Message{
			{Role: RoleSystem, Content: "summary"},
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, Content: "earlier"},
			{Role: RoleUser, Content: ""},
		},
		MaxTokens:   200,
		Temperature: -1,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != "general answer" {
		t.Fatalf("expected trimmed text, got %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected usage propagated, got %#v", resp.Usage)
	}
	if got := aws.ToString(api.input.ModelId); got != "anthropic.test-model" {
		t.Fatalf("expected default model id, got %q", got)
	}
	if len(api.input.System) != 2 {
		t.Fatalf("expected persona plus system message, got %d blocks", len(api.input.System))
	}
	if len(api.input.Messages) != 2 {
		t.Fatalf("expected 2 chat messages, got %d", len(api.input.Messages))
	}
	if api.input.InferenceConfig == nil || api.input.InferenceConfig.Temperature != nil {
		t.Fatalf("expected temperature omitted, got %#v", api.input.InferenceConfig)
	}
}

func TestBedrockClient_RejectsUnknownRole(t *testing.T) {
	client := NewBedrockClient(&stubConverse{out: textOutput("x")}, "m")
	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "tool", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error for unsupported role")
	}
}

func TestBedrockClient_RequiresModel(t *testing.T) {
	client := NewBedrockClient(&stubConverse{}, "")
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err == nil {
		t.Fatal("expected error when model is missing")
	}
}

func TestBedrockClient_PropagatesAPIError(t *testing.T) {
	client := NewBedrockClient(&stubConverse{err: errors.New("throttled")}, "m")
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err == nil {
		t.Fatal("expected api error")
	}
}

func TestBedrockOutputTextEmpty(t *testing.T) {
	if _, err := bedrockOutputText(textOutput("   ")); err == nil {
		t.Fatal("expected error for whitespace-only output")
	}
	if _, err := bedrockOutputText(nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}
