package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/intake-ai-platform/internal/llm"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const (
	offTopicMinWords       = 3
	defaultOffTopicTimeout = 5 * time.Second
)

// OffTopicGuard decides whether a question the knowledge base could not answer is outside the firm's
// practice, and phrases the redirect. It makes one model call and never retries.
type OffTopicGuard struct {
	llm     llm.Client
	persona Persona
	timeout time.Duration
	logger  *logging.Logger
}

func NewOffTopicGuard(client llm.Client, persona Persona, timeout time.Duration, logger *logging.Logger) *OffTopicGuard {
	if client == nil {
		panic("dialogue: llm client cannot be nil")
	}
	if persona.FirmName == "" {
		persona.FirmName = DefaultPersona().FirmName
	}
	if timeout <= 0 {
		timeout = defaultOffTopicTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OffTopicGuard{llm: client, persona: persona, timeout: timeout, logger: logger}
}

// ShouldCheck skips greetings and short replies, which are usually answers inside an ongoing exchange.
func (g *OffTopicGuard) ShouldCheck(utterance string) bool {
	u := newUtterance(utterance)
	if u.greetings > 0 && len(u.residual) == 0 {
		return false
	}
	return len(strings.Fields(u.norm)) >= offTopicMinWords
}

// IsOffTopic asks the model for an ON_TOPIC/OFF_TOPIC verdict. Any failure counts as on topic.
func (g *OffTopicGuard) IsOffTopic(ctx context.Context, query string, turns []Turn) bool {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	history := Summarize(turns)
	if history == "" {
		history = "No previous conversation"
	}
	resp, err := g.llm.Complete(ctx, llm.Request{
		System: []string{fmt.Sprintf(
			"You screen questions sent to the intake assistant of %s, a personal injury law firm. "+
				"Questions about injuries, accidents, insurance claims, legal process, the firm or its services are ON_TOPIC. "+
				"Follow-up questions that make sense given the conversation are ON_TOPIC. "+
				"Anything unrelated to the firm is OFF_TOPIC. Reply with exactly ON_TOPIC or OFF_TOPIC.",
			g.persona.FirmName)},
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Conversation so far:\n%s\n\nQuestion: %s", history, query),
		}},
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		g.logger.Warn("dialogue: off-topic check failed", "error", err)
		return false
	}
	verdict := strings.ToUpper(resp.Text)
	return strings.Contains(verdict, "OFF_TOPIC") || strings.Contains(verdict, "OFF-TOPIC")
}

// Redirect is the reply to an off-topic question.
func (g *OffTopicGuard) Redirect() string {
	return fmt.Sprintf("I appreciate the question, but I can only help with matters related to %s. "+
		"I'm happy to answer questions about accidents, injuries, insurance claims or scheduling a free consultation. "+
		"What can I help you with?", g.persona.FirmName)
}
