package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/intake-ai-platform/internal/llm"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const (
	staticErrorMessage     = "I apologize, but I'm experiencing technical difficulties. Please try again in a moment."
	defaultDisclaimer      = "This is general information, not legal advice. For advice about your situation, please speak with one of our attorneys."
	defaultGenerateTimeout = 20 * time.Second
	maxGenerateAttempts    = 2
	summaryTurns           = 6
	summaryTurnChars       = 200
)

// Persona carries the domain constraints every generated answer must respect.
type Persona struct {
	AssistantName string
	FirmName      string
	Disclaimer    string
}

func DefaultPersona() Persona {
	return Persona{AssistantName: "Intake Assistant", FirmName: "our firm", Disclaimer: defaultDisclaimer}
}

// GenerationInput is the compact context handed to the language model.
type GenerationInput struct {
	Query   string
	Summary string
	Profile UserProfile
	Hits    []KnowledgeHit
}

// Generated is model output tagged with the category it should be recorded under.
type Generated struct {
	Text     string
	Category Category
	Degraded bool
}

// FallbackGenerator produces answers through the language model, with at most one retry. When the
// client fails over to a second provider on its own, that hop is the retry.
type FallbackGenerator struct {
	llm      llm.Client
	persona  Persona
	timeout  time.Duration
	attempts int
	logger   *logging.Logger
}

func NewFallbackGenerator(client llm.Client, persona Persona, timeout time.Duration, logger *logging.Logger) *FallbackGenerator {
	if client == nil {
		panic("dialogue: llm client cannot be nil")
	}
	if persona.AssistantName == "" {
		persona.AssistantName = DefaultPersona().AssistantName
	}
	if persona.FirmName == "" {
		persona.FirmName = DefaultPersona().FirmName
	}
	if strings.TrimSpace(persona.Disclaimer) == "" {
		persona.Disclaimer = defaultDisclaimer
	}
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	attempts := maxGenerateAttempts
	if r, ok := client.(llm.Retrier); ok && r.RetriesOnFailure() {
		// Both hops share one call, so give it room for each.
		attempts = 1
		timeout *= maxGenerateAttempts
	}
	return &FallbackGenerator{llm: client, persona: persona, timeout: timeout, attempts: attempts, logger: logger}
}

// Fallback answers without knowledge-base context. The result is tagged fallback, or error when degraded.
func (g *FallbackGenerator) Fallback(ctx context.Context, in GenerationInput) Generated {
	return g.generate(ctx, in, CategoryFallback)
}

// Grounded answers from retrieved excerpts. The result is tagged knowledge, or error when degraded.
func (g *FallbackGenerator) Grounded(ctx context.Context, in GenerationInput) Generated {
	return g.generate(ctx, in, CategoryKnowledge)
}

func (g *FallbackGenerator) generate(ctx context.Context, in GenerationInput, category Category) Generated {
	req := llm.Request{
		System:      []string{g.systemPrompt(in)},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: in.Query}},
		MaxTokens:   400,
		Temperature: 0.3,
	}

	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		text, err := g.complete(ctx, req)
		if err == nil {
			return Generated{Text: g.withDisclaimer(text), Category: category}
		}
		lastErr = err
		g.logger.Warn("dialogue: generation attempt failed", "attempt", attempt, "category", category, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	g.logger.Error("dialogue: generation degraded to static message", "error", lastErr)
	return Generated{Text: staticErrorMessage, Category: CategoryError, Degraded: true}
}

func (g *FallbackGenerator) complete(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.llm.Complete(ctx, req)
	if err != nil {
		return "", llm.Unavailable(err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", llm.Unavailable(errors.New("empty completion"))
	}
	return text, nil
}

func (g *FallbackGenerator) withDisclaimer(text string) string {
	disclaimer := strings.TrimSpace(g.persona.Disclaimer)
	if disclaimer == "" || strings.Contains(text, disclaimer) {
		return text
	}
	return text + "\n\n" + disclaimer
}

func (g *FallbackGenerator) systemPrompt(in GenerationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, the virtual intake assistant for %s, a personal injury law firm. ", g.persona.AssistantName, g.persona.FirmName)
	b.WriteString("Give brief, general information in plain language, at most four sentences. ")
	b.WriteString("Never give legal advice, predict case outcomes or promise results. ")
	b.WriteString("When a question depends on the visitor's specific facts, suggest a free consultation with an attorney.")

	if len(in.Hits) > 0 {
		b.WriteString("\n\nAnswer using only this firm information:\n")
		for _, h := range in.Hits {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(h.Excerpt))
		}
	}
	if in.Profile.Name != "" {
		fmt.Fprintf(&b, "\nThe visitor's name is %s.", in.Profile.Name)
	}
	if in.Summary != "" {
		b.WriteString("\n\nRecent conversation:\n")
		b.WriteString(in.Summary)
	}
	return b.String()
}

// Summarize renders the last few turns as "User:"/"Assistant:" lines, each truncated.
func Summarize(turns []Turn) string {
	if len(turns) > summaryTurns {
		turns = turns[len(turns)-summaryTurns:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "User"
		if t.Role == RoleAssistant {
			speaker = "Assistant"
		}
		text := strings.TrimSpace(t.Text)
		if r := []rune(text); len(r) > summaryTurnChars {
			text = string(r[:summaryTurnChars]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, text))
	}
	return strings.Join(lines, "\n")
}
