package dialogue

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/intake-ai-platform/internal/llm"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// IntentKind is the discrete class of a user utterance.
type IntentKind string

const (
	IntentGreeting     IntentKind = "greeting"
	IntentAppreciation IntentKind = "appreciation"
	IntentNextStep     IntentKind = "next_step_query"
	IntentRefusal      IntentKind = "refusal"
	IntentInformation  IntentKind = "information_request"
	IntentAppointment  IntentKind = "appointment_request"
	IntentUnclassified IntentKind = "unclassified"
)

// Intent is the classifier output. Meaningful only applies to greetings; Topic only to information requests.
type Intent struct {
	Kind       IntentKind
	Meaningful bool
	Topic      string
	Urgent     bool
	Rule       string
}

const (
	defaultClassifierTimeout = 3 * time.Second
	minLLMWords              = 4
)

// utterance is the pre-computed view every rule guard reads.
type utterance struct {
	raw       string
	norm      string
	tokens    []string
	topic     string
	salient   bool
	question  bool
	greetings int
	residual  []string
}

func newUtterance(raw string) utterance {
	norm := normalize(raw)
	u := utterance{raw: raw, norm: norm}
	stripped := greetingPhrasePattern.ReplaceAllString(norm, " hi ")
	u.tokens = words(stripped)
	for _, tok := range u.tokens {
		if _, ok := greetingTokens[tok]; ok {
			u.greetings++
			continue
		}
		if _, ok := greetingFiller[tok]; ok {
			continue
		}
		u.residual = append(u.residual, tok)
	}
	u.topic = detectTopic(norm)
	u.salient = hasSalientContent(u.tokens)
	u.question = isQuestion(norm)
	return u
}

func (u utterance) substantive() bool {
	return u.topic != "" || u.salient || (u.question && len(u.residual) >= 4)
}

// classifierRule is one row of the (pattern, guard) -> intent table. Rows are evaluated in order.
type classifierRule struct {
	name    string
	pattern *regexp.Regexp
	guard   func(u utterance, st *ConversationState) bool
	intent  func(u utterance) Intent
}

func (r classifierRule) matches(u utterance, st *ConversationState) bool {
	if r.pattern != nil && !r.pattern.MatchString(u.norm) {
		return false
	}
	if r.guard != nil && !r.guard(u, st) {
		return false
	}
	return true
}

func fixed(kind IntentKind) func(utterance) Intent {
	return func(utterance) Intent { return Intent{Kind: kind} }
}

func awaitingCapture(st *ConversationState) bool {
	return st != nil && (st.Stage == StageAwaitingName || st.Stage == StageAwaitingEmail)
}

var defaultRules = []classifierRule{
	{
		name:    "appointment",
		pattern: appointmentPattern,
		intent:  fixed(IntentAppointment),
	},
	{
		name:    "accept_consultation",
		pattern: affirmativePattern,
		guard: func(u utterance, st *ConversationState) bool {
			return st != nil && st.LastSignature.Category == CategoryProgression &&
				defaultProgression.StepID(st.LastSignature) == stepOfferConsultation
		},
		intent: fixed(IntentAppointment),
	},
	{
		name:    "next_step",
		pattern: nextStepPattern,
		intent:  fixed(IntentNextStep),
	},
	{
		name:    "refusal",
		pattern: strongRefusal,
		intent:  fixed(IntentRefusal),
	},
	{
		name:    "refusal_pending_capture",
		pattern: weakRefusal,
		guard:   func(u utterance, st *ConversationState) bool { return awaitingCapture(st) },
		intent:  fixed(IntentRefusal),
	},
	{
		name:    "appreciation",
		pattern: appreciationPattern,
		guard:   func(u utterance, st *ConversationState) bool { return !u.substantive() },
		intent:  fixed(IntentAppreciation),
	},
	{
		name: "greeting_only",
		guard: func(u utterance, st *ConversationState) bool {
			return u.greetings > 0 && len(u.residual) == 0
		},
		intent: func(utterance) Intent { return Intent{Kind: IntentGreeting, Meaningful: false} },
	},
	{
		name: "greeting_smalltalk",
		guard: func(u utterance, st *ConversationState) bool {
			return u.greetings > 0 && !u.substantive() && len(u.residual) <= 3
		},
		intent: func(utterance) Intent { return Intent{Kind: IntentGreeting, Meaningful: true} },
	},
	{
		name:  "information",
		guard: func(u utterance, st *ConversationState) bool { return u.substantive() },
		intent: func(u utterance) Intent {
			topic := u.topic
			if topic == "" {
				topic = TopicGeneral
			}
			return Intent{Kind: IntentInformation, Topic: topic}
		},
	},
}

// Classifier maps an utterance to an Intent. Lexical rules run first; the language model is only consulted
// when no rule fires and the utterance is long enough.
type Classifier struct {
	rules   []classifierRule
	llm     llm.Client
	timeout time.Duration
	logger  *logging.Logger
}

// NewClassifier builds a classifier. A nil client disables model escalation.
func NewClassifier(client llm.Client, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{
		rules:   defaultRules,
		llm:     client,
		timeout: defaultClassifierTimeout,
		logger:  logger,
	}
}

// Classify never fails; errors degrade to IntentUnclassified.
func (c *Classifier) Classify(ctx context.Context, text string, st *ConversationState) Intent {
	u := newUtterance(text)
	urgent := redFlagPattern.MatchString(u.norm)

	for _, rule := range c.rules {
		if rule.matches(u, st) {
			intent := rule.intent(u)
			intent.Rule = rule.name
			intent.Urgent = urgent
			return intent
		}
	}

	intent := Intent{Kind: IntentUnclassified}
	if c.llm != nil && len(strings.Fields(u.norm)) >= minLLMWords && !ContainsEmail(text) {
		intent = c.classifyWithModel(ctx, text)
	}
	intent.Urgent = urgent
	return intent
}

const classifierPrompt = `You label messages sent to a personal injury law firm's intake chat.
Reply with JSON only: {"intent": "<intent>", "topic": "<topic>"}.
intent is one of: information_request, appointment_request, next_step_query, appreciation, refusal, greeting, unclassified.
topic is one of: auto_accident, slip_and_fall, workplace_injury, medical_malpractice, general.`

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func (c *Classifier) classifyWithModel(ctx context.Context, text string) Intent {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.llm.Complete(ctx, llm.Request{
		System:      []string{classifierPrompt},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   60,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("dialogue: classifier model call failed", "error", err)
		return Intent{Kind: IntentUnclassified, Rule: "llm_error"}
	}
	return parseModelIntent(resp.Text)
}

func parseModelIntent(raw string) Intent {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return Intent{Kind: IntentUnclassified, Rule: "llm_unparsed"}
	}
	var parsed struct {
		Intent string `json:"intent"`
		Topic  string `json:"topic"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return Intent{Kind: IntentUnclassified, Rule: "llm_unparsed"}
	}

	intent := Intent{Rule: "llm"}
	switch IntentKind(strings.ToLower(strings.TrimSpace(parsed.Intent))) {
	case IntentInformation:
		intent.Kind = IntentInformation
		intent.Topic = knownTopic(parsed.Topic)
	case IntentAppointment:
		intent.Kind = IntentAppointment
	case IntentNextStep:
		intent.Kind = IntentNextStep
	case IntentAppreciation:
		intent.Kind = IntentAppreciation
	case IntentRefusal:
		intent.Kind = IntentRefusal
	case IntentGreeting:
		// Lexical rules already own greeting-only messages.
		intent.Kind = IntentGreeting
		intent.Meaningful = true
	default:
		intent.Kind = IntentUnclassified
	}
	return intent
}

func knownTopic(topic string) string {
	switch topic = strings.ToLower(strings.TrimSpace(topic)); topic {
	case TopicAutoAccident, TopicSlipAndFall, TopicWorkplaceInjury, TopicMedicalMalpractice:
		return topic
	default:
		return TopicGeneral
	}
}
