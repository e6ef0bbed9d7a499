package dialogue

import (
	"context"
	"strings"
	"time"
)

// Mode is the caller-selected conversation mode.
type Mode string

const (
	ModeFAQ         Mode = "faq"
	ModeLead        Mode = "lead"
	ModeAppointment Mode = "appointment"
	ModeSales       Mode = "sales"
)

// ParseMode normalizes a mode string; unknown or empty values mean faq.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLead:
		return ModeLead
	case ModeAppointment:
		return ModeAppointment
	case ModeSales:
		return ModeSales
	default:
		return ModeFAQ
	}
}

// Stage is the progression state machine position.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageAwaitingName  Stage = "awaiting_name"
	StageAwaitingEmail Stage = "awaiting_email"
	StageEngaged       Stage = "engaged"
	StageEscalated     Stage = "escalated"
)

// Category tags the kind of response an assistant turn carried.
type Category string

const (
	CategoryProgression    Category = "progression"
	CategoryAcknowledgment Category = "acknowledgment"
	CategoryKnowledge      Category = "knowledge"
	CategoryFallback       Category = "fallback"
	CategoryError          Category = "error"
	CategoryCapture        Category = "capture"
	CategoryEscalation     Category = "escalation"
	CategoryAppointment    Category = "appointment"
	CategoryGreeting       Category = "greeting"
	CategoryRefusal        Category = "refusal"
	CategoryOffTopic       Category = "off_topic"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session identifies one visitor conversation within an org.
type Session struct {
	ID           string    `json:"session_id"`
	OrgID        string    `json:"org_id"`
	Mode         Mode      `json:"mode"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

type Consent struct {
	Contact   bool `json:"contact"`
	Marketing bool `json:"marketing"`
}

// UserProfile holds contact fields confirmed so far. Name never holds an email-shaped value.
type UserProfile struct {
	Name             string  `json:"name,omitempty"`
	Email            string  `json:"email,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	ReturningVisitor bool    `json:"returning_visitor"`
	Consent          Consent `json:"consent"`
}

// Sanitized clears fields that violate profile invariants, such as legacy email-shaped names.
func (p UserProfile) Sanitized() UserProfile {
	if ContainsEmail(p.Name) {
		p.Name = ""
	}
	if p.Email != "" && !LooksLikeEmail(p.Email) {
		p.Email = ""
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return p
}

// HasIdentity reports whether any field usable for a returning-visitor lookup is set.
func (p UserProfile) HasIdentity() bool {
	return p.Email != "" || p.Name != ""
}

// Turn is one utterance in the bounded history window.
type Turn struct {
	Role      string     `json:"role"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Intent    IntentKind `json:"detected_intent,omitempty"`
	Topic     string     `json:"detected_topic,omitempty"`
	Urgency   Urgency    `json:"urgency,omitempty"`
}

// ResponseSignature identifies what an assistant turn said, for anti-repetition.
type ResponseSignature struct {
	Category Category `json:"category,omitempty"`
	Topic    string   `json:"topic,omitempty"`
	Step     int      `json:"step"`
	FollowUp int      `json:"follow_up,omitempty"`
}

// SameStep reports whether two signatures name the same (topic, step) pair.
func (s ResponseSignature) SameStep(other ResponseSignature) bool {
	return s.Category == other.Category && s.Topic == other.Topic && s.Step == other.Step
}

// ConversationState is owned by the Engine and only mutated inside a session's critical section.
type ConversationState struct {
	Stage                 Stage             `json:"stage"`
	Turns                 []Turn            `json:"turns"`
	LastSignature         ResponseSignature `json:"last_response_signature"`
	PreviousSignature     ResponseSignature `json:"previous_response_signature"`
	LastProgression       ResponseSignature `json:"last_progression"`
	ContactAskCount       int               `json:"contact_ask_count"`
	ContactLastAskedTurn  int               `json:"contact_last_asked_turn"`
	ContactLastAskedField string            `json:"contact_last_asked_field,omitempty"`
	CaptureAbandoned      bool              `json:"capture_abandoned"`
	ContactSaved          bool              `json:"contact_saved"`
	IdentityLookupKey     string            `json:"identity_lookup_key,omitempty"`
	AckIndex              int               `json:"ack_index"`
	LastAcknowledgment    string            `json:"last_acknowledgment,omitempty"`
	Welcomed              bool              `json:"welcomed"`
	UserTurnCount         int               `json:"user_turn_count"`
}

// NewConversationState returns the state of a session that has not spoken yet.
func NewConversationState() ConversationState {
	return ConversationState{Stage: StageIdle, ContactLastAskedTurn: -1}
}

// appendTurn adds t and drops the oldest turns beyond limit.
func (s *ConversationState) appendTurn(t Turn, limit int) {
	s.Turns = append(s.Turns, t)
	if limit > 0 && len(s.Turns) > limit {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-limit:]...)
	}
}

// Record is the unit persisted by a StateStore. Version 0 means never stored.
type Record struct {
	Session Session           `json:"session"`
	Profile UserProfile       `json:"profile"`
	State   ConversationState `json:"state"`
	Version int64             `json:"version"`
}

// Unscored marks a KnowledgeHit that carries no similarity score.
const Unscored = -1.0

// KnowledgeHit is a read-only retrieval result.
type KnowledgeHit struct {
	Excerpt   string  `json:"excerpt"`
	Score     float64 `json:"score"`
	SourceRef string  `json:"source_ref"`
}

// HasScore reports whether the collaborator supplied a normalized similarity score.
func (h KnowledgeHit) HasScore() bool {
	return h.Score >= 0
}

// Knowledge is the tenant-scoped knowledge collaborator.
type Knowledge interface {
	Search(ctx context.Context, namespace, query string) ([]KnowledgeHit, error)
	UpsertContact(ctx context.Context, namespace string, profile UserProfile) error
	LookupContact(ctx context.Context, namespace string, partial UserProfile) (UserProfile, bool, error)
}

// AppointmentScheduler receives consultation requests once contact details are known.
type AppointmentScheduler interface {
	RequestConsultation(ctx context.Context, namespace string, profile UserProfile, topic string) error
}

// UnansweredRecorder logs questions the knowledge base could not answer.
type UnansweredRecorder interface {
	RecordUnanswered(ctx context.Context, namespace, question string, confidence float64) error
}
