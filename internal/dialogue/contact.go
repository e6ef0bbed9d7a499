package dialogue

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	exactEmailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

	strongNameCue = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name's|call me)\s+(.+)`)
	weakNameCue   = regexp.MustCompile(`(?i)\b(?:i am|i'm|im|this is)\s+(.+)`)
	hereNameCue   = regexp.MustCompile(`^([A-Za-z][A-Za-z'-]*(?:\s+[A-Za-z][A-Za-z'-]*)?)\s+here\b`)
	nameToken     = regexp.MustCompile(`^[A-Za-z][A-Za-z'-]*$`)

	nameStopWords = setOf(
		"hi", "hello", "hey", "yes", "yeah", "yep", "no", "nope", "nah", "ok", "okay", "sure", "thanks", "thank", "please",
		"driver", "passenger", "pedestrian", "accident", "car", "injury", "injured", "hurt", "pain", "fine", "good", "great",
		"safe", "well", "not", "so", "very", "really", "just", "a", "an", "the", "from", "in", "at", "on", "with", "and",
		"but", "or", "here", "there", "interested", "looking", "calling", "writing", "wondering", "trying", "going",
		"having", "still", "also", "sorry", "glad", "happy", "afraid", "ready", "back", "tomorrow", "today", "soon",
		"later", "anytime", "lawyer", "attorney", "email", "name", "my", "your", "is", "was", "it", "this", "that",
		"what", "who", "why", "how", "when", "where", "doing", "confused", "skip", "anonymous", "pass", "none",
		"nobody", "unsure", "maybe", "asking", "about", "for", "to", "of", "been", "being", "feeling", "done",
	)
)

// ContainsEmail reports whether text holds an email-shaped substring anywhere.
func ContainsEmail(text string) bool {
	return emailPattern.MatchString(text)
}

// LooksLikeEmail reports whether the whole value is an email address.
func LooksLikeEmail(value string) bool {
	return exactEmailPattern.MatchString(strings.TrimSpace(value))
}

// FieldKind tags what an extraction produced.
type FieldKind string

const (
	FieldEmail        FieldKind = "email"
	FieldName         FieldKind = "name"
	FieldUnclassified FieldKind = "unclassified"
)

// Extraction is the tagged result of the contact field validator chain.
type Extraction struct {
	Kind  FieldKind
	Value string
}

// fieldValidator returns ok=true to claim the text and stop the chain.
type fieldValidator func(text string, awaitingName bool) (Extraction, bool)

// fieldValidators is ordered: email is always tested first so an address can never become a name.
var fieldValidators = []fieldValidator{
	extractEmail,
	extractCuedName,
	extractBareName,
}

// ExtractContact runs the validator chain over free text.
func ExtractContact(text string, awaitingName bool) Extraction {
	for _, validate := range fieldValidators {
		if ex, ok := validate(text, awaitingName); ok {
			return ex
		}
	}
	return Extraction{Kind: FieldUnclassified}
}

func extractEmail(text string, _ bool) (Extraction, bool) {
	match := emailPattern.FindString(text)
	if match == "" {
		return Extraction{}, false
	}
	return Extraction{Kind: FieldEmail, Value: strings.ToLower(match)}, true
}

func extractCuedName(text string, awaitingName bool) (Extraction, bool) {
	trimmed := strings.TrimSpace(text)
	if m := strongNameCue.FindStringSubmatch(trimmed); m != nil {
		if name := cleanNameCandidate(m[1]); name != "" {
			return Extraction{Kind: FieldName, Value: name}, true
		}
	}
	if m := weakNameCue.FindStringSubmatch(trimmed); m != nil {
		rest := strings.TrimSpace(m[1])
		if awaitingName || startsUpper(rest) {
			if name := cleanNameCandidate(rest); name != "" {
				return Extraction{Kind: FieldName, Value: name}, true
			}
		}
	}
	if m := hereNameCue.FindStringSubmatch(trimmed); m != nil && startsUpper(m[1]) {
		if name := cleanNameCandidate(m[1]); name != "" {
			return Extraction{Kind: FieldName, Value: name}, true
		}
	}
	return Extraction{}, false
}

func extractBareName(text string, awaitingName bool) (Extraction, bool) {
	if !awaitingName {
		return Extraction{}, false
	}
	candidate := strings.TrimRight(strings.TrimSpace(text), ".!")
	if candidate == "" || len(candidate) > 50 {
		return Extraction{}, false
	}
	fields := strings.Fields(candidate)
	if len(fields) == 0 || len(fields) > 3 {
		return Extraction{}, false
	}
	for _, f := range fields {
		if !nameToken.MatchString(f) {
			return Extraction{}, false
		}
		if _, stop := nameStopWords[strings.ToLower(f)]; stop {
			return Extraction{}, false
		}
	}
	name := formatName(fields)
	if len(name) < 2 {
		return Extraction{}, false
	}
	return Extraction{Kind: FieldName, Value: name}, true
}

// cleanNameCandidate keeps up to three name tokens, cutting at punctuation or the first stop word.
func cleanNameCandidate(rest string) string {
	var kept []string
	for _, raw := range strings.Fields(rest) {
		tok := strings.TrimRight(raw, ".,!?;:")
		if !nameToken.MatchString(tok) {
			break
		}
		if _, stop := nameStopWords[strings.ToLower(tok)]; stop {
			break
		}
		kept = append(kept, tok)
		if tok != raw || len(kept) == 3 {
			break
		}
	}
	name := formatName(kept)
	if len(name) < 2 || len(name) > 50 {
		return ""
	}
	return name
}

func formatName(tokens []string) string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == strings.ToLower(tok) || tok == strings.ToUpper(tok) {
			tok = strings.ToLower(tok)
		}
		r := []rune(tok)
		r[0] = unicode.ToUpper(r[0])
		out = append(out, string(r))
	}
	return strings.Join(out, " ")
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// CaptureDecision is the Contact Capture Policy output.
type CaptureDecision string

const (
	CaptureAskName  CaptureDecision = "ask_name"
	CaptureAskEmail CaptureDecision = "ask_email"
	CaptureSkip     CaptureDecision = "skip"
)

const askNamePrompt = "By the way, what should I call you? This helps me personalize our conversation."

// CapturePrompt renders the question appended to an answer for a decision.
func CapturePrompt(decision CaptureDecision, profile UserProfile) string {
	switch decision {
	case CaptureAskName:
		return askNamePrompt
	case CaptureAskEmail:
		greeting := "Thanks"
		if profile.Name != "" {
			greeting = fmt.Sprintf("Thanks, %s", profile.Name)
		}
		return greeting + "! If you'd like me to send you some helpful information, what's your email address?"
	default:
		return ""
	}
}

// CaptureConfig tunes when contact details may be requested.
type CaptureConfig struct {
	// AskWindow is the number of user turns before the same field may be requested again.
	AskWindow int
	// MaxAsks is the number of unanswered prompts after which capture is abandoned.
	MaxAsks int
	// MinUserTurns delays unprompted asks outside appointment mode.
	MinUserTurns      int
	InterestThreshold float64
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{AskWindow: 3, MaxAsks: 2, MinUserTurns: 5, InterestThreshold: 0.6}
}

// CaptureInput is everything the policy needs to decide one turn.
type CaptureInput struct {
	State     *ConversationState
	Mode      Mode
	Profile   UserProfile
	Utterance string
	// Volunteered is set when the visitor offered contact details or asked to be contacted this turn.
	Volunteered bool
}

type CapturePolicy struct {
	cfg CaptureConfig
}

func NewCapturePolicy(cfg CaptureConfig) *CapturePolicy {
	def := DefaultCaptureConfig()
	if cfg.AskWindow <= 0 {
		cfg.AskWindow = def.AskWindow
	}
	if cfg.MaxAsks <= 0 {
		cfg.MaxAsks = def.MaxAsks
	}
	if cfg.MinUserTurns < 0 {
		cfg.MinUserTurns = def.MinUserTurns
	}
	if cfg.InterestThreshold <= 0 {
		cfg.InterestThreshold = def.InterestThreshold
	}
	return &CapturePolicy{cfg: cfg}
}

// Decide returns which field to ask for, if any. Returning visitors are never asked.
func (p *CapturePolicy) Decide(in CaptureInput) CaptureDecision {
	st := in.State
	if st == nil || in.Profile.ReturningVisitor || st.CaptureAbandoned || st.ContactAskCount >= p.cfg.MaxAsks {
		return CaptureSkip
	}

	field := CaptureSkip
	switch {
	case in.Profile.Name == "":
		field = CaptureAskName
	case in.Profile.Email == "":
		field = CaptureAskEmail
	default:
		return CaptureSkip
	}

	if st.ContactLastAskedField == string(field) && st.ContactLastAskedTurn >= 0 &&
		st.UserTurnCount-st.ContactLastAskedTurn < p.cfg.AskWindow {
		return CaptureSkip
	}

	if in.Mode != ModeAppointment {
		if st.UserTurnCount < p.cfg.MinUserTurns {
			return CaptureSkip
		}
		if !in.Volunteered && EngagementScore(st, in.Utterance) < p.cfg.InterestThreshold {
			return CaptureSkip
		}
	}
	return field
}

// EngagementScore estimates case interest from prior turns and the current utterance, in [0,1].
func EngagementScore(st *ConversationState, utterance string) float64 {
	var score float64
	if st != nil {
		score += min(0.1*float64(len(st.Turns)), 0.4)

		recent := st.Turns
		if len(recent) > 6 {
			recent = recent[len(recent)-6:]
		}
		userTurns := 0
		for _, t := range recent {
			if t.Role == RoleUser {
				userTurns++
			}
		}
		if userTurns >= 2 {
			score += 0.2
		}
	}

	tokens := words(normalize(utterance))
	if len(strings.Fields(utterance)) > 5 {
		score += 0.2
	}
	for _, tok := range tokens {
		if _, ok := interestKeywords[tok]; ok {
			score += 0.3
			break
		}
	}
	return min(score, 1.0)
}
