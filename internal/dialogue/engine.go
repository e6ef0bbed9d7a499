package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/intake-ai-platform/internal/llm"
	"github.com/wolfman30/intake-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const (
	defaultHistoryLimit   = 20
	defaultCASAttempts    = 3
	defaultLookupTimeout  = 5 * time.Second
	escalationMessage     = "Please seek immediate medical care for those symptoms. Your health comes first. Once you're safe, we can continue with the intake process."
	refusalMessage        = "No problem at all. Is there anything else I can help you with?"
	skipCaptureMessage    = "No problem, we can skip that. What else can I help you with?"
	appointmentAskMessage = "I'd be glad to set up a free consultation with one of our attorneys."
	appointmentNoContact  = "I'd be happy to help you schedule a free consultation. You can also call our office and a team member will set it up with you."
)

// TurnRequest is one inbound utterance.
type TurnRequest struct {
	SessionID string
	OrgID     string
	Utterance string
	Mode      Mode
	// UserData carries contact fields the client already knows; only missing profile fields are filled.
	UserData UserProfile
}

// TurnResult is what the transport returns. Suppressed turns carry no answer.
type TurnResult struct {
	SessionID  string
	Answer     string
	Suppressed bool
	Category   Category
	Signature  ResponseSignature
	Intent     Intent
	Mode       Mode
	Stage      Stage
	Profile    UserProfile
	Capture    CaptureDecision
}

// Engine is the conversation progression engine. Each session is processed inside its own critical
// section, and state is committed through the store's compare-and-swap.
type Engine struct {
	store       StateStore
	knowledge   Knowledge
	llm         llm.Client
	classifier  *Classifier
	retriever   *Retriever
	generator   *FallbackGenerator
	offTopic    *OffTopicGuard
	capture     *CapturePolicy
	progression *Progression
	scheduler   AppointmentScheduler
	unanswered  UnansweredRecorder
	metrics     *metrics.DialogueMetrics
	tracer      trace.Tracer
	logger      *logging.Logger
	locks       *sessionLocks
	now         func() time.Time

	historyLimit  int
	casAttempts   int
	lookupTimeout time.Duration
	llmTimeout    time.Duration
	persona       Persona
	retrievalCfg  RetrievalConfig
	captureCfg    CaptureConfig
}

type EngineOption func(*Engine)

func WithRetrievalConfig(cfg RetrievalConfig) EngineOption {
	return func(e *Engine) { e.retrievalCfg = cfg }
}

func WithCaptureConfig(cfg CaptureConfig) EngineOption {
	return func(e *Engine) { e.captureCfg = cfg }
}

func WithPersona(p Persona) EngineOption {
	return func(e *Engine) { e.persona = p }
}

// WithLLMTimeout bounds each generation attempt.
func WithLLMTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.llmTimeout = d }
}

func WithHistoryLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

func WithScheduler(s AppointmentScheduler) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.scheduler = s
		}
	}
}

func WithUnansweredRecorder(r UnansweredRecorder) EngineOption {
	return func(e *Engine) { e.unanswered = r }
}

func WithMetrics(m *metrics.DialogueMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithProgression(p *Progression) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.progression = p
		}
	}
}

// NewEngine wires the engine. store, knowledge and client are required.
func NewEngine(store StateStore, knowledge Knowledge, client llm.Client, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil {
		panic("dialogue: state store cannot be nil")
	}
	if knowledge == nil {
		panic("dialogue: knowledge collaborator cannot be nil")
	}
	if client == nil {
		panic("dialogue: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		store:         store,
		knowledge:     knowledge,
		llm:           client,
		progression:   defaultProgression,
		tracer:        otel.Tracer("intake.internal.dialogue"),
		logger:        logger,
		locks:         newSessionLocks(),
		now:           func() time.Time { return time.Now().UTC() },
		historyLimit:  defaultHistoryLimit,
		casAttempts:   defaultCASAttempts,
		lookupTimeout: defaultLookupTimeout,
		persona:       DefaultPersona(),
		retrievalCfg:  DefaultRetrievalConfig(),
		captureCfg:    DefaultCaptureConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.scheduler = NewLoggingScheduler(logger)
	}

	e.classifier = NewClassifier(client, logger)
	e.retriever = NewRetriever(knowledge, e.retrievalCfg)
	e.generator = NewFallbackGenerator(client, e.persona, e.llmTimeout, logger)
	e.offTopic = NewOffTopicGuard(client, e.persona, e.llmTimeout, logger)
	e.capture = NewCapturePolicy(e.captureCfg)
	if e.retrievalCfg.Timeout > 0 {
		e.lookupTimeout = e.retrievalCfg.Timeout
	}
	return e
}

// HandleTurn processes one utterance. Degraded collaborators never fail the turn; only state
// persistence errors are returned.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return TurnResult{}, ErrMissingSessionID
	}
	ctx, span := e.tracer.Start(ctx, "dialogue.handle_turn", trace.WithAttributes(
		attribute.String("org_id", req.OrgID),
		attribute.String("session_id", req.SessionID),
	))
	defer span.End()

	start := time.Now()
	logger := e.logger.With("org_id", req.OrgID, "session_id", req.SessionID)

	unlock := e.locks.lock(req.SessionID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		rec, err := e.load(ctx, req)
		if err != nil {
			span.RecordError(err)
			return TurnResult{}, err
		}
		if stored := rec.Session.OrgID; stored != "" && strings.TrimSpace(req.OrgID) != "" && stored != strings.TrimSpace(req.OrgID) {
			logger.Warn("dialogue: session belongs to another org", "session_org_id", stored)
			return TurnResult{}, ErrOrgMismatch
		}
		expected := rec.Version

		result, next, fx := e.decide(ctx, rec, req, logger)
		err = e.store.CompareAndSwap(ctx, req.SessionID, expected, next)
		if err == nil {
			e.applyEffects(ctx, next, expected+1, &result, fx, logger)
			outcome := string(result.Category)
			if result.Suppressed {
				outcome = "suppressed"
			}
			e.metrics.ObserveTurn(string(result.Intent.Kind), outcome, time.Since(start).Seconds())
			span.SetAttributes(
				attribute.String("intent", string(result.Intent.Kind)),
				attribute.String("category", string(result.Category)),
			)
			logger.Info("dialogue: turn handled",
				"intent", result.Intent.Kind,
				"rule", result.Intent.Rule,
				"category", result.Category,
				"suppressed", result.Suppressed,
				"stage", result.Stage,
			)
			return result, nil
		}
		if errors.Is(err, ErrVersionConflict) && attempt < e.casAttempts {
			e.metrics.ObserveStateConflict()
			logger.Warn("dialogue: state conflict, retrying turn", "attempt", attempt)
			continue
		}
		span.RecordError(err)
		return TurnResult{}, fmt.Errorf("dialogue: commit turn: %w", err)
	}
}

// Session returns the stored record for a session.
func (e *Engine) Session(ctx context.Context, sessionID string) (Record, error) {
	return e.store.Get(ctx, sessionID)
}

// EndSession drops a session's state. Archival is the caller's concern.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	unlock := e.locks.lock(sessionID)
	defer unlock()
	return e.store.Delete(ctx, sessionID)
}

func (e *Engine) load(ctx context.Context, req TurnRequest) (Record, error) {
	rec, err := e.store.Get(ctx, req.SessionID)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrSessionNotFound):
		now := e.now()
		return Record{
			Session: Session{
				ID:        req.SessionID,
				OrgID:     req.OrgID,
				Mode:      ModeFAQ,
				CreatedAt: now,
			},
			State: NewConversationState(),
		}, nil
	default:
		return Record{}, fmt.Errorf("dialogue: load session: %w", err)
	}
}

// reply is the branch outcome before capture prompts are appended.
type reply struct {
	text       string
	sig        ResponseSignature
	suppressed bool
	// decision, when set, is a capture decision already taken by the branch.
	decision CaptureDecision
}

// decide computes the turn without side effects outside the record. Writes to collaborators are
// returned as effects and run only once the record is committed.
func (e *Engine) decide(ctx context.Context, rec Record, req TurnRequest, logger *logging.Logger) (TurnResult, Record, *turnEffects) {
	fx := &turnEffects{}
	now := e.now()
	st := &rec.State
	if st.Stage == "" {
		st.Stage = StageIdle
	}
	if rec.Session.ID == "" {
		rec.Session.ID = req.SessionID
	}
	if rec.Session.OrgID == "" {
		rec.Session.OrgID = req.OrgID
	}
	if req.Mode != "" {
		rec.Session.Mode = req.Mode
	}
	rec.Session.LastActiveAt = now
	org := rec.Session.OrgID

	profile := rec.Profile.Sanitized()
	if profile.Name != strings.TrimSpace(rec.Profile.Name) {
		logger.Warn("dialogue: cleared invalid stored name")
	}
	profile = mergeUserData(profile, req.UserData)

	st.UserTurnCount++
	wasAwaitingName := st.Stage == StageAwaitingName
	wasAwaitingEmail := st.Stage == StageAwaitingEmail

	intent := e.classifier.Classify(ctx, req.Utterance, st)
	captured := applyExtraction(&profile, ExtractContact(req.Utterance, wasAwaitingName))

	if profile.HasIdentity() && !profile.ReturningVisitor &&
		((st.UserTurnCount == 1) || captured == FieldEmail) {
		e.resolveReturning(ctx, org, &profile, st, logger)
	}

	if wasAwaitingName || wasAwaitingEmail {
		answered := (wasAwaitingName && profile.Name != "") || (wasAwaitingEmail && profile.Email != "")
		switch {
		case answered:
			st.ContactAskCount = 0
		case intent.Kind == IntentRefusal:
			st.CaptureAbandoned = true
			fx.captures = append(fx.captures, "abandoned")
		default:
			st.ContactAskCount++
			if st.ContactAskCount >= e.capture.cfg.MaxAsks {
				st.CaptureAbandoned = true
				fx.captures = append(fx.captures, "abandoned")
			}
		}
	}

	var out reply
	if intent.Urgent {
		out = reply{text: escalationMessage, sig: ResponseSignature{Category: CategoryEscalation}}
	} else {
		out = e.branch(ctx, fx, org, rec.Session.Mode, st, profile, intent, req.Utterance, captured, wasAwaitingName || wasAwaitingEmail, logger)
	}

	decision := CaptureSkip
	if !out.suppressed && !intent.Urgent && out.sig.Category != CategoryError {
		decision = out.decision
		if decision == "" {
			decision = e.capture.Decide(CaptureInput{
				State:       st,
				Mode:        rec.Session.Mode,
				Profile:     profile,
				Utterance:   req.Utterance,
				Volunteered: captured != "",
			})
		}
		fx.captures = append(fx.captures, string(decision))
		if decision != CaptureSkip {
			prompt := CapturePrompt(decision, profile)
			if out.sig.Category == CategoryCapture && captured == FieldName && decision == CaptureAskEmail {
				out.text = prompt
			} else {
				out.text = joinSentences(out.text, prompt)
			}
			st.ContactLastAskedTurn = st.UserTurnCount
			st.ContactLastAskedField = string(decision)
		}
	}

	if profile.Name != "" && profile.Email != "" && !st.ContactSaved {
		saved := profile
		fx.contact = &saved
		st.ContactSaved = true
	}

	switch {
	case intent.Urgent:
		st.Stage = StageEscalated
	case decision == CaptureAskName:
		st.Stage = StageAwaitingName
	case decision == CaptureAskEmail:
		st.Stage = StageAwaitingEmail
	case !st.CaptureAbandoned && wasAwaitingName && profile.Name == "":
		st.Stage = StageAwaitingName
	case !st.CaptureAbandoned && wasAwaitingEmail && profile.Email == "":
		st.Stage = StageAwaitingEmail
	case out.suppressed && st.Stage == StageIdle:
	default:
		st.Stage = StageEngaged
	}

	urgency := UrgencyNormal
	if intent.Urgent {
		urgency = UrgencyHigh
	}
	st.appendTurn(Turn{
		Role:      RoleUser,
		Text:      req.Utterance,
		Timestamp: now,
		Intent:    intent.Kind,
		Topic:     intent.Topic,
		Urgency:   urgency,
	}, e.historyLimit)

	if !out.suppressed {
		st.appendTurn(Turn{Role: RoleAssistant, Text: out.text, Timestamp: now}, e.historyLimit)
		st.PreviousSignature = st.LastSignature
		st.LastSignature = out.sig
		if out.sig.Category == CategoryProgression {
			st.LastProgression = out.sig
		}
	}
	rec.Profile = profile

	return TurnResult{
		SessionID:  rec.Session.ID,
		Answer:     out.text,
		Suppressed: out.suppressed,
		Category:   out.sig.Category,
		Signature:  out.sig,
		Intent:     intent,
		Mode:       rec.Session.Mode,
		Stage:      st.Stage,
		Profile:    profile,
		Capture:    decision,
	}, rec, fx
}

func (e *Engine) branch(ctx context.Context, fx *turnEffects, org string, mode Mode, st *ConversationState, profile UserProfile, intent Intent, utterance string, captured FieldKind, wasAwaiting bool, logger *logging.Logger) reply {
	switch intent.Kind {
	case IntentGreeting:
		if !intent.Meaningful {
			return reply{suppressed: true}
		}
		if !st.Welcomed {
			st.Welcomed = true
			return reply{
				text: fmt.Sprintf("Hello! Thanks for reaching out to %s. How can I help you today?", e.persona.FirmName),
				sig:  ResponseSignature{Category: CategoryGreeting},
			}
		}
		return e.answer(ctx, fx, org, st, profile, utterance, TopicGeneral, logger)

	case IntentAppreciation:
		text, next := nextAcknowledgment(st.AckIndex, profile.Name, st.LastAcknowledgment)
		st.AckIndex = next
		st.LastAcknowledgment = text
		return reply{text: text, sig: ResponseSignature{Category: CategoryAcknowledgment, Step: (next - 1) % len(acknowledgmentVariants)}}

	case IntentNextStep:
		if r, ok := e.insurerJump(st, utterance); ok {
			return r
		}
		sig := st.LastSignature
		if sig.Category != CategoryProgression {
			sig = st.LastProgression
		}
		if text, next, ok := e.progression.Next(sig); ok {
			if r, ok := e.progressionReply(st, text, next); ok {
				return r
			}
		}
		return e.answer(ctx, fx, org, st, profile, utterance, sig.Topic, logger)

	case IntentRefusal:
		if wasAwaiting {
			return reply{text: skipCaptureMessage, sig: ResponseSignature{Category: CategoryRefusal}, decision: CaptureSkip}
		}
		return reply{text: refusalMessage, sig: ResponseSignature{Category: CategoryRefusal}, decision: CaptureSkip}

	case IntentAppointment:
		return e.appointment(fx, st, profile, utterance)

	case IntentInformation:
		if r, ok := e.insurerJump(st, utterance); ok {
			return r
		}
		if e.progression.HasSequence(intent.Topic) {
			// A sequence already running for this topic continues instead of restarting.
			text, sig, ok := e.progression.Start(intent.Topic)
			if st.LastProgression.Topic == intent.Topic {
				text, sig, ok = e.progression.Next(st.LastProgression)
			}
			if ok {
				if r, ok := e.progressionReply(st, text, sig); ok {
					return r
				}
			}
		}
		return e.answer(ctx, fx, org, st, profile, utterance, intent.Topic, logger)

	default:
		if captured != "" {
			return reply{text: captureAck(captured, profile), sig: ResponseSignature{Category: CategoryCapture, Topic: string(captured)}}
		}
		if r, ok := e.insurerJump(st, utterance); ok {
			return r
		}
		if text, next, ok := e.progression.FollowUp(st.LastSignature); ok {
			return reply{text: text, sig: next}
		}
		return e.answer(ctx, fx, org, st, profile, utterance, TopicGeneral, logger)
	}
}

// progressionReply refuses to repeat the immediately preceding (topic, step, follow-up).
func (e *Engine) progressionReply(st *ConversationState, text string, sig ResponseSignature) (reply, bool) {
	if sig.SameStep(st.LastSignature) && sig.FollowUp == st.LastSignature.FollowUp {
		return reply{}, false
	}
	return reply{text: text, sig: sig}, true
}

func (e *Engine) insurerJump(st *ConversationState, utterance string) (reply, bool) {
	if st.LastProgression.Topic != TopicAutoAccident || !insurerPattern.MatchString(normalize(utterance)) {
		return reply{}, false
	}
	text, sig, ok := e.progression.JumpTo(st.LastProgression, stepAvoidInsurerContact)
	if !ok {
		return reply{}, false
	}
	return e.progressionReply(st, text, sig)
}

// answer routes a question through retrieval and falls back to the language model on insufficient context.
func (e *Engine) answer(ctx context.Context, fx *turnEffects, org string, st *ConversationState, profile UserProfile, query, topic string, logger *logging.Logger) reply {
	if topic == "" {
		topic = TopicGeneral
	}
	in := GenerationInput{Query: query, Summary: Summarize(st.Turns), Profile: profile}

	result, err := e.retriever.Retrieve(ctx, org, query)
	var gen Generated
	switch {
	case err == nil:
		fx.retrieval = "hit"
		in.Hits = result.Hits
		gen = e.generator.Grounded(ctx, in)
	case errors.Is(err, ErrInsufficientContext):
		fx.retrieval = "insufficient"
		if e.offTopic.ShouldCheck(query) && e.offTopic.IsOffTopic(ctx, query, st.Turns) {
			logger.Info("dialogue: off-topic question redirected")
			return reply{text: e.offTopic.Redirect(), sig: ResponseSignature{Category: CategoryOffTopic, Topic: topic}}
		}
		gen = e.generator.Fallback(ctx, in)
		fx.unanswered = &unansweredQuestion{question: query, confidence: result.Confidence}
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			fx.retrieval = "timeout"
		} else {
			fx.retrieval = "error"
		}
		logger.Warn("dialogue: retrieval failed, using fallback", "error", err)
		gen = e.generator.Fallback(ctx, in)
	}
	if gen.Category != CategoryKnowledge {
		fx.fallback = string(gen.Category)
	}
	return reply{text: gen.Text, sig: ResponseSignature{Category: gen.Category, Topic: topic}}
}

func (e *Engine) appointment(fx *turnEffects, st *ConversationState, profile UserProfile, utterance string) reply {
	sig := ResponseSignature{Category: CategoryAppointment, Topic: st.LastProgression.Topic}
	decision := e.capture.Decide(CaptureInput{
		State:       st,
		Mode:        ModeAppointment,
		Profile:     profile,
		Utterance:   utterance,
		Volunteered: true,
	})
	if decision != CaptureSkip {
		return reply{text: appointmentAskMessage, sig: sig, decision: decision}
	}
	if profile.Email == "" && profile.Phone == "" {
		return reply{text: appointmentNoContact, sig: sig, decision: CaptureSkip}
	}

	fx.consultation = &consultationRequest{profile: profile, topic: st.LastProgression.Topic}
	thanks := "Thank you"
	if profile.Name != "" {
		thanks += ", " + profile.Name
	}
	contact := profile.Email
	if contact == "" {
		contact = profile.Phone
	}
	return reply{
		text:     fmt.Sprintf("%s! I've passed your request to our team, and someone will reach out at %s to schedule your free consultation.", thanks, contact),
		sig:      sig,
		decision: CaptureSkip,
	}
}

func (e *Engine) resolveReturning(ctx context.Context, org string, profile *UserProfile, st *ConversationState, logger *logging.Logger) {
	key := identityKey(*profile)
	if key == st.IdentityLookupKey {
		return
	}
	st.IdentityLookupKey = key

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()
	found, ok, err := e.knowledge.LookupContact(ctx, org, *profile)
	if err != nil {
		logger.Warn("dialogue: returning visitor lookup failed", "error", err)
		return
	}
	if !ok {
		return
	}
	found = found.Sanitized()

	// Only a matching email proves the visitor owns the stored contact. A name match alone discloses
	// nothing and leaves capture running.
	if profile.Email == "" || !strings.EqualFold(strings.TrimSpace(found.Email), strings.TrimSpace(profile.Email)) {
		logger.Debug("dialogue: contact matched without email, not treated as returning")
		return
	}
	if profile.Name == "" {
		profile.Name = found.Name
	}
	if profile.Phone == "" {
		profile.Phone = found.Phone
	}
	profile.ReturningVisitor = true
	st.ContactSaved = profile.Name == found.Name
	logger.Info("dialogue: returning visitor recognized")
}

type consultationRequest struct {
	profile UserProfile
	topic   string
}

type unansweredQuestion struct {
	question   string
	confidence float64
}

// turnEffects are the collaborator writes and observations a turn asked for.
type turnEffects struct {
	consultation *consultationRequest
	contact      *UserProfile
	unanswered   *unansweredQuestion
	retrieval    string
	fallback     string
	captures     []string
}

// applyEffects runs a committed turn's effects. Failures that change what the visitor was told, or
// what the session believes, are written back with one best-effort swap against the committed version.
func (e *Engine) applyEffects(ctx context.Context, rec Record, version int64, result *TurnResult, fx *turnEffects, logger *logging.Logger) {
	org := rec.Session.OrgID
	if fx.retrieval != "" {
		e.metrics.ObserveRetrieval(fx.retrieval)
	}
	if fx.fallback != "" {
		e.metrics.ObserveFallback(fx.fallback)
	}
	for _, c := range fx.captures {
		e.metrics.ObserveCapture(c)
	}
	if q := fx.unanswered; q != nil && e.unanswered != nil {
		if err := e.unanswered.RecordUnanswered(ctx, org, q.question, q.confidence); err != nil {
			logger.Warn("dialogue: failed to record unanswered question", "error", err)
		}
	}

	var amendments []func(*Record)
	if fx.contact != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		err := e.knowledge.UpsertContact(lookupCtx, org, *fx.contact)
		cancel()
		if err != nil {
			logger.Warn("dialogue: contact upsert failed", "error", err)
			amendments = append(amendments, func(r *Record) { r.State.ContactSaved = false })
		}
	}
	if c := fx.consultation; c != nil {
		if err := e.scheduler.RequestConsultation(ctx, org, c.profile, c.topic); err != nil {
			logger.Warn("dialogue: consultation request failed", "error", err)
			confirmed := result.Answer
			result.Answer = appointmentNoContact
			amendments = append(amendments, func(r *Record) {
				for i := len(r.State.Turns) - 1; i >= 0; i-- {
					if t := &r.State.Turns[i]; t.Role == RoleAssistant && t.Text == confirmed {
						t.Text = appointmentNoContact
						break
					}
				}
			})
		}
	}
	if len(amendments) > 0 {
		e.amend(ctx, rec.Session.ID, version, amendments, logger)
	}
}

func (e *Engine) amend(ctx context.Context, sessionID string, version int64, changes []func(*Record), logger *logging.Logger) {
	rec, err := e.store.Get(ctx, sessionID)
	if err != nil || rec.Version != version {
		logger.Warn("dialogue: skipped state amendment", "error", err)
		return
	}
	for _, change := range changes {
		change(&rec)
	}
	if err := e.store.CompareAndSwap(ctx, sessionID, version, rec); err != nil {
		logger.Warn("dialogue: state amendment failed", "error", err)
	}
}

// applyExtraction fills only empty profile fields. Confirmed values are never overwritten.
func applyExtraction(profile *UserProfile, ex Extraction) FieldKind {
	switch ex.Kind {
	case FieldEmail:
		if profile.Email == "" {
			profile.Email = ex.Value
			return FieldEmail
		}
	case FieldName:
		if profile.Name == "" && !ContainsEmail(ex.Value) {
			profile.Name = ex.Value
			return FieldName
		}
	}
	return ""
}

func mergeUserData(profile, incoming UserProfile) UserProfile {
	incoming = incoming.Sanitized()
	if profile.Name == "" {
		profile.Name = incoming.Name
	}
	if profile.Email == "" {
		profile.Email = incoming.Email
	}
	if profile.Phone == "" {
		profile.Phone = strings.TrimSpace(incoming.Phone)
	}
	profile.Consent.Contact = profile.Consent.Contact || incoming.Consent.Contact
	profile.Consent.Marketing = profile.Consent.Marketing || incoming.Consent.Marketing
	return profile
}

func identityKey(p UserProfile) string {
	return strings.ToLower(p.Email) + "|" + strings.ToLower(p.Name)
}

func captureAck(field FieldKind, profile UserProfile) string {
	if field == FieldName {
		return fmt.Sprintf("Nice to meet you, %s!", profile.Name)
	}
	if profile.Name != "" {
		return fmt.Sprintf("Thanks, %s! I've noted your email address.", profile.Name)
	}
	return "Thanks! I've noted your email address."
}

func joinSentences(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
