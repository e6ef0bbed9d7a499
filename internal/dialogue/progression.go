package dialogue

import "fmt"

const (
	stepSafetyCheck         = "safety_check"
	stepDocumentEvidence    = "document_evidence"
	stepAvoidInsurerContact = "avoid_insurer_contact"
	stepOfferConsultation   = "offer_consultation"
	stepReportIncident      = "report_incident"
	stepReportToEmployer    = "report_to_employer"
)

// Step is one guidance message in a topic sequence. FollowUps are asked, in order, when the visitor
// answers inside the step instead of asking to move on.
type Step struct {
	ID        string
	Template  string
	FollowUps []string
}

const offerConsultationText = "The next step is a free consultation with one of our attorneys. Would you like me to set that up?"

var defaultSequences = map[string][]Step{
	TopicAutoAccident: {
		{
			ID:        stepSafetyCheck,
			Template:  "Absolutely, we work with clients involved in car accidents. Were you the driver, passenger, or pedestrian?",
			FollowUps: []string{"Thanks for letting me know. Did you receive medical attention after the accident, and are you safe right now?"},
		},
		{
			ID:       stepDocumentEvidence,
			Template: "Good. Next, document everything: photos of the vehicles and scene, the police report number, witness contacts, and all medical records and bills.",
		},
		{
			ID:       stepAvoidInsurerContact,
			Template: "Please avoid giving recorded statements or signing medical releases for any insurance company until our attorney reviews your case.",
		},
		{ID: stepOfferConsultation, Template: offerConsultationText},
	},
	TopicSlipAndFall: {
		{
			ID:        stepSafetyCheck,
			Template:  "I'm sorry that happened. We do help people injured in slip and fall incidents. Where did the fall happen, and were you hurt?",
			FollowUps: []string{"Thank you. Have you seen a doctor about your injuries yet?"},
		},
		{
			ID:       stepDocumentEvidence,
			Template: "Next, gather what you can: photos of the hazard and the area, the names of any witnesses, the shoes you were wearing, and your medical records.",
		},
		{
			ID:       stepReportIncident,
			Template: "If you haven't already, report the fall to the property owner or manager in writing and ask for a copy of the incident report.",
		},
		{ID: stepOfferConsultation, Template: offerConsultationText},
	},
	TopicWorkplaceInjury: {
		{
			ID:        stepSafetyCheck,
			Template:  "I'm sorry you were hurt at work. Are you getting the medical care you need right now?",
			FollowUps: []string{"Thanks. What kind of work were you doing when the injury happened?"},
		},
		{
			ID:       stepReportToEmployer,
			Template: "Make sure the injury is reported to your employer in writing as soon as possible, since reporting deadlines can affect your claim.",
		},
		{
			ID:       stepDocumentEvidence,
			Template: "Keep copies of everything: the injury report, medical records, pay stubs showing missed work, and names of coworkers who saw what happened.",
		},
		{ID: stepOfferConsultation, Template: offerConsultationText},
	},
}

// Progression holds the per-topic step sequences as data.
type Progression struct {
	sequences map[string][]Step
}

var defaultProgression = NewProgression(defaultSequences)

func NewProgression(sequences map[string][]Step) *Progression {
	return &Progression{sequences: sequences}
}

// HasSequence reports whether topic has guidance steps.
func (p *Progression) HasSequence(topic string) bool {
	return len(p.sequences[topic]) > 0
}

// StepID returns the step identifier a progression signature points at, or "".
func (p *Progression) StepID(sig ResponseSignature) string {
	steps := p.sequences[sig.Topic]
	if sig.Category != CategoryProgression || sig.Step < 0 || sig.Step >= len(steps) {
		return ""
	}
	return steps[sig.Step].ID
}

// Start opens the sequence for topic at step 0.
func (p *Progression) Start(topic string) (string, ResponseSignature, bool) {
	return p.at(topic, 0)
}

// Next advances past sig. ok is false when the sequence is exhausted.
func (p *Progression) Next(sig ResponseSignature) (string, ResponseSignature, bool) {
	if sig.Category != CategoryProgression {
		return "", ResponseSignature{}, false
	}
	return p.at(sig.Topic, sig.Step+1)
}

// FollowUp returns the next unasked follow-up within sig's step.
func (p *Progression) FollowUp(sig ResponseSignature) (string, ResponseSignature, bool) {
	steps := p.sequences[sig.Topic]
	if sig.Category != CategoryProgression || sig.Step < 0 || sig.Step >= len(steps) {
		return "", ResponseSignature{}, false
	}
	followUps := steps[sig.Step].FollowUps
	if sig.FollowUp >= len(followUps) {
		return "", ResponseSignature{}, false
	}
	next := sig
	next.FollowUp++
	return followUps[sig.FollowUp], next, true
}

// JumpTo moves to stepID when it lies ahead of sig in the same topic.
func (p *Progression) JumpTo(sig ResponseSignature, stepID string) (string, ResponseSignature, bool) {
	for i, step := range p.sequences[sig.Topic] {
		if step.ID == stepID && i > sig.Step {
			return p.at(sig.Topic, i)
		}
	}
	return "", ResponseSignature{}, false
}

func (p *Progression) at(topic string, index int) (string, ResponseSignature, bool) {
	steps := p.sequences[topic]
	if index < 0 || index >= len(steps) {
		return "", ResponseSignature{}, false
	}
	return steps[index].Template, ResponseSignature{Category: CategoryProgression, Topic: topic, Step: index}, true
}

var acknowledgmentVariants = []string{
	"You're very welcome%s! I'm glad I could help. Is there anything else you'd like to know about your situation?",
	"Happy to help%s! Feel free to ask if you have any other questions about your case.",
	"My pleasure%s! I'm here whenever you need assistance with your legal matters.",
}

// nextAcknowledgment rotates through the variants starting at index and skips any text equal to last.
func nextAcknowledgment(index int, name, last string) (string, int) {
	suffix := ""
	if name != "" {
		suffix = ", " + name
	}
	for i := 0; i < len(acknowledgmentVariants); i++ {
		next := index + i
		text := fmt.Sprintf(acknowledgmentVariants[next%len(acknowledgmentVariants)], suffix)
		if text != last {
			return text, next + 1
		}
	}
	return fmt.Sprintf(acknowledgmentVariants[index%len(acknowledgmentVariants)], suffix), index + 1
}
