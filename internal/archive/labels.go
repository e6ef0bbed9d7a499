package archive

import (
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
)

const (
	OutcomeContactCaptured = "contact_captured"
	OutcomeEscalated       = "escalated"
	OutcomeCaptureDeclined = "capture_declined"
	OutcomeEngaged         = "engaged"
	OutcomeNoEngagement    = "no_engagement"
)

// LabelSession derives curation labels and an outcome from stored session state.
func LabelSession(rec dialogue.Record) (Labels, string) {
	st := rec.State
	labels := Labels{
		Mode:             string(rec.Session.Mode),
		FinalStage:       string(st.Stage),
		ContactCaptured:  rec.Profile.Name != "" && rec.Profile.Email != "",
		CaptureAbandoned: st.CaptureAbandoned,
		ReturningVisitor: rec.Profile.ReturningVisitor,
	}

	seen := make(map[string]struct{})
	for _, t := range st.Turns {
		if t.Urgency == dialogue.UrgencyHigh {
			labels.Escalated = true
		}
		if t.Topic == "" || t.Topic == dialogue.TopicGeneral {
			continue
		}
		if _, ok := seen[t.Topic]; !ok {
			seen[t.Topic] = struct{}{}
			labels.Topics = append(labels.Topics, t.Topic)
		}
	}
	if st.Stage == dialogue.StageEscalated {
		labels.Escalated = true
	}

	switch {
	case labels.ContactCaptured:
		return labels, OutcomeContactCaptured
	case labels.Escalated:
		return labels, OutcomeEscalated
	case labels.CaptureAbandoned:
		return labels, OutcomeCaptureDeclined
	case st.Stage == dialogue.StageIdle || st.Stage == "":
		return labels, OutcomeNoEngagement
	default:
		return labels, OutcomeEngaged
	}
}
