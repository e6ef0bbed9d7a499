package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// ConsultationNotifier hands consultation requests to the intake team by email.
type ConsultationNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

var _ dialogue.AppointmentScheduler = (*ConsultationNotifier)(nil)

func NewConsultationNotifier(sender EmailSender, intakeEmail string, logger *logging.Logger) *ConsultationNotifier {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsultationNotifier{sender: sender, to: strings.TrimSpace(intakeEmail), logger: logger}
}

// RequestConsultation emails the visitor's contact details and case topic to the intake inbox.
func (n *ConsultationNotifier) RequestConsultation(ctx context.Context, namespace string, profile dialogue.UserProfile, topic string) error {
	if n.to == "" {
		return errors.New("notify: intake email is not configured")
	}
	if profile.Email == "" && profile.Phone == "" {
		return errors.New("notify: consultation request needs an email or phone")
	}
	msg := EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("Consultation request: %s", displayTopic(topic)),
		Body:    consultationBody(namespace, profile, topic),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}
	n.logger.Info("notify: consultation request sent", "org_id", namespace, "topic", topic)
	return nil
}

func consultationBody(namespace string, profile dialogue.UserProfile, topic string) string {
	var b strings.Builder
	b.WriteString("A visitor asked to schedule a consultation.\n\n")
	fmt.Fprintf(&b, "Org: %s\n", namespace)
	fmt.Fprintf(&b, "Case type: %s\n", displayTopic(topic))
	fmt.Fprintf(&b, "Name: %s\n", valueOrDash(profile.Name))
	fmt.Fprintf(&b, "Email: %s\n", valueOrDash(profile.Email))
	fmt.Fprintf(&b, "Phone: %s\n", valueOrDash(profile.Phone))
	if profile.ReturningVisitor {
		b.WriteString("Returning visitor: yes\n")
	}
	return b.String()
}

func displayTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "general inquiry"
	}
	return strings.ReplaceAll(topic, "_", " ")
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
