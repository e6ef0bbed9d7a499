package dialogue

import (
	"context"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// LoggingScheduler records consultation requests in the log; booking itself happens elsewhere.
type LoggingScheduler struct {
	logger *logging.Logger
}

func NewLoggingScheduler(logger *logging.Logger) *LoggingScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoggingScheduler{logger: logger}
}

func (s *LoggingScheduler) RequestConsultation(ctx context.Context, namespace string, profile UserProfile, topic string) error {
	s.logger.Info("dialogue: consultation requested",
		"org_id", namespace,
		"topic", topic,
		"has_email", profile.Email != "",
		"has_phone", profile.Phone != "",
		"returning_visitor", profile.ReturningVisitor,
	)
	return nil
}
