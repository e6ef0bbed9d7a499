package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/internal/notify"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const (
	NotifyProviderSES      = "ses"
	NotifyProviderSendGrid = "sendgrid"
)

// BuildScheduler returns the consultation hand-off. Without INTAKE_NOTIFY_EMAIL requests are only logged.
func BuildScheduler(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) dialogue.AppointmentScheduler {
	if strings.TrimSpace(cfg.IntakeNotifyEmail) == "" {
		logger.Info("INTAKE_NOTIFY_EMAIL not set; consultation requests are logged only")
		return dialogue.NewLoggingScheduler(logger)
	}
	return notify.NewConsultationNotifier(buildEmailSender(cfg, awsCfg, logger), cfg.IntakeNotifyEmail, logger)
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	sender := notify.SenderConfig{FromEmail: cfg.NotifyFromEmail, FromName: cfg.NotifyFromName}
	switch cfg.NotifyProvider {
	case NotifyProviderSES:
		logger.Info("consultation email via SES")
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), sender, logger)
	case NotifyProviderSendGrid:
		if s := notify.NewSendGridSender(cfg.SendGridAPIKey, sender, logger); s != nil {
			logger.Info("consultation email via sendgrid")
			return s
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub sender")
	default:
		logger.Warn("no email provider configured; using stub sender", "provider", cfg.NotifyProvider)
	}
	return notify.NewStubEmailSender(logger)
}
