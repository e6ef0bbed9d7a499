package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/intake-ai-platform/internal/archive"
	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/internal/knowledge"
	"github.com/wolfman30/intake-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/intake-ai-platform/internal/unanswered"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// Runtime is the wired dialogue stack shared by the API server and the chat CLI.
type Runtime struct {
	Engine     *dialogue.Engine
	Knowledge  *knowledge.Collaborator
	Unanswered unanswered.Store
	Archiver   *archive.Archiver
	Redis      *redis.Client

	closers []func()
}

// BuildRuntime wires every collaborator of the dialogue engine from config.
// Redis is required: it holds the knowledge documents and the contact directory.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, reg prometheus.Registerer, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rt := &Runtime{}
	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		return nil, errors.New("bootstrap: redis is required")
	}
	rt.Redis = redisClient
	rt.closers = append(rt.closers, func() { _ = redisClient.Close() })

	store, err := BuildStateStore(cfg, redisClient, awsCfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	client, closeLLM, err := BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closeLLM)

	rt.Knowledge = BuildKnowledge(ctx, cfg, redisClient, awsCfg, logger)

	unansweredStore, closeStore, err := BuildUnansweredStore(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Unanswered = unansweredStore
	rt.closers = append(rt.closers, closeStore)

	rt.Archiver = BuildArchiver(cfg, awsCfg, logger)

	rt.Engine = dialogue.NewEngine(store, rt.Knowledge, client, logger,
		dialogue.WithRetrievalConfig(dialogue.RetrievalConfig{
			Timeout:  cfg.RetrievalTimeout,
			MinScore: cfg.RetrievalMinScore,
			MinChars: cfg.RetrievalMinChars,
		}),
		dialogue.WithCaptureConfig(captureConfig(cfg)),
		dialogue.WithPersona(dialogue.Persona{
			AssistantName: cfg.PersonaName,
			FirmName:      cfg.FirmName,
			Disclaimer:    cfg.DomainDisclaimer,
		}),
		dialogue.WithLLMTimeout(cfg.LLMTimeout),
		dialogue.WithHistoryLimit(cfg.HistoryLimit),
		dialogue.WithUnansweredRecorder(unanswered.NewRecorder(unansweredStore)),
		dialogue.WithScheduler(BuildScheduler(cfg, awsCfg, logger)),
		dialogue.WithMetrics(metrics.NewDialogueMetrics(reg)),
	)
	logger.Info("dialogue engine ready", "state_backend", cfg.StateBackend, "archive_enabled", rt.Archiver.Enabled())
	return rt, nil
}

func captureConfig(cfg *appconfig.Config) dialogue.CaptureConfig {
	capture := dialogue.DefaultCaptureConfig()
	if cfg.ContactAskWindow > 0 {
		capture.AskWindow = cfg.ContactAskWindow
	}
	if cfg.ContactMaxAsks > 0 {
		capture.MaxAsks = cfg.ContactMaxAsks
	}
	return capture
}

// HealthCheck pings Redis.
func (r *Runtime) HealthCheck(ctx context.Context) error {
	return r.Redis.Ping(ctx).Err()
}

// Close releases clients in reverse order of construction.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
