package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	"github.com/wolfman30/intake-ai-platform/internal/unanswered"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const (
	StateBackendMemory   = "memory"
	StateBackendRedis    = "redis"
	StateBackendDynamoDB = "dynamodb"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStateStore selects the session state backend named by cfg.StateBackend.
func BuildStateStore(cfg *appconfig.Config, redisClient *redis.Client, awsCfg aws.Config, logger *logging.Logger) (dialogue.StateStore, error) {
	switch cfg.StateBackend {
	case StateBackendMemory:
		logger.Warn("using in-memory session state; sessions are lost on restart")
		return dialogue.NewMemoryStateStore(), nil
	case StateBackendRedis, "":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis state backend requires a reachable redis")
		}
		return dialogue.NewRedisStateStore(redisClient, cfg.SessionTTL, otel.Tracer("intake.internal.dialogue.state")), nil
	case StateBackendDynamoDB:
		if strings.TrimSpace(cfg.DialogueStateTable) == "" {
			return nil, fmt.Errorf("bootstrap: dynamodb state backend requires DIALOGUE_STATE_TABLE")
		}
		logger.Info("using dynamodb session state", "table", cfg.DialogueStateTable)
		return dialogue.NewDynamoStateStore(dynamodb.NewFromConfig(awsCfg), cfg.DialogueStateTable, cfg.SessionTTL, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown state backend %q", cfg.StateBackend)
	}
}

// BuildUnansweredStore returns the Postgres store when DATABASE_URL is set, else an in-memory one.
// The returned close func is never nil.
func BuildUnansweredStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (unanswered.Store, func(), error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("DATABASE_URL not set; unanswered questions are kept in memory")
		return unanswered.NewMemoryStore(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return unanswered.NewPostgresStore(pool), pool.Close, nil
}
