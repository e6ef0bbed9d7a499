package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/knowledge"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// BuildKnowledge wires the Redis document store and contact directory with a search index.
// A configured embedding model selects vector search; otherwise keyword search is used.
// Hydration failures are logged and leave the index empty.
func BuildKnowledge(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, awsCfg aws.Config, logger *logging.Logger) *knowledge.Collaborator {
	repo := knowledge.NewRedisDocumentRepository(redisClient)

	var index knowledge.Index
	if model := strings.TrimSpace(cfg.BedrockEmbeddingModelID); model != "" {
		embedder := knowledge.NewBedrockEmbeddingClient(bedrockruntime.NewFromConfig(awsCfg), model)
		index = knowledge.NewVectorIndex(embedder, logger)
		logger.Info("knowledge search uses embeddings", "model", model)
	} else {
		index = knowledge.NewLexicalIndex()
		logger.Info("knowledge search uses keyword matching")
	}

	if err := knowledge.Hydrate(ctx, repo, index, logger); err != nil {
		logger.Warn("failed to hydrate knowledge index", "error", err)
	}
	return knowledge.NewCollaborator(repo, index, knowledge.NewRedisContactDirectory(redisClient), cfg.RetrievalTopK, logger)
}
