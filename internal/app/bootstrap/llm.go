package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/llm"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// BuildLLMClient wires Bedrock as the primary provider and Gemini as the failover. With neither
// configured a stub client is returned. The close func is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (llm.Client, func(), error) {
	noop := func() {}
	var providers []llm.Client

	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		bedrock := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), model)
		providers = append(providers, llm.NewTimeoutClient(bedrock, cfg.LLMTimeout))
		logger.Info("llm provider enabled", "provider", "bedrock", "model", model)
	}

	closeFn := noop
	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" {
		gemini, err := llm.NewGeminiClient(ctx, key, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		closeFn = func() { _ = gemini.Close() }
		providers = append(providers, llm.NewTimeoutClient(gemini, cfg.LLMTimeout))
		logger.Info("llm provider enabled", "provider", "gemini", "model", cfg.GeminiModelID)
	}

	switch len(providers) {
	case 0:
		logger.Warn("no language model configured; using stub client")
		return llm.NewStubClient(), noop, nil
	case 1:
		return providers[0], closeFn, nil
	default:
		return llm.NewFailoverClient(providers[0], providers[1], logger), closeFn, nil
	}
}
