package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// EmbeddingClient turns texts into vectors, one per input.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type bedrockInvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbeddingClient calls a Titan-style embedding model through InvokeModel.
type BedrockEmbeddingClient struct {
	api     bedrockInvokeModelAPI
	modelID string
}

func NewBedrockEmbeddingClient(api bedrockInvokeModelAPI, modelID string) *BedrockEmbeddingClient {
	if api == nil {
		panic("knowledge: bedrock runtime client cannot be nil")
	}
	return &BedrockEmbeddingClient{api: api, modelID: strings.TrimSpace(modelID)}
}

func (c *BedrockEmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.modelID == "" {
		return nil, errors.New("knowledge: bedrock embedding model id is required")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for _, text := range texts {
		payload, err := json.Marshal(map[string]any{"inputText": text})
		if err != nil {
			return nil, fmt.Errorf("knowledge: embedding request marshal: %w", err)
		}
		out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        payload,
		})
		if err != nil {
			return nil, fmt.Errorf("knowledge: invoke embedding model: %w", err)
		}

		var decoded struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(out.Body, &decoded); err != nil {
			return nil, fmt.Errorf("knowledge: embedding response parse: %w", err)
		}
		if len(decoded.Embedding) == 0 {
			return nil, errors.New("knowledge: embedding response was empty")
		}
		vec := make([]float32, len(decoded.Embedding))
		for i, f := range decoded.Embedding {
			vec[i] = float32(f)
		}
		embeddings = append(embeddings, vec)
	}
	return embeddings, nil
}
