package llm

import (
	"context"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// FailoverClient tries a primary provider and, on failure, a secondary one.
// It makes no further attempts; callers own any retry policy.
type FailoverClient struct {
	primary   Client
	secondary Client
	logger    *logging.Logger
}

// NewFailoverClient returns a client that only uses primary when secondary is nil.
func NewFailoverClient(primary, secondary Client, logger *logging.Logger) *FailoverClient {
	if primary == nil {
		panic("llm: primary client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverClient{primary: primary, secondary: secondary, logger: logger}
}

// RetriesOnFailure reports whether a secondary provider is available as the retry.
func (c *FailoverClient) RetriesOnFailure() bool {
	return c.secondary != nil
}

func (c *FailoverClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("llm: primary provider failed",
		"error", err.Error(),
		"secondary_available", c.secondary != nil,
	)
	if c.secondary == nil || ctx.Err() != nil {
		return Response{}, Unavailable(err)
	}

	resp, secondaryErr := c.secondary.Complete(ctx, req)
	if secondaryErr != nil {
		c.logger.Error("llm: secondary provider also failed",
			"primary_error", err.Error(),
			"secondary_error", secondaryErr.Error(),
		)
		return Response{}, Unavailable(secondaryErr)
	}
	c.logger.Info("llm: secondary provider succeeded after primary failure")
	return resp, nil
}
