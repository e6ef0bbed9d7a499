package llm

import (
	"context"
	"strings"
	"time"
)

// TimeoutClient bounds every call and normalizes failures to ErrServiceUnavailable.
type TimeoutClient struct {
	next    Client
	timeout time.Duration
}

func NewTimeoutClient(next Client, timeout time.Duration) *TimeoutClient {
	if next == nil {
		panic("llm: wrapped client cannot be nil")
	}
	return &TimeoutClient{next: next, timeout: timeout}
}

func (c *TimeoutClient) Complete(ctx context.Context, req Request) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.next.Complete(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return Response{}, Unavailable(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return Response{}, Unavailable(r.err)
		}
		if strings.TrimSpace(r.resp.Text) == "" {
			return Response{}, Unavailable(errEmptyCompletion)
		}
		return r.resp, nil
	}
}
