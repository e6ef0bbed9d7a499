package llm

import (
	"context"
	"errors"
	"sync"
)

var errEmptyCompletion = errors.New("llm: empty completion")

// StubClient returns scripted replies. It backs local runs without a configured model.
type StubClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []Request
}

// NewStubClient replays replies in order and repeats the last one.
func NewStubClient(replies ...string) *StubClient {
	return &StubClient{replies: replies}
}

// FailNext queues errors returned before any scripted reply.
func (s *StubClient) FailNext(errs ...error) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, errs...)
	return s
}

func (s *StubClient) Complete(_ context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return Response{}, err
	}
	if len(s.replies) == 0 {
		return Response{Text: "I'm sorry, I don't have more information on that right now."}, nil
	}
	text := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return Response{Text: text, StopReason: "end_turn"}, nil
}

// Calls returns the requests seen so far.
func (s *StubClient) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}
