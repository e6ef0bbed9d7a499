package dialogue

import (
	"context"
	"strings"
	"sync"
	"time"
)

type fakeKnowledge struct {
	mu            sync.Mutex
	hits          []KnowledgeHit
	searchErr     error
	delay         time.Duration
	lastNamespace string
	searches      int
	contacts      map[string]UserProfile
	upserts       []UserProfile
	lookups       int
}

func newFakeKnowledge() *fakeKnowledge {
	return &fakeKnowledge{contacts: make(map[string]UserProfile)}
}

func (f *fakeKnowledge) Search(ctx context.Context, namespace, query string) ([]KnowledgeHit, error) {
	f.mu.Lock()
	f.lastNamespace = namespace
	f.searches++
	delay, hits, err := f.delay, f.hits, f.searchErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return hits, err
}

func (f *fakeKnowledge) UpsertContact(ctx context.Context, namespace string, profile UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, profile)
	if profile.Email != "" {
		f.contacts[namespace+"|email|"+strings.ToLower(profile.Email)] = profile
	}
	if profile.Name != "" {
		f.contacts[namespace+"|name|"+strings.ToLower(profile.Name)] = profile
	}
	return nil
}

func (f *fakeKnowledge) LookupContact(ctx context.Context, namespace string, partial UserProfile) (UserProfile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if partial.Email != "" {
		if p, ok := f.contacts[namespace+"|email|"+strings.ToLower(partial.Email)]; ok {
			return p, true, nil
		}
	}
	if partial.Name != "" {
		if p, ok := f.contacts[namespace+"|name|"+strings.ToLower(partial.Name)]; ok {
			return p, true, nil
		}
	}
	return UserProfile{}, false, nil
}

type fakeUnanswered struct {
	mu        sync.Mutex
	questions []string
	scores    []float64
}

func (f *fakeUnanswered) RecordUnanswered(ctx context.Context, namespace, question string, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	f.scores = append(f.scores, confidence)
	return nil
}

type fakeScheduler struct {
	mu       sync.Mutex
	requests []UserProfile
	topics   []string
	err      error
}

func (f *fakeScheduler) RequestConsultation(ctx context.Context, namespace string, profile UserProfile, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, profile)
	f.topics = append(f.topics, topic)
	return f.err
}

// conflictingStore fails the first n swaps with ErrVersionConflict.
type conflictingStore struct {
	*MemoryStateStore
	mu        sync.Mutex
	conflicts int
	swaps     int
}

func (s *conflictingStore) CompareAndSwap(ctx context.Context, sessionID string, expected int64, rec Record) error {
	s.mu.Lock()
	s.swaps++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return ErrVersionConflict
	}
	s.mu.Unlock()
	return s.MemoryStateStore.CompareAndSwap(ctx, sessionID, expected, rec)
}
