package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetrievalConfig_ScoreThresholdBoundary(t *testing.T) {
	cfg := RetrievalConfig{MinScore: 0.5, MinChars: 50}

	tests := []struct {
		name  string
		score float64
		ok    bool
	}{
		{"just below", 0.4999, false},
		{"exactly at", 0.5, true},
		{"above", 0.8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := cfg.Assess([]KnowledgeHit{{Excerpt: "Our firm handles car accident cases.", Score: tt.score, SourceRef: "org#0"}})
			if ok != tt.ok {
				t.Fatalf("expected ok=%v at score %v, got %v", tt.ok, tt.score, ok)
			}
			if result.Basis != BasisSimilarity {
				t.Fatalf("expected similarity basis, got %s", result.Basis)
			}
			if result.Confidence != tt.score {
				t.Fatalf("expected confidence %v, got %v", tt.score, result.Confidence)
			}
			if !ok && len(result.Hits) != 0 {
				t.Fatalf("weak hits must not be returned, got %#v", result.Hits)
			}
		})
	}
}

func TestRetrievalConfig_CharacterThresholdBoundary(t *testing.T) {
	cfg := RetrievalConfig{MinScore: 0.5, MinChars: 50}
	unscored := func(n int) []KnowledgeHit {
		return []KnowledgeHit{
			{Excerpt: strings.Repeat("a", n-20), Score: Unscored},
			{Excerpt: strings.Repeat("b", 20), Score: Unscored},
		}
	}

	if _, ok := cfg.Assess(unscored(49)); ok {
		t.Fatal("49 characters should be insufficient")
	}
	result, ok := cfg.Assess(unscored(50))
	if !ok {
		t.Fatal("exactly 50 characters should be sufficient")
	}
	if result.Basis != BasisContentLength || result.Confidence != 50 {
		t.Fatalf("unexpected assessment %#v", result)
	}
}

func TestRetrievalConfig_RanksAndFiltersScoredHits(t *testing.T) {
	cfg := RetrievalConfig{MinScore: 0.3}
	result, ok := cfg.Assess([]KnowledgeHit{
		{Excerpt: "low", Score: 0.1},
		{Excerpt: "best", Score: 0.9},
		{Excerpt: "unscored excerpt that is ignored", Score: Unscored},
		{Excerpt: "middle", Score: 0.5},
	})
	if !ok {
		t.Fatal("expected sufficient context")
	}
	if len(result.Hits) != 2 || result.Hits[0].Excerpt != "best" || result.Hits[1].Excerpt != "middle" {
		t.Fatalf("unexpected ranking %#v", result.Hits)
	}
}

func TestRetriever_InsufficientContext(t *testing.T) {
	kb := newFakeKnowledge()
	kb.hits = []KnowledgeHit{{Excerpt: "short", Score: Unscored}}
	r := NewRetriever(kb, RetrievalConfig{Timeout: time.Second, MinChars: 50, MinScore: 0.25})

	result, err := r.Retrieve(context.Background(), "org-1", "what are your fees?")
	if !errors.Is(err, ErrInsufficientContext) {
		t.Fatalf("expected insufficient context, got %v", err)
	}
	if result.Confidence != 5 {
		t.Fatalf("expected confidence to be reported, got %v", result.Confidence)
	}
	if kb.lastNamespace != "org-1" {
		t.Fatalf("expected org namespace to be queried, got %q", kb.lastNamespace)
	}
}

func TestRetriever_TimesOut(t *testing.T) {
	kb := newFakeKnowledge()
	kb.delay = time.Second
	r := NewRetriever(kb, RetrievalConfig{Timeout: 20 * time.Millisecond, MinScore: 0.25, MinChars: 50})

	start := time.Now()
	_, err := r.Retrieve(context.Background(), "org-1", "fees?")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("retrieval was not bounded by its timeout")
	}
}

func TestRetriever_SearchError(t *testing.T) {
	kb := newFakeKnowledge()
	kb.searchErr = errors.New("redis down")
	r := NewRetriever(kb, DefaultRetrievalConfig())
	_, err := r.Retrieve(context.Background(), "org-1", "fees?")
	if err == nil || errors.Is(err, ErrInsufficientContext) {
		t.Fatalf("expected search error, got %v", err)
	}
}
