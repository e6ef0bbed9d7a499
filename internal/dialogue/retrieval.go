package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// ConfidenceBasis names how a Retrieval's confidence was computed.
type ConfidenceBasis string

const (
	BasisSimilarity    ConfidenceBasis = "similarity"
	BasisContentLength ConfidenceBasis = "content_length"
)

// RetrievalConfig holds the confidence thresholds. A confidence equal to the threshold is sufficient.
type RetrievalConfig struct {
	Timeout time.Duration
	// MinScore applies when hits carry normalized similarity scores.
	MinScore float64
	// MinChars applies to the summed excerpt length when hits carry no score.
	MinChars int
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{Timeout: 5 * time.Second, MinScore: 0.25, MinChars: 50}
}

// Retrieval is the ranked result of one knowledge query.
type Retrieval struct {
	Hits       []KnowledgeHit
	Confidence float64
	Basis      ConfidenceBasis
}

// Assess ranks hits and computes confidence. Scored hits take precedence; unscored hits are ignored
// whenever at least one hit carries a score. ok is false when confidence is below the threshold.
func (c RetrievalConfig) Assess(hits []KnowledgeHit) (Retrieval, bool) {
	var scored []KnowledgeHit
	for _, h := range hits {
		if h.HasScore() && strings.TrimSpace(h.Excerpt) != "" {
			scored = append(scored, h)
		}
	}

	if len(scored) > 0 {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		result := Retrieval{Confidence: scored[0].Score, Basis: BasisSimilarity}
		for _, h := range scored {
			if h.Score >= c.MinScore {
				result.Hits = append(result.Hits, h)
			}
		}
		return result, len(result.Hits) > 0
	}

	result := Retrieval{Basis: BasisContentLength}
	for _, h := range hits {
		excerpt := strings.TrimSpace(h.Excerpt)
		if excerpt == "" {
			continue
		}
		result.Hits = append(result.Hits, h)
		result.Confidence += float64(utf8.RuneCountInString(excerpt))
	}
	if len(result.Hits) == 0 || result.Confidence < float64(c.MinChars) {
		result.Hits = nil
		return result, false
	}
	return result, true
}

// Retriever queries the knowledge collaborator with a bounded timeout and applies the threshold policy.
type Retriever struct {
	knowledge Knowledge
	cfg       RetrievalConfig
}

func NewRetriever(knowledge Knowledge, cfg RetrievalConfig) *Retriever {
	if knowledge == nil {
		panic("dialogue: knowledge collaborator cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRetrievalConfig().Timeout
	}
	return &Retriever{knowledge: knowledge, cfg: cfg}
}

// Retrieve returns ErrInsufficientContext, alongside the assessed confidence, when no hit clears the threshold.
func (r *Retriever) Retrieve(ctx context.Context, namespace, query string) (Retrieval, error) {
	if strings.TrimSpace(query) == "" {
		return Retrieval{}, ErrInsufficientContext
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	hits, err := r.knowledge.Search(ctx, namespace, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Retrieval{}, fmt.Errorf("dialogue: knowledge search timed out: %w", context.DeadlineExceeded)
		}
		return Retrieval{}, fmt.Errorf("dialogue: knowledge search: %w", err)
	}

	result, ok := r.cfg.Assess(hits)
	if !ok {
		return result, ErrInsufficientContext
	}
	return result, nil
}
