package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// Hit is one scored document returned by an index.
type Hit struct {
	Content   string
	Score     float64
	SourceRef string
}

// Index searches an org's documents together with the global namespace.
type Index interface {
	AddDocuments(ctx context.Context, orgID string, docs []string) error
	ReplaceDocuments(ctx context.Context, orgID string, docs []string) error
	Search(ctx context.Context, orgID, query string, topK int) ([]Hit, error)
}

type indexedDoc struct {
	content   string
	ref       string
	embedding []float32
	terms     map[string]struct{}
}

// docSet is the per-namespace document storage shared by both index kinds.
type docSet struct {
	mu   sync.RWMutex
	docs map[string][]indexedDoc
}

func (s *docSet) add(orgID string, docs []indexedDoc, replace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs == nil {
		s.docs = make(map[string][]indexedDoc)
	}
	if replace {
		s.docs[orgID] = nil
	}
	offset := len(s.docs[orgID])
	for i := range docs {
		docs[i].ref = sourceRef(orgID, offset+i)
	}
	s.docs[orgID] = append(s.docs[orgID], docs...)
}

func (s *docSet) candidates(orgID string) []indexedDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]indexedDoc(nil), s.docs[orgID]...)
	if orgID != "" {
		out = append(out, s.docs[""]...)
	}
	return out
}

func sourceRef(orgID string, n int) string {
	if orgID == "" {
		orgID = "global"
	}
	return fmt.Sprintf("%s#%d", orgID, n)
}

func rank(hits []Hit, topK int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// VectorIndex keeps embeddings in memory and ranks by cosine similarity.
type VectorIndex struct {
	client EmbeddingClient
	logger *logging.Logger
	set    docSet
}

func NewVectorIndex(client EmbeddingClient, logger *logging.Logger) *VectorIndex {
	if client == nil {
		panic("knowledge: embedding client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VectorIndex{client: client, logger: logger}
}

func (v *VectorIndex) AddDocuments(ctx context.Context, orgID string, docs []string) error {
	return v.index(ctx, orgID, docs, false)
}

func (v *VectorIndex) ReplaceDocuments(ctx context.Context, orgID string, docs []string) error {
	return v.index(ctx, orgID, docs, true)
}

func (v *VectorIndex) index(ctx context.Context, orgID string, docs []string, replace bool) error {
	if len(docs) == 0 {
		if replace {
			v.set.add(orgID, nil, true)
		}
		return nil
	}
	vectors, err := v.client.Embed(ctx, docs)
	if err != nil {
		return fmt.Errorf("knowledge: embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return errors.New("knowledge: embedding response size mismatch")
	}
	indexed := make([]indexedDoc, len(docs))
	for i, d := range docs {
		indexed[i] = indexedDoc{content: d, embedding: vectors[i]}
	}
	v.set.add(orgID, indexed, replace)
	return nil
}

func (v *VectorIndex) Search(ctx context.Context, orgID, query string, topK int) ([]Hit, error) {
	candidates := v.set.candidates(orgID)
	if len(candidates) == 0 {
		return nil, nil
	}
	vectors, err := v.client.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(candidates))
	for _, doc := range candidates {
		hits = append(hits, Hit{
			Content:   doc.content,
			Score:     cosineSimilarity(vectors[0], doc.embedding),
			SourceRef: doc.ref,
		})
	}
	return rank(hits, topK), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var termPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopTerms = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {},
	"is": {}, "are": {}, "was": {}, "do": {}, "does": {}, "you": {}, "your": {}, "i": {}, "my": {}, "me": {},
	"it": {}, "if": {}, "be": {}, "can": {}, "what": {}, "how": {}, "with": {}, "at": {}, "this": {}, "that": {},
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopTerms[tok]; stop || len(tok) < 2 {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// LexicalIndex scores documents by the share of query terms they contain. It needs no embedding model.
type LexicalIndex struct {
	set docSet
}

func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{}
}

func (l *LexicalIndex) AddDocuments(_ context.Context, orgID string, docs []string) error {
	l.set.add(orgID, lexicalDocs(docs), false)
	return nil
}

func (l *LexicalIndex) ReplaceDocuments(_ context.Context, orgID string, docs []string) error {
	l.set.add(orgID, lexicalDocs(docs), true)
	return nil
}

func lexicalDocs(docs []string) []indexedDoc {
	out := make([]indexedDoc, len(docs))
	for i, d := range docs {
		out[i] = indexedDoc{content: d, terms: terms(d)}
	}
	return out
}

func (l *LexicalIndex) Search(_ context.Context, orgID, query string, topK int) ([]Hit, error) {
	queryTerms := terms(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}
	var hits []Hit
	for _, doc := range l.set.candidates(orgID) {
		matched := 0
		for term := range queryTerms {
			if _, ok := doc.terms[term]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, Hit{
			Content:   doc.content,
			Score:     float64(matched) / float64(len(queryTerms)),
			SourceRef: doc.ref,
		})
	}
	return rank(hits, topK), nil
}

// Hydrate loads every stored document into idx, seeding the global defaults first when the repository is empty.
func Hydrate(ctx context.Context, repo DocumentRepository, idx Index, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	if err := EnsureDefaults(ctx, repo); err != nil {
		logger.Warn("knowledge: failed to seed default documents", "error", err)
	}
	docsByOrg, err := repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	for orgID, docs := range docsByOrg {
		if err := idx.ReplaceDocuments(ctx, orgID, docs); err != nil {
			logger.Error("knowledge: failed to index documents", "org_id", orgID, "error", err)
		}
	}
	logger.Info("knowledge: index hydrated", "namespaces", len(docsByOrg))
	return nil
}
