package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectors[t]
	}
	return out, nil
}

func TestVectorIndex_RanksByCosine(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Contingency fees explained": {1, 0},
		"Office parking details":     {0, 1},
		"how much do you charge":     {0.9, 0.1},
	}}
	idx := NewVectorIndex(emb, logging.Default())
	ctx := context.Background()

	if err := idx.AddDocuments(ctx, "org-1", []string{"Contingency fees explained", "Office parking details"}); err != nil {
		t.Fatalf("AddDocuments error: %v", err)
	}
	hits, err := idx.Search(ctx, "org-1", "how much do you charge", 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Content != "Contingency fees explained" || hits[0].SourceRef != "org-1#0" {
		t.Fatalf("unexpected top hit %#v", hits[0])
	}
	if hits[0].Score <= hits[1].Score || hits[0].Score > 1 {
		t.Fatalf("expected descending normalized scores, got %#v", hits)
	}
}

func TestVectorIndex_IncludesGlobalAndIsolatesOrgs(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Global policy": {1, 0},
		"Org two only":  {1, 0},
		"policy":        {1, 0},
	}}
	idx := NewVectorIndex(emb, logging.Default())
	ctx := context.Background()
	_ = idx.AddDocuments(ctx, "", []string{"Global policy"})
	_ = idx.AddDocuments(ctx, "org-2", []string{"Org two only"})

	hits, err := idx.Search(ctx, "org-1", "policy", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(hits) != 1 || hits[0].Content != "Global policy" || hits[0].SourceRef != "global#0" {
		t.Fatalf("expected only the global doc, got %#v", hits)
	}
}

func TestVectorIndex_EmbeddingError(t *testing.T) {
	idx := NewVectorIndex(&stubEmbedder{err: errors.New("boom")}, logging.Default())
	if err := idx.AddDocuments(context.Background(), "", []string{"a"}); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestVectorIndex_EmptySkipsEmbedding(t *testing.T) {
	emb := &stubEmbedder{}
	idx := NewVectorIndex(emb, logging.Default())
	hits, err := idx.Search(context.Background(), "org-1", "anything", 3)
	if err != nil || hits != nil {
		t.Fatalf("expected no hits, got %#v, %v", hits, err)
	}
	if emb.calls != 0 {
		t.Fatalf("expected no embedding call, got %d", emb.calls)
	}
}

func TestLexicalIndex_ScoresTermOverlap(t *testing.T) {
	idx := NewLexicalIndex()
	ctx := context.Background()
	_ = idx.AddDocuments(ctx, "org-1", []string{
		"Our consultation is free and there is no fee unless we win.",
		"Parking is available behind the office.",
	})

	hits, err := idx.Search(ctx, "org-1", "Is the consultation fee free?", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one matching document, got %#v", hits)
	}
	if hits[0].Score != 1 {
		t.Fatalf("expected full overlap score, got %v", hits[0].Score)
	}

	_ = idx.ReplaceDocuments(ctx, "org-1", []string{"Parking is available behind the office."})
	hits, _ = idx.Search(ctx, "org-1", "Is the consultation fee free?", 5)
	if len(hits) != 0 {
		t.Fatalf("expected replaced documents to drop old hits, got %#v", hits)
	}
}

func TestHydrateLoadsRepository(t *testing.T) {
	repo := NewRedisDocumentRepository(newTestRedis(t))
	ctx := context.Background()
	_ = repo.AppendDocuments(ctx, "org-1", []string{"Workers compensation claims are handled by our workplace team."})

	idx := NewLexicalIndex()
	if err := Hydrate(ctx, repo, idx, logging.Default()); err != nil {
		t.Fatalf("Hydrate error: %v", err)
	}
	hits, _ := idx.Search(ctx, "org-1", "workers compensation", 5)
	if len(hits) == 0 || hits[0].SourceRef != "org-1#0" {
		t.Fatalf("expected org document indexed, got %#v", hits)
	}
	hits, _ = idx.Search(ctx, "org-1", "contingency fee", 5)
	if len(hits) == 0 {
		t.Fatal("expected seeded global defaults to be indexed")
	}
}
