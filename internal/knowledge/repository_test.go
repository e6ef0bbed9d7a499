package knowledge

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisDocumentRepository(t *testing.T) {
	repo := NewRedisDocumentRepository(newTestRedis(t))
	ctx := context.Background()

	if err := repo.AppendDocuments(ctx, "org-a", []string{"Doc1", "Doc2"}); err != nil {
		t.Fatalf("AppendDocuments failed: %v", err)
	}
	docs, err := repo.GetDocuments(ctx, "org-a")
	if err != nil {
		t.Fatalf("GetDocuments failed: %v", err)
	}
	if len(docs) != 2 || docs[0] != "Doc1" {
		t.Fatalf("unexpected docs: %#v", docs)
	}

	if err := repo.ReplaceDocuments(ctx, "org-a", []string{"Doc3"}); err != nil {
		t.Fatalf("ReplaceDocuments failed: %v", err)
	}
	all, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(all) != 1 || len(all["org-a"]) != 1 || all["org-a"][0] != "Doc3" {
		t.Fatalf("expected replaced org-a docs, got %#v", all)
	}
}

func TestEnsureDefaultsSeedsOnce(t *testing.T) {
	repo := NewRedisDocumentRepository(newTestRedis(t))
	ctx := context.Background()

	if err := EnsureDefaults(ctx, repo); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	if err := EnsureDefaults(ctx, repo); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	docs, _ := repo.GetDocuments(ctx, "")
	if len(docs) != len(defaultDocuments) {
		t.Fatalf("expected %d global docs, got %d", len(defaultDocuments), len(docs))
	}
}
