package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const documentKeyPrefix = "knowledge:docs:"

// DocumentRepository persists raw org documents. The empty org is the global namespace.
type DocumentRepository interface {
	AppendDocuments(ctx context.Context, orgID string, docs []string) error
	ReplaceDocuments(ctx context.Context, orgID string, docs []string) error
	GetDocuments(ctx context.Context, orgID string) ([]string, error)
	LoadAll(ctx context.Context) (map[string][]string, error)
}

// RedisDocumentRepository stores documents in one Redis list per org.
type RedisDocumentRepository struct {
	client *redis.Client
}

func NewRedisDocumentRepository(client *redis.Client) *RedisDocumentRepository {
	if client == nil {
		panic("knowledge: redis client cannot be nil")
	}
	return &RedisDocumentRepository{client: client}
}

func (r *RedisDocumentRepository) AppendDocuments(ctx context.Context, orgID string, docs []string) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.client.RPush(ctx, documentKey(orgID), toArgs(docs)...).Err(); err != nil {
		return fmt.Errorf("knowledge: append documents: %w", err)
	}
	return nil
}

func (r *RedisDocumentRepository) ReplaceDocuments(ctx context.Context, orgID string, docs []string) error {
	key := documentKey(orgID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(docs) > 0 {
		pipe.RPush(ctx, key, toArgs(docs)...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("knowledge: replace documents: %w", err)
	}
	return nil
}

func (r *RedisDocumentRepository) GetDocuments(ctx context.Context, orgID string) ([]string, error) {
	docs, err := r.client.LRange(ctx, documentKey(orgID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("knowledge: get documents: %w", err)
	}
	return docs, nil
}

// LoadAll returns every org's documents keyed by org ID.
func (r *RedisDocumentRepository) LoadAll(ctx context.Context) (map[string][]string, error) {
	var cursor uint64
	result := make(map[string][]string)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, documentKeyPrefix+"*", 50).Result()
		if err != nil {
			return nil, fmt.Errorf("knowledge: scan document keys: %w", err)
		}
		for _, key := range keys {
			orgID := strings.TrimPrefix(key, documentKeyPrefix)
			docs, err := r.client.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return nil, fmt.Errorf("knowledge: fetch documents for %q: %w", orgID, err)
			}
			result[orgID] = docs
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return result, nil
}

var defaultDocuments = []string{
	"Our attorneys handle personal injury matters on a contingency fee basis: there is no fee unless we recover compensation for you, and the first consultation is free.",
	"Deadlines to file an injury claim are set by state law and are often two or three years from the date of the injury. Speaking with an attorney early protects your options.",
	"After an accident, keep copies of medical records, bills, photos, police or incident reports, and the names of any witnesses. These documents support your claim.",
}

// EnsureDefaults seeds the global namespace when it is empty.
func EnsureDefaults(ctx context.Context, repo DocumentRepository) error {
	existing, err := repo.GetDocuments(ctx, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return repo.AppendDocuments(ctx, "", defaultDocuments)
}

func documentKey(orgID string) string {
	return documentKeyPrefix + orgID
}

func toArgs(docs []string) []interface{} {
	args := make([]interface{}, len(docs))
	for i, d := range docs {
		args[i] = d
	}
	return args
}
