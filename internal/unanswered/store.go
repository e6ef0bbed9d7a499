package unanswered

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 50

// Question is a visitor question the knowledge base could not answer.
type Question struct {
	OrgID          string    `json:"org_id"`
	Text           string    `json:"question"`
	LastConfidence float64   `json:"last_confidence"`
	Occurrences    int       `json:"occurrences"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

// Store records unanswered questions and lists the most frequent ones.
type Store interface {
	Record(ctx context.Context, q Question) error
	List(ctx context.Context, orgID string, limit int) ([]Question, error)
}

// Hash identifies a question independent of case and spacing.
func Hash(question string) string {
	sum := sha256.Sum256([]byte(normalize(question)))
	return hex.EncodeToString(sum[:])
}

func normalize(question string) string {
	q := strings.ToLower(strings.Join(strings.Fields(question), " "))
	return strings.TrimRight(q, "?!. ")
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps one row per (org, question hash).
type PostgresStore struct {
	db  querier
	now func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("unanswered: pgx pool required")
	}
	return newPostgresStoreWithQuerier(pool)
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	if db == nil {
		panic("unanswered: querier required")
	}
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record inserts the question or bumps its occurrence count.
func (s *PostgresStore) Record(ctx context.Context, q Question) error {
	text := strings.TrimSpace(q.Text)
	if q.OrgID == "" || text == "" {
		return errors.New("unanswered: org and question are required")
	}
	query := `
		INSERT INTO unanswered_questions (org_id, question_hash, question, last_confidence, occurrences, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (org_id, question_hash) DO UPDATE
		SET occurrences = unanswered_questions.occurrences + 1,
			last_confidence = EXCLUDED.last_confidence,
			last_seen_at = EXCLUDED.last_seen_at
	`
	if _, err := s.db.Exec(ctx, query, q.OrgID, Hash(text), text, q.LastConfidence, s.now()); err != nil {
		return fmt.Errorf("unanswered: record question: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, orgID string, limit int) ([]Question, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT org_id, question, last_confidence, occurrences, first_seen_at, last_seen_at
		FROM unanswered_questions
		WHERE org_id = $1
		ORDER BY occurrences DESC, last_seen_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("unanswered: list questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.OrgID, &q.Text, &q.LastConfidence, &q.Occurrences, &q.FirstSeenAt, &q.LastSeenAt); err != nil {
			return nil, fmt.Errorf("unanswered: scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unanswered: iterate questions: %w", err)
	}
	return out, nil
}

// MemoryStore is used when no database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*Question
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Question), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) Record(_ context.Context, q Question) error {
	text := strings.TrimSpace(q.Text)
	if q.OrgID == "" || text == "" {
		return errors.New("unanswered: org and question are required")
	}
	key := q.OrgID + "|" + Hash(text)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		existing.Occurrences++
		existing.LastConfidence = q.LastConfidence
		existing.LastSeenAt = now
		return nil
	}
	s.items[key] = &Question{
		OrgID:          q.OrgID,
		Text:           text,
		LastConfidence: q.LastConfidence,
		Occurrences:    1,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, orgID string, limit int) ([]Question, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.Lock()
	var out []Question
	for _, q := range s.items {
		if q.OrgID == orgID {
			out = append(out, *q)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Recorder adapts a Store to the dialogue engine's unanswered-question hook.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	if store == nil {
		panic("unanswered: store required")
	}
	return &Recorder{store: store}
}

func (r *Recorder) RecordUnanswered(ctx context.Context, namespace, question string, confidence float64) error {
	return r.store.Record(ctx, Question{OrgID: namespace, Text: question, LastConfidence: confidence})
}
