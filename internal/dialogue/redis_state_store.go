package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultStateTTL = 24 * time.Hour

// RedisStateStore keeps session records as JSON under dialogue:state:<id>, guarded by WATCH.
type RedisStateStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStateStore {
	if client == nil {
		panic("dialogue: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("intake.internal.dialogue.state")
	}
	return &RedisStateStore{redis: client, ttl: ttl, tracer: tracer}
}

func (s *RedisStateStore) Get(ctx context.Context, sessionID string) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "dialogue.state.get")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return Record{}, fmt.Errorf("dialogue: load state: %w", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		span.RecordError(err)
		return Record{}, err
	}
	return rec, nil
}

func (s *RedisStateStore) CompareAndSwap(ctx context.Context, sessionID string, expected int64, rec Record) error {
	ctx, span := s.tracer.Start(ctx, "dialogue.state.cas")
	defer span.End()

	key := stateKey(sessionID)
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		var current int64
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			stored, err := decodeRecord(data)
			if err != nil {
				return err
			}
			current = stored.Version
		}
		if current != expected {
			return ErrVersionConflict
		}

		rec.Version = expected + 1
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("dialogue: marshal state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return ErrVersionConflict
	default:
		span.RecordError(err)
		return fmt.Errorf("dialogue: persist state: %w", err)
	}
}

func (s *RedisStateStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, stateKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("dialogue: delete state: %w", err)
	}
	return nil
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("dialogue:state:%s", sessionID)
}
