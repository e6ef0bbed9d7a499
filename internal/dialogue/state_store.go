package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StateStore persists one Record per session with optimistic concurrency.
type StateStore interface {
	// Get returns ErrSessionNotFound when no record exists.
	Get(ctx context.Context, sessionID string) (Record, error)
	// CompareAndSwap stores rec as version expected+1 only if the current version equals expected.
	CompareAndSwap(ctx context.Context, sessionID string, expected int64, rec Record) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStateStore keeps records in process memory.
type MemoryStateStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

var _ StateStore = (*MemoryStateStore)(nil)

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{records: make(map[string][]byte)}
}

func (s *MemoryStateStore) Get(ctx context.Context, sessionID string) (Record, error) {
	s.mu.Lock()
	data, ok := s.records[sessionID]
	s.mu.Unlock()
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	return decodeRecord(data)
}

func (s *MemoryStateStore) CompareAndSwap(ctx context.Context, sessionID string, expected int64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if data, ok := s.records[sessionID]; ok {
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
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("dialogue: marshal state: %w", err)
	}
	s.records[sessionID] = data
	return nil
}

func (s *MemoryStateStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.records, sessionID)
	s.mu.Unlock()
	return nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("dialogue: decode state: %w", err)
	}
	return rec, nil
}
