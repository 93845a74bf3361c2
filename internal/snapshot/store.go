package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// Store is the local durable fallback for interview sessions. It holds the
// serialized snapshot of a session with audio payloads already stripped by
// the caller; the store never sees binary audio.
type Store interface {
	Save(ctx context.Context, key string, sess model.InterviewSession) error
	Load(ctx context.Context, key string) (model.InterviewSession, bool, error)
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps snapshots in process memory. Used when no redis address
// is configured, and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, key string, sess model.InterviewSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = b
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (model.InterviewSession, bool, error) {
	s.mu.Lock()
	b, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return model.InterviewSession{}, false, nil
	}

	var sess model.InterviewSession
	if err := json.Unmarshal(b, &sess); err != nil {
		return model.InterviewSession{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return sess, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
