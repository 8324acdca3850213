package auditlog

import (
	"context"
	"sync"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
)

// MemoryStore keeps audit events in process memory. Events are lost on
// restart; use RedisStore or a SQL store for durability.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]audit.Event)}
}

func (s *MemoryStore) Append(_ context.Context, ref string, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ref] = append(s.events[ref], e)
	return nil
}

func (s *MemoryStore) List(_ context.Context, ref string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.events[ref]
	out := make([]audit.Event, len(src))
	copy(out, src)
	return out, nil
}
