package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps visitors in process.  Sessions idle for longer than ttl
// are removed by Cleanup.
type MemoryStore struct {
	mu       sync.RWMutex
	visitors map[string]Visitor
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{visitors: make(map[string]Visitor), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visitors[id]
	if !ok || s.now().Sub(v.LastSeen) > s.ttl {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) Save(_ context.Context, v *Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors[v.ID] = *v
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visitors, id)
	return nil
}

// Len is the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visitors)
}

// Sweep removes expired sessions once.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, v := range s.visitors {
		if now.Sub(v.LastSeen) > s.ttl {
			delete(s.visitors, id)
		}
	}
}

// Cleanup sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
