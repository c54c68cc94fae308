package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory keeps at most capacity ids for ttl each. When full, the least
// recently seen id is dropped first.
type Memory struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{seen: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

func (m *Memory) ShouldProcess(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen.Get(id); ok {
		return false, nil
	}
	m.seen.Add(id, struct{}{})
	return true, nil
}

func (m *Memory) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen.Remove(id)
	return nil
}

func (m *Memory) Len() int { return m.seen.Len() }
