package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is a concurrency-safe in-process Backend. Expired entries
// behave as absent and are purged lazily.
type MemoryBackend struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	// key: cache key, value: entry with absolute expiry
	data map[string]memoryEntry
}

// NewMemoryBackend creates an empty MemoryBackend. A nil clock means real time.
func NewMemoryBackend(clock clockwork.Clock) *MemoryBackend {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryBackend{
		clock: clock,
		data:  make(map[string]memoryEntry),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok || !m.clock.Now().Before(e.expiresAt) {
		return nil, ErrMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = memoryEntry{
		value:     stored,
		expiresAt: m.clock.Now().Add(ttl),
	}
	return nil
}

// DeleteByPrefix removes every key under prefix and counts only the ones
// that had not yet expired.
func (m *MemoryBackend) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	live := 0
	for key, e := range m.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if now.Before(e.expiresAt) {
			live++
		}
		delete(m.data, key)
	}
	return live, nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}
