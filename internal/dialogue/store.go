package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("dialogue: state not found")
	ErrAlreadyExists = errors.New("dialogue: state already exists")
)

// Store is a concurrency-safe registry of active call states keyed by the
// provider call identifier. Different calls may be written concurrently;
// turns within one call arrive strictly in order, so no per-key locking
// beyond atomic load/replace is needed.
type Store interface {
	Create(ctx context.Context, s State) error
	Get(ctx context.Context, callID string) (State, error)
	Put(ctx context.Context, s State) error
	Delete(ctx context.Context, callID string) error
}

// MemoryStore keeps call states in a mutex-guarded map and reclaims states
// idle beyond the configured TTL, so calls abandoned mid-conversation do not
// leak memory over long uptimes.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State

	ttl time.Duration
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		states: make(map[string]State),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, s State) error {
	if s.CallID == "" {
		return errors.New("dialogue: call_id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[s.CallID]; ok {
		return ErrAlreadyExists
	}
	s.LastActivity = m.now()
	m.states[s.CallID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, callID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[callID]
	if !ok {
		return State{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, s State) error {
	if s.CallID == "" {
		return errors.New("dialogue: call_id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.LastActivity = m.now()
	m.states[s.CallID] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, callID)
	return nil
}

// RunSweeper blocks, expiring idle states every interval until ctx is
// canceled. Run it in its own goroutine from main.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.sweep(m.now()); n > 0 {
				log.Info("expired idle call states", "count", n)
			}
		}
	}
}

func (m *MemoryStore) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for id, s := range m.states {
		if now.Sub(s.LastActivity) > m.ttl {
			delete(m.states, id)
			n++
		}
	}
	return n
}
