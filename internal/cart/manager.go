package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/notify"
	"github.com/keysforall/cart-service/internal/storage"
)

// session is one live store plus its last activity time for eviction.
type session struct {
	store    *Store
	lastSeen time.Time
}

// Manager hands out one Store per cart session. Each page context (here:
// each session seen by this process) gets its own hydrated Store; the
// in-memory states are never shared by reference across sessions.
type Manager struct {
	storage  storage.Storage
	notifier notify.Notifier
	lg       *zap.Logger
	opts     []Option

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a Manager. opts are applied to every Store it creates.
func NewManager(st storage.Storage, n notify.Notifier, lg *zap.Logger, opts ...Option) *Manager {
	return &Manager{
		storage:  st,
		notifier: n,
		lg:       lg,
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Store returns the session's store, hydrating a new one on first use.
func (m *Manager) Store(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sessionID]; ok {
		sess.lastSeen = time.Now()
		return sess.store
	}
	s := NewStore(ctx, StorageKey(sessionID), m.storage, m.notifier, m.lg, m.opts...)
	m.sessions[sessionID] = &session{store: s, lastSeen: time.Now()}
	return s
}

// Evict drops the session's store. The next Store call re-hydrates from
// durable storage, which is also how a process picks up writes made by
// another process under the same key.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// cleanup evicts sessions idle for longer than ttl. The cart itself stays
// in durable storage; a returning session re-hydrates transparently.
func (m *Manager) cleanup(now time.Time, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) >= ttl {
			delete(m.sessions, id)
		}
	}
}

// StartCleanup launches a background goroutine that evicts idle sessions.
// It stops when ctx is cancelled.
func (m *Manager) StartCleanup(ctx context.Context, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.cleanup(now, ttl)
			}
		}
	}()
}
