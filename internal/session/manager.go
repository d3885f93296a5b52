package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/logger"

	"github.com/google/uuid"
)

// Manager owns the live sessions of this process. Sessions are created on
// first use and dropped from memory after idleTimeout without requests;
// their persisted snapshots outlive them.
type Manager struct {
	kv          KV
	profiles    domain.ProfileRepository
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewManager(kv KV, profiles domain.ProfileRepository, idleTimeout time.Duration) *Manager {
	return &Manager{
		kv:          kv,
		profiles:    profiles,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Session),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// NewID returns a fresh, unguessable session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Get returns the live session for id, restoring it from the store when it
// is not in memory.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.touch()
		return s
	}
	m.mu.Unlock()

	// Restoring reads the store; keep it outside the lock.
	s := New(ctx, id, m.kv, m.profiles)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		s.Close()
		existing.touch()
		return existing
	}
	m.sessions[id] = s
	return s
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions idle for longer than the timeout and returns
// how many were dropped.
func (m *Manager) EvictIdle(now time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

// Start runs the idle janitor until Stop is called.
func (m *Manager) Start(interval time.Duration) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stop:
				return
			case now := <-ticker.C:
				if n := m.EvictIdle(now); n > 0 {
					logger.Log.Debug("Evicted idle sessions", "count", n, "live", m.Len())
				}
				if mem, ok := m.kv.(*MemoryKV); ok {
					mem.Sweep()
				}
			}
		}
	}()
}

// Stop halts the janitor and closes every live session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	if m.started.Load() {
		<-m.done
	}

	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
