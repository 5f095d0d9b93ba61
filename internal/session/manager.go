// Package session tracks dashboard sessions. Each session owns a snapshot
// cache, so the register is loaded at most once per session until it is
// refreshed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tec-dashboard/internal/snapshot"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = eris.New("session: not found")

// Session is one dashboard session.
type Session struct {
	ID        string          `json:"id"`
	Params    snapshot.Params `json:"params"`
	CreatedAt time.Time       `json:"created_at"`

	cache *snapshot.Cache

	mu       sync.Mutex
	lastUsed time.Time
}

// Snapshot returns the session's snapshot, loading it on first use.
func (s *Session) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	return s.cache.Get(ctx, s.Params)
}

// Refresh reloads the session's snapshot.
func (s *Session) Refresh(ctx context.Context) (*snapshot.Snapshot, error) {
	return s.cache.Refresh(ctx, s.Params)
}

// LastUsed reports when the session was last accessed.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// Manager creates, looks up and expires sessions.
type Manager struct {
	src    snapshot.Source
	params snapshot.Params
	idle   time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions load p through src. Sessions
// unused for longer than idle are removed by Sweep; idle <= 0 disables
// expiry.
func NewManager(src snapshot.Source, p snapshot.Params, idle time.Duration) *Manager {
	return &Manager{
		src:      src,
		params:   p,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with an empty cache.
func (m *Manager) Create() *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Params:    m.params,
		CreatedAt: now,
		cache:     snapshot.NewCache(m.src),
		lastUsed:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	zap.L().Debug("session created", zap.String("component", "session"), zap.String("session_id", s.ID))
	return s
}

// Get returns the session for id and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	s.touch(m.now())
	return s, nil
}

// End removes the session and drops its cached snapshot.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return eris.Wrapf(ErrNotFound, "session %s", id)
	}
	s.cache.Close()
	zap.L().Debug("session ended", zap.String("component", "session"), zap.String("session_id", id))
	return nil
}

// Sweep removes sessions idle since before now minus the idle timeout and
// returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idle)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.cache.Close()
	}
	if len(expired) > 0 {
		zap.L().Info("expired idle sessions", zap.String("component", "session"), zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}
