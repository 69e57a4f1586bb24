package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/level"
	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/repository"
)

var (
	// ErrNotFound is returned for an unknown or expired session id.
	ErrNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the manager is full.
	ErrTooManySessions = errors.New("too many sessions")
	// ErrLevelMismatch is returned when loading a save of another level.
	ErrLevelMismatch = errors.New("save holds another level")
)

// Generations resolves rule generations by name.
type Generations interface {
	Generation(name string) (board.Generation, error)
}

// Options wires a Manager.
type Options struct {
	Levels       *level.Catalog
	Generations  Generations
	Saves        repository.SaveStore
	Recorder     *replay.Recorder // nil disables recording
	DefaultLevel string
	LeasePeriod  time.Duration
	MaxSessions  int
	// InvariantChecks verifies board invariants after every drain.
	InvariantChecks bool
}

// Manager owns the live play sessions.
type Manager struct {
	opts     Options
	logger   *zap.Logger
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager creates a session manager.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Saves == nil {
		opts.Saves = repository.NewMemoryStore()
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Start opens a session on a level. An empty level id selects the default
// level.
func (m *Manager) Start(owner, levelID string) (*Session, error) {
	if levelID == "" {
		levelID = m.opts.DefaultLevel
	}
	lvl, err := m.opts.Levels.Level(levelID)
	if err != nil {
		return nil, err
	}
	gen, err := m.opts.Generations.Generation(lvl.Setup.Info.Generation)
	if err != nil {
		return nil, fmt.Errorf("level %q: %w", levelID, err)
	}

	id := uuid.NewString()
	b, err := board.New(lvl.Setup, gen, m.logger.With(zap.String("session_id", id)),
		board.WithInvariantChecks(m.opts.InvariantChecks))
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:           id,
		Owner:        owner,
		CreatedAt:    now,
		mgr:          m,
		board:        b,
		lastActivity: now,
	}

	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if m.opts.Recorder != nil {
		initial, err := b.Snapshot()
		if err != nil {
			return nil, err
		}
		m.opts.Recorder.Start(id, levelID, gen.Name, initial)
	}

	m.logger.Info("session started",
		zap.String("session_id", id),
		zap.String("owner", owner),
		zap.String("level_id", levelID),
		zap.String("generation", gen.Name),
	)
	return s, nil
}

// Get returns a live session and renews its lease.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(m.now())
	return s, nil
}

// End closes a session. A recording in progress is written to disk and its
// id returned.
func (m *Manager) End(id string) (string, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.close(s, "ended"), nil
}

func (m *Manager) close(s *Session, reason string) string {
	var replayID string
	if r := m.opts.Recorder; r != nil {
		if rec, ok := r.Get(s.ID); ok && rec.Size() > 0 {
			id, err := r.Save(s.ID)
			if err != nil {
				m.logger.Warn("failed to save replay", zap.String("session_id", s.ID), zap.Error(err))
			}
			replayID = id
		} else {
			r.Clear(s.ID)
		}
	}
	m.logger.Info("session closed",
		zap.String("session_id", s.ID),
		zap.String("reason", reason),
		zap.String("replay_id", replayID),
	)
	return replayID
}

// Levels returns the level catalog sessions start from.
func (m *Manager) Levels() *level.Catalog { return m.opts.Levels }

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CleanupExpiredSessions closes idle sessions every half lease until ctx is
// done.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) {
	interval := m.opts.LeasePeriod / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.ExpireIdle(); n > 0 {
				m.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// ExpireIdle closes every session idle for longer than the lease period and
// returns how many were closed.
func (m *Manager) ExpireIdle() int {
	if m.opts.LeasePeriod <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.LeasePeriod)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.close(s, "expired")
	}
	return len(expired)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.close(s, "shutdown")
	}
}
