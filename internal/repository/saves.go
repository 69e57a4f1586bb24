package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elementalcave/cave-server-go/internal/board"
)

var (
	// ErrSaveNotFound is returned when a slot holds no save.
	ErrSaveNotFound = errors.New("save not found")
	// ErrCorruptSave is returned when a stored snapshot no longer matches
	// its checksum.
	ErrCorruptSave = errors.New("save checksum mismatch")
)

// Save is one saved board in a named slot.
type Save struct {
	Owner     string
	Slot      string
	LevelID   string
	MoveClock int
	Checksum  string
	Snapshot  []byte
	UpdatedAt time.Time
}

// SaveStore persists save slots.
type SaveStore interface {
	// Save creates or replaces the slot. An empty checksum is computed.
	Save(ctx context.Context, s *Save) error
	// Load returns the slot, verifying its checksum.
	Load(ctx context.Context, owner, slot string) (*Save, error)
	// List returns the owner's slots by name, without snapshots.
	List(ctx context.Context, owner string) ([]*Save, error)
	Delete(ctx context.Context, owner, slot string) error
}

func prepare(s *Save) error {
	if s.Owner == "" || s.Slot == "" {
		return fmt.Errorf("save needs an owner and a slot")
	}
	if len(s.Snapshot) == 0 {
		return fmt.Errorf("save %s/%s has no snapshot", s.Owner, s.Slot)
	}
	if s.Checksum == "" {
		s.Checksum = board.Checksum(s.Snapshot)
	}
	return nil
}

func verify(s *Save) error {
	if board.Checksum(s.Snapshot) != s.Checksum {
		return fmt.Errorf("%w: %s/%s", ErrCorruptSave, s.Owner, s.Slot)
	}
	return nil
}

// MemoryStore keeps saves in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	saves map[string]map[string]*Save // owner -> slot -> save
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saves: make(map[string]map[string]*Save), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *Save) error {
	if err := prepare(s); err != nil {
		return err
	}
	cp := *s
	cp.Snapshot = append([]byte(nil), s.Snapshot...)
	cp.UpdatedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	slots, ok := m.saves[s.Owner]
	if !ok {
		slots = make(map[string]*Save)
		m.saves[s.Owner] = slots
	}
	slots[s.Slot] = &cp
	s.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *MemoryStore) Load(_ context.Context, owner, slot string) (*Save, error) {
	m.mu.RLock()
	s, ok := m.saves[owner][slot]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrSaveNotFound, owner, slot)
	}
	cp := *s
	cp.Snapshot = append([]byte(nil), s.Snapshot...)
	if err := verify(&cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, owner string) ([]*Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Save, 0, len(m.saves[owner]))
	for _, s := range m.saves[owner] {
		cp := *s
		cp.Snapshot = nil
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, owner, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.saves[owner][slot]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrSaveNotFound, owner, slot)
	}
	delete(m.saves[owner], slot)
	return nil
}

// PostgresStore keeps saves in the saves table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store backed by db. Run db.Migrate first.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{pool: db.Pool()}
}

func (p *PostgresStore) Save(ctx context.Context, s *Save) error {
	if err := prepare(s); err != nil {
		return err
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO saves (owner, slot, level_id, move_clock, checksum, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (owner, slot) DO UPDATE SET
			level_id = EXCLUDED.level_id,
			move_clock = EXCLUDED.move_clock,
			checksum = EXCLUDED.checksum,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		s.Owner, s.Slot, s.LevelID, s.MoveClock, s.Checksum, s.Snapshot,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", s.Owner, s.Slot, err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, owner, slot string) (*Save, error) {
	s := &Save{Owner: owner, Slot: slot}
	err := p.pool.QueryRow(ctx, `
		SELECT level_id, move_clock, checksum, snapshot, updated_at
		FROM saves WHERE owner = $1 AND slot = $2`,
		owner, slot,
	).Scan(&s.LevelID, &s.MoveClock, &s.Checksum, &s.Snapshot, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrSaveNotFound, owner, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", owner, slot, err)
	}
	if err := verify(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) List(ctx context.Context, owner string) ([]*Save, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT slot, level_id, move_clock, checksum, updated_at
		FROM saves WHERE owner = $1 ORDER BY slot`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	var out []*Save
	for rows.Next() {
		s := &Save{Owner: owner}
		if err := rows.Scan(&s.Slot, &s.LevelID, &s.MoveClock, &s.Checksum, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) Delete(ctx context.Context, owner, slot string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM saves WHERE owner = $1 AND slot = $2`, owner, slot)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", owner, slot, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrSaveNotFound, owner, slot)
	}
	return nil
}

var (
	_ SaveStore = (*MemoryStore)(nil)
	_ SaveStore = (*PostgresStore)(nil)
)
