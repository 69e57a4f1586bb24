package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/repository"
)

// terrainMargin is how far the terrain window extends past the outermost
// entity.
const terrainMargin = 2

// Session is one player's live board.
type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	mgr *Manager

	mu           sync.Mutex
	board        *board.Board
	lastActivity time.Time
}

// State is what transports send to clients: the board view plus the terrain
// under it.
type State struct {
	SessionID string         `json:"session_id"`
	View      board.View     `json:"view"`
	Origin    board.Position `json:"origin"`
	Heights   [][]int        `json:"heights"`
	Checksum  string         `json:"checksum"`
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Submit resolves one control intent. A cascade that hits the rule limit is
// reported with the state it stopped in.
func (s *Session) Submit(intent board.Intent) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.board.SubmitIntent(intent)
	if err != nil {
		s.mgr.logger.Error("intent failed",
			zap.String("session_id", s.ID),
			zap.Stringer("intent", intent),
			zap.Error(err),
		)
	}
	st := s.stateLocked()
	s.record(replay.Step{Intent: intent, Checksum: st.Checksum})
	return st, err
}

// Undo steps back to the previous distinct state.
func (s *Session) Undo() (State, error) {
	return s.Submit(board.IntentUndo)
}

// Reset returns the board to the start of the level.
func (s *Session) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.board.Reset()
	st := s.stateLocked()
	s.record(replay.Step{Reset: true, Checksum: st.Checksum})
	return st
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Save stores the board in one of the owner's slots.
func (s *Session) Save(ctx context.Context, slot string) (*repository.Save, error) {
	s.mu.Lock()
	snap, err := s.board.Snapshot()
	info := s.board.Info()
	clock := s.board.MoveClock()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	save := &repository.Save{
		Owner:     s.Owner,
		Slot:      slot,
		LevelID:   info.ID,
		MoveClock: clock,
		Snapshot:  snap,
	}
	if err := s.mgr.opts.Saves.Save(ctx, save); err != nil {
		return nil, err
	}
	s.mgr.logger.Info("game saved",
		zap.String("session_id", s.ID),
		zap.String("slot", slot),
		zap.String("checksum", save.Checksum),
	)
	return save, nil
}

// Load replaces the board with a save of the same level. The load can be
// undone. Recording stops, since the recording could no longer be replayed
// from its start.
func (s *Session) Load(ctx context.Context, slot string) (State, error) {
	save, err := s.mgr.opts.Saves.Load(ctx, s.Owner, slot)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if save.LevelID != s.board.Info().ID {
		return State{}, fmt.Errorf("%w: slot %q holds level %q, session plays %q", ErrLevelMismatch, slot, save.LevelID, s.board.Info().ID)
	}
	if err := s.board.Load(save.Snapshot); err != nil {
		return State{}, err
	}
	if r := s.mgr.opts.Recorder; r != nil {
		r.Stop(s.ID)
	}
	s.mgr.logger.Info("game loaded", zap.String("session_id", s.ID), zap.String("slot", slot))
	return s.stateLocked(), nil
}

func (s *Session) record(step replay.Step) {
	if r := s.mgr.opts.Recorder; r != nil {
		r.Record(s.ID, step)
	}
}

func (s *Session) stateLocked() State {
	st, err := NewState(s.ID, s.board)
	if err != nil {
		s.mgr.logger.DPanic("failed to checksum board", zap.String("session_id", s.ID), zap.Error(err))
	}
	return st
}

// NewState builds the transport state of a board: its view, its checksum
// and the terrain under the entities plus a margin. The state is complete
// apart from the checksum when err is set.
func NewState(sessionID string, b *board.Board) (State, error) {
	v := b.View()
	st := State{SessionID: sessionID, View: v}
	sum, err := b.Checksum()
	st.Checksum = sum

	if len(v.Entities) == 0 {
		return st, err
	}
	lo, hi := v.Entities[0].Position, v.Entities[0].Position
	for _, e := range v.Entities {
		lo.X, lo.Y = min(lo.X, e.Position.X), min(lo.Y, e.Position.Y)
		hi.X, hi.Y = max(hi.X, e.Position.X), max(hi.Y, e.Position.Y)
	}
	st.Origin = lo.Offset(-terrainMargin, -terrainMargin)
	st.Heights = b.Heights(st.Origin, hi.X-lo.X+1+2*terrainMargin, hi.Y-lo.Y+1+2*terrainMargin)
	return st, err
}
