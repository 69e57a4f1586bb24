package board

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrCascadeLimit is returned when one drain runs more rule executions than
// the generation allows. It always indicates a defect in the rules or the
// level.
var ErrCascadeLimit = errors.New("cascade exceeded rule execution limit")

// Setup is what a level loader hands to New: terrain, the initial entity
// list in order, and level metadata.
type Setup struct {
	Info     LevelInfo
	Grid     *Grid
	Entities []*Entity
}

// Option configures a Board.
type Option func(*Board)

// WithInvariantChecks runs CheckInvariants after every drain and reports
// violations through logger.DPanic.
func WithInvariantChecks(on bool) Option {
	return func(b *Board) { b.checkInvariants = on }
}

// Board is the turn controller. It owns the grid, the entity store, the
// advancement scheduler and the undo history of one level. A Board is not
// safe for concurrent use.
type Board struct {
	logger *zap.Logger
	gen    Generation

	info      LevelInfo
	grid      *Grid
	store     *Store
	sched     *Scheduler
	history   *History
	moveClock int

	// effects of the most recent drain
	effects []Effect

	initial         []byte
	checkInvariants bool
}

// New builds a board from an already-deserialized level.
func New(setup Setup, gen Generation, logger *zap.Logger, opts ...Option) (*Board, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	grid := setup.Grid
	if grid == nil {
		grid = NewGrid()
	} else {
		grid = grid.Clone()
	}
	store := NewStore()
	for _, e := range setup.Entities {
		if e == nil {
			return nil, fmt.Errorf("level %q: nil entity", setup.Info.ID)
		}
		if err := validateEntity(e); err != nil {
			return nil, fmt.Errorf("level %q: %w", setup.Info.ID, err)
		}
		if _, err := store.Spawn(e.Clone()); err != nil {
			return nil, fmt.Errorf("level %q: %w", setup.Info.ID, err)
		}
	}

	info := setup.Info
	if info.Generation == "" {
		info.Generation = gen.Name
	}

	b := &Board{
		logger:  logger,
		gen:     gen,
		info:    info,
		grid:    grid,
		store:   store,
		sched:   NewScheduler(gen.Order),
		history: NewHistory(gen.HistoryLimit),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("level %q: %w", info.ID, err)
	}

	initial, err := b.encode()
	if err != nil {
		return nil, err
	}
	b.initial = initial

	b.logger.Debug("board created",
		zap.String("level_id", info.ID),
		zap.String("generation", gen.Name),
		zap.Int("entities", store.Len()),
	)
	return b, nil
}

// Restore builds a board from a serialized snapshot. The snapshot becomes
// the state Reset returns to. A snapshot taken mid-drain keeps its pending
// queue; call Drain to finish it.
func Restore(snapshot []byte, gen Generation, logger *zap.Logger, opts ...Option) (*Board, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	st, err := decodeState(snapshot)
	if err != nil {
		return nil, err
	}
	b := &Board{
		logger:  logger,
		gen:     gen,
		sched:   NewScheduler(gen.Order),
		history: NewHistory(gen.HistoryLimit),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.install(st)
	if err := b.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	// Reset never returns into the middle of a cascade.
	b.initial, err = encodeState(b.info, b.grid, b.store, b.moveClock, nil)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Info returns the level metadata.
func (b *Board) Info() LevelInfo { return b.info }

// Generation returns the rule manifest the board runs.
func (b *Board) Generation() Generation { return b.gen }

// MoveClock returns the number of successful moves so far.
func (b *Board) MoveClock() int { return b.moveClock }

// HistoryLen returns the number of undo snapshots held.
func (b *Board) HistoryLen() int { return b.history.Len() }

// Pending reports whether a drain is unfinished.
func (b *Board) Pending() bool { return !b.sched.Empty() }

// HeightAt returns the terrain height at pos.
func (b *Board) HeightAt(pos Position) int { return b.grid.HeightAt(pos) }

// FoliageAt reports whether pos carries decorative foliage.
func (b *Board) FoliageAt(pos Position) bool { return b.grid.FoliageAt(pos) }

// Effects returns the effects produced by the most recent drain.
func (b *Board) Effects() []Effect {
	return append([]Effect(nil), b.effects...)
}

// SubmitIntent accepts one control intent and drains the resulting cascade.
// It is ignored while a drain is pending or input is blocked. The only error
// is ErrCascadeLimit (or a snapshot encoding failure).
func (b *Board) SubmitIntent(intent Intent) error {
	if !b.sched.Empty() || b.sched.Blocked() {
		b.logger.Debug("intent ignored while cascade pending", zap.Stringer("intent", intent))
		return nil
	}

	switch intent {
	case IntentNone:
		return nil
	case IntentUndo:
		b.Undo()
		return nil
	case IntentUp, IntentDown, IntentLeft, IntentRight, IntentAction, IntentSwitch:
	default:
		return fmt.Errorf("unknown intent %d", int(intent))
	}

	snap, err := b.encode()
	if err != nil {
		return err
	}
	b.history.PushIfChanged(snap)

	b.effects = b.effects[:0]
	b.sched.Seed(intent, b.gen.Order)
	return b.Drain()
}

// Drain runs pending rules until the queue is empty.
func (b *Board) Drain() error {
	executions := 0
	for {
		tag, ok := b.sched.Pop()
		if !ok {
			break
		}
		executions++
		if executions > b.gen.MaxRuleExecutions {
			b.sched.Clear()
			b.logger.Error("cascade did not settle",
				zap.String("level_id", b.info.ID),
				zap.Stringer("control", b.sched.Control()),
				zap.Int("rule_executions", executions-1),
			)
			return fmt.Errorf("%w (%d)", ErrCascadeLimit, b.gen.MaxRuleExecutions)
		}
		b.runRule(tag)
	}

	if b.logger.Core().Enabled(zap.DebugLevel) {
		b.logger.Debug("cascade drained",
			zap.String("level_id", b.info.ID),
			zap.Stringer("control", b.sched.Control()),
			zap.Int("rule_executions", executions),
			zap.Int("effects", len(b.effects)),
		)
	}

	if b.checkInvariants {
		if err := b.CheckInvariants(); err != nil {
			b.logger.DPanic("board invariant violated",
				zap.String("level_id", b.info.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (b *Board) runRule(tag Tag) {
	switch tag {
	case TagMove:
		b.ruleMove()
	case TagAction:
		b.ruleAction()
	case TagSwitch:
		b.ruleSwitch()
	case TagFire:
		b.ruleFire()
	case TagWind:
		b.ruleWind()
	case TagIce:
		b.ruleIce()
	case TagVine:
		b.ruleVine()
	case TagWaterlog:
		b.ruleWaterlog()
	case TagMine:
		b.ruleMine()
	case TagBlob:
		b.ruleBlob()
	case TagMagnet:
		b.ruleMagnet()
	case TagVoid:
		b.ruleVoid()
	default:
		b.logger.DPanic("unhandled rule tag", zap.Stringer("tag", tag))
	}
}

// requeue asks for one more full reactive sweep after the current one.
func (b *Board) requeue() { b.sched.Requeue() }

func (b *Board) emit(kind EffectKind, pos Position, id int) {
	b.effects = append(b.effects, Effect{Kind: kind, Position: pos, EntityID: id})
}

// Undo restores the previous distinct state. It reports whether anything
// was restored.
func (b *Board) Undo() bool {
	snap, ok := b.history.Pop()
	if !ok {
		return false
	}
	if cur, err := b.encode(); err == nil && bytes.Equal(snap, cur) {
		if prev, ok := b.history.Pop(); ok {
			snap = prev
		}
	}
	if err := b.apply(snap); err != nil {
		b.logger.DPanic("failed to restore undo snapshot", zap.Error(err))
		return false
	}
	b.sched.Clear()
	b.effects = nil
	b.logger.Debug("undo", zap.String("level_id", b.info.ID), zap.Int("history", b.history.Len()))
	return true
}

// Reset returns the board to its initial state and forgets the history.
func (b *Board) Reset() {
	if err := b.apply(b.initial); err != nil {
		b.logger.DPanic("failed to restore initial snapshot", zap.Error(err))
		return
	}
	b.history.Clear()
	b.sched.Clear()
	b.effects = nil
	b.logger.Debug("reset", zap.String("level_id", b.info.ID))
}

// Snapshot serializes the full board state. Equal states always produce
// equal bytes.
func (b *Board) Snapshot() ([]byte, error) {
	return b.encode()
}

// Load replaces the current state with a snapshot of the same level. The
// current state is pushed to history first so the load can be undone.
func (b *Board) Load(snapshot []byte) error {
	st, err := decodeState(snapshot)
	if err != nil {
		return err
	}
	if st.info.ID != b.info.ID {
		return fmt.Errorf("snapshot belongs to level %q, board runs %q", st.info.ID, b.info.ID)
	}
	cur, err := b.encode()
	if err != nil {
		return err
	}
	b.history.PushIfChanged(cur)
	b.install(st)
	b.effects = nil
	return nil
}

// Checksum returns the checksum of the current state.
func (b *Board) Checksum() (string, error) {
	snap, err := b.encode()
	if err != nil {
		return "", err
	}
	return Checksum(snap), nil
}

func (b *Board) encode() ([]byte, error) {
	return encodeState(b.info, b.grid, b.store, b.moveClock, b.sched)
}

func (b *Board) apply(snapshot []byte) error {
	st, err := decodeState(snapshot)
	if err != nil {
		return err
	}
	b.install(st)
	return nil
}

func (b *Board) install(st *decodedState) {
	b.info = st.info
	b.grid = st.grid
	b.store = st.store
	b.moveClock = st.moveClock
	b.sched.Restore(st.control, st.pending)
}
