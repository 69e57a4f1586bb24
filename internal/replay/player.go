package replay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/board"
)

// Player steps through a recording. It simulates the whole recording up
// front and keeps the snapshot after every step, the initial state first.
type Player struct {
	gen     board.Generation
	logger  *zap.Logger
	states  [][]byte
	current int
}

// NewPlayer simulates rec under gen.
func NewPlayer(rec *Recording, gen board.Generation, logger *zap.Logger) (*Player, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b, err := board.Restore(rec.Initial, gen, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore initial state: %w", err)
	}
	p := &Player{gen: gen, logger: logger, states: [][]byte{append([]byte(nil), rec.Initial...)}}
	for i, step := range rec.StepsCopy() {
		if err := apply(b, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		snap, err := b.Snapshot()
		if err != nil {
			return nil, err
		}
		p.states = append(p.states, snap)
	}
	return p, nil
}

// Size returns the number of states, the initial one included.
func (p *Player) Size() int { return len(p.states) }

// Index returns the position of the current state.
func (p *Player) Index() int { return p.current }

// Start rewinds to the initial state.
func (p *Player) Start() { p.current = 0 }

// Next advances one state. It reports false at the end.
func (p *Player) Next() bool {
	if p.current+1 >= len(p.states) {
		return false
	}
	p.current++
	return true
}

// Previous steps back one state. It reports false at the start.
func (p *Player) Previous() bool {
	if p.current == 0 {
		return false
	}
	p.current--
	return true
}

// Skip moves by count states, clamped to the recording.
func (p *Player) Skip(count int) {
	p.current = min(max(p.current+count, 0), len(p.states)-1)
}

// Board rebuilds the current state as a board.
func (p *Player) Board() (*board.Board, error) {
	return board.Restore(p.states[p.current], p.gen, p.logger)
}
