package board

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Test boards are drawn as rows of runes. Terrain: '~' water, '#' wall,
// anything else ground. Entities stand on ground:
//
//	P person  F fire  W wind  I ice  V vine  G golem  A water  M magnet
//	O void    U butter  B blob
//	r rock  w wood  x box  m metal  y xray  g generic  * mine  $ goal  ? sign
var fixtureElements = map[rune]Element{
	'P': ElementPerson, 'F': ElementFire, 'W': ElementWind, 'I': ElementIce,
	'V': ElementVine, 'G': ElementGolem, 'A': ElementWater, 'M': ElementMagnet,
	'O': ElementVoid, 'U': ElementButter, 'B': ElementBlob,
}

var fixtureDecos = map[rune]DecoType{
	'r': DecoRock, 'w': DecoWood, 'x': DecoBox, 'm': DecoMetal, 'y': DecoXray, 'g': DecoGeneric,
}

type scene struct {
	t     *testing.T
	board *Board
	ids   map[rune][]int
}

type sceneConfig struct {
	facing  map[rune]Direction
	active  rune
	heights map[Position]int
	gen     Generation
}

type sceneOption func(*sceneConfig)

// facing turns every player drawn as r toward d. Players face right by
// default.
func facing(r rune, d Direction) sceneOption {
	return func(c *sceneConfig) { c.facing[r] = d }
}

// active hands initial control to the first player drawn as r. The person
// is active by default.
func active(r rune) sceneOption {
	return func(c *sceneConfig) { c.active = r }
}

// height overrides the terrain under one cell.
func height(x, y, h int) sceneOption {
	return func(c *sceneConfig) { c.heights[Pos(x, y)] = h }
}

// tune edits the generation the board runs.
func tune(fn func(*Generation)) sceneOption {
	return func(c *sceneConfig) { fn(&c.gen) }
}

func sceneSetup(rows []string, opts ...sceneOption) (Setup, sceneConfig, map[rune][]*Entity) {
	cfg := sceneConfig{
		facing:  map[rune]Direction{},
		active:  'P',
		heights: map[Position]int{},
		gen:     DefaultGeneration(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	grid := NewGrid()
	byRune := make(map[rune][]*Entity)
	var entities []*Entity
	for y, row := range rows {
		for x, r := range []rune(row) {
			pos := Pos(x, y)
			switch r {
			case '~':
				grid.SetHeightAt(pos, HeightWater)
				continue
			case '#':
				grid.SetHeightAt(pos, HeightWall)
				continue
			}
			grid.SetHeightAt(pos, HeightGround)

			var e *Entity
			if el, ok := fixtureElements[r]; ok {
				dir := DirRight
				if d, ok := cfg.facing[r]; ok {
					dir = d
				}
				e = NewPlayer(pos, el, dir)
			} else if dt, ok := fixtureDecos[r]; ok {
				e = NewDeco(pos, dt)
			} else {
				switch r {
				case '*':
					e = NewMine(pos)
				case '$':
					e = NewGoal(pos)
				case '?':
					e = NewSign(pos, "hello")
				}
			}
			if e == nil {
				continue
			}
			byRune[r] = append(byRune[r], e)
			entities = append(entities, e)
		}
	}
	for pos, h := range cfg.heights {
		grid.SetHeightAt(pos, h)
	}
	if players := byRune[cfg.active]; len(players) > 0 && players[0].IsPlayer() {
		players[0].Player.Active = true
	}
	return Setup{Info: LevelInfo{ID: "test", Name: "Test"}, Grid: grid, Entities: entities}, cfg, byRune
}

func newScene(t *testing.T, rows []string, opts ...sceneOption) *scene {
	t.Helper()
	setup, cfg, byRune := sceneSetup(rows, opts...)
	// Development loggers panic on DPanic, so any invariant violation
	// fails the test.
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.Development()))
	b, err := New(setup, cfg.gen, logger, WithInvariantChecks(true))
	require.NoError(t, err)

	// New clones the entities; ids were assigned in drawing order.
	ids := make(map[rune][]int)
	next := 1
	for y, row := range rows {
		for x, r := range []rune(row) {
			for _, e := range byRune[r] {
				if e.Position == Pos(x, y) {
					ids[r] = append(ids[r], next)
					next++
				}
			}
		}
	}
	return &scene{t: t, board: b, ids: ids}
}

func (s *scene) id(r rune) int {
	s.t.Helper()
	require.NotEmpty(s.t, s.ids[r], "no entity drawn as %q", r)
	return s.ids[r][0]
}

func (s *scene) nth(r rune, n int) int {
	s.t.Helper()
	require.Greater(s.t, len(s.ids[r]), n, "fewer than %d entities drawn as %q", n+1, r)
	return s.ids[r][n]
}

func (s *scene) get(r rune) EntityView {
	s.t.Helper()
	return s.lookup(s.id(r))
}

func (s *scene) lookup(id int) EntityView {
	s.t.Helper()
	v, ok := s.board.Lookup(id)
	require.True(s.t, ok, "entity %d not found", id)
	return v
}

func (s *scene) pos(r rune) Position {
	s.t.Helper()
	return s.get(r).Position
}

func (s *scene) submit(intents ...Intent) {
	s.t.Helper()
	for _, in := range intents {
		require.NoError(s.t, s.board.SubmitIntent(in))
	}
}

// owned returns the decorations of type t owned by the entity drawn as r,
// wherever they are held.
func (s *scene) owned(r rune, t DecoType) []EntityView {
	s.t.Helper()
	owner := s.id(r)
	var out []EntityView
	for _, e := range s.board.View().Entities {
		if e.IsDecoType(t) && e.Deco.Owner == owner && !e.Dead {
			out = append(out, e)
		}
	}
	return out
}

func (s *scene) hasEffect(kind EffectKind) bool {
	for _, e := range s.board.Effects() {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
