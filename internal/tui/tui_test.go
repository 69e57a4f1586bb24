package tui

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/level"
	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/session"
)

type fakeScreen struct {
	width, height int
	cells         map[[2]int]rune
	shown         int
}

func newFakeScreen(w, h int) *fakeScreen {
	return &fakeScreen{width: w, height: h, cells: make(map[[2]int]rune)}
}

func (s *fakeScreen) SetContent(x, y int, primary rune, _ []rune, _ tcell.Style) {
	s.cells[[2]int{x, y}] = primary
}
func (s *fakeScreen) Size() (int, int) { return s.width, s.height }
func (s *fakeScreen) Clear()           { s.cells = make(map[[2]int]rune) }
func (s *fakeScreen) Show()            { s.shown++ }
func (s *fakeScreen) Sync()            {}

func (s *fakeScreen) at(x, y int) rune { return s.cells[[2]int{x, y}] }

func (s *fakeScreen) row(y int) string {
	out := make([]rune, 0, s.width)
	for x := range s.width {
		r := s.at(x, y)
		if r == 0 {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}

type classicOnly struct{}

func (classicOnly) Generation(string) (board.Generation, error) {
	return board.DefaultGeneration(), nil
}

func newManager(t *testing.T, levels *level.Catalog) *session.Manager {
	t.Helper()
	if levels == nil {
		var err error
		levels, err = level.Default()
		require.NoError(t, err)
	}
	return session.NewManager(session.Options{
		Levels:      levels,
		Generations: classicOnly{},
		LeasePeriod: time.Minute,
	}, zaptest.NewLogger(t))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		r    rune
		mod  tcell.ModMask
		want Input
	}{
		{"arrow", tcell.KeyLeft, 0, tcell.ModNone, intent(board.IntentLeft)},
		{"wasd", tcell.KeyRune, 'w', tcell.ModNone, intent(board.IntentUp)},
		{"upper wasd", tcell.KeyRune, 'D', tcell.ModShift, intent(board.IntentRight)},
		{"space", tcell.KeyRune, ' ', tcell.ModNone, intent(board.IntentAction)},
		{"enter", tcell.KeyEnter, 0, tcell.ModNone, intent(board.IntentAction)},
		{"tab", tcell.KeyTab, 0, tcell.ModNone, intent(board.IntentSwitch)},
		{"backtab", tcell.KeyBacktab, 0, tcell.ModShift, intent(board.IntentSwitch)},
		{"undo", tcell.KeyRune, 'z', tcell.ModNone, intent(board.IntentUndo)},
		{"backspace", tcell.KeyBackspace2, 0, tcell.ModNone, intent(board.IntentUndo)},
		{"reset", tcell.KeyRune, 'r', tcell.ModNone, Input{Command: CommandReset}},
		{"next", tcell.KeyRune, 'n', tcell.ModNone, Input{Command: CommandNextLevel}},
		{"quit", tcell.KeyRune, 'q', tcell.ModNone, Input{Command: CommandQuit}},
		{"escape", tcell.KeyEscape, 0, tcell.ModNone, Input{Command: CommandQuit}},
		{"ctrl rune", tcell.KeyRune, 'd', tcell.ModCtrl, Input{}},
		{"unbound", tcell.KeyRune, 'k', tcell.ModNone, Input{}},
		{"function key", tcell.KeyF5, 0, tcell.ModNone, Input{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.key, tt.r, tt.mod))
		})
	}
}

func TestGlyph(t *testing.T) {
	assert.Equal(t, 'F', Glyph(board.EntityView{Entity: board.NewPlayer(board.Pos(0, 0), board.ElementFire, board.DirUp)}))
	assert.Equal(t, 'x', Glyph(board.EntityView{Entity: board.NewDeco(board.Pos(0, 0), board.DecoBox)}))
	assert.Equal(t, '$', Glyph(board.EntityView{Entity: board.NewGoal(board.Pos(0, 0))}))
	assert.Equal(t, '?', Glyph(board.EntityView{Entity: board.NewSign(board.Pos(0, 0), "hi")}))
}

func TestDrawIntro(t *testing.T) {
	screen := newFakeScreen(60, 20)
	app := NewApp(screen, newManager(t, nil), "ada", nil, zaptest.NewLogger(t))
	require.NoError(t, app.Start("intro"))
	app.Draw()

	assert.Equal(t, 1, screen.shown)
	assert.Contains(t, screen.row(0), "Kindling  moves 0")
	// The intro entities span (1,1) to (8,3), so the window starts at
	// (-1,-1) and the board starts on screen row 1.
	assert.Equal(t, '~', screen.at(0, 1))
	assert.Equal(t, '#', screen.at(1, 2))
	assert.Equal(t, 'P', screen.at(2, 3))
	assert.Equal(t, '?', screen.at(4, 3))
	assert.Equal(t, 'F', screen.at(2, 5))

	running, err := app.Handle(Decode(tcell.KeyRight, 0, tcell.ModNone))
	require.NoError(t, err)
	require.True(t, running)
	app.Draw()
	assert.Equal(t, 'P', screen.at(3, 3))
	assert.Contains(t, screen.row(9), "Shift hands control to a friend in sight")
	assert.Contains(t, screen.row(10), "Space uses their power")
}

func TestDrawClipsToCanvas(t *testing.T) {
	screen := newFakeScreen(3, 2)
	app := NewApp(screen, newManager(t, nil), "ada", nil, nil)
	require.NoError(t, app.Start("maze"))
	app.Draw()
	for cell := range screen.cells {
		assert.Less(t, cell[0], 3)
		assert.Less(t, cell[1], 2)
	}
}

func TestAppAdvancesLevels(t *testing.T) {
	levels, err := level.Load(fstest.MapFS{
		"1.json": {Data: []byte(`{"id":"one","name":"One","layers":[{"rows":["P$"]}]}`)},
		"2.json": {Data: []byte(`{"id":"two","name":"Two","layers":[{"rows":["P.$"]}]}`)},
	})
	require.NoError(t, err)
	mgr := newManager(t, levels)
	app := NewApp(newFakeScreen(20, 10), mgr, "ada", nil, nil)
	require.NoError(t, app.Start("one"))

	running, err := app.Handle(Input{Command: CommandNextLevel})
	require.NoError(t, err)
	require.True(t, running)
	assert.Equal(t, "one", app.State().View.Level.ID, "no advance before winning")

	_, err = app.Handle(intent(board.IntentRight))
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeWon, app.State().View.Outcome)

	_, err = app.Handle(Input{Command: CommandNextLevel})
	require.NoError(t, err)
	assert.Equal(t, "two", app.State().View.Level.ID)
	assert.Equal(t, 1, mgr.Count())

	_, err = app.Handle(Input{Command: CommandReset})
	require.NoError(t, err)
	for range 2 {
		_, err = app.Handle(intent(board.IntentRight))
		require.NoError(t, err)
	}
	running, err = app.Handle(Input{Command: CommandNextLevel})
	require.NoError(t, err)
	assert.False(t, running, "last level ends the game")
	assert.Equal(t, 0, mgr.Count())
}

func TestRunStopsWhenEventsEnd(t *testing.T) {
	screen := newFakeScreen(20, 10)
	mgr := newManager(t, nil)
	app := NewApp(screen, mgr, "ada", nil, nil)
	require.NoError(t, app.Start(""))

	require.NoError(t, app.Run(func() tcell.Event { return nil }))
	assert.Equal(t, 1, screen.shown)
	assert.Equal(t, 0, mgr.Count())
}

func TestTone(t *testing.T) {
	_, ok := Tone([]board.Effect{{Kind: board.EffectAttach}})
	assert.False(t, ok)

	freq, ok := Tone([]board.Effect{{Kind: board.EffectSwitch}, {Kind: board.EffectExplosion}})
	require.True(t, ok)
	assert.Equal(t, 110.0, freq)

	var silent *Sounds
	silent.Play([]board.Effect{{Kind: board.EffectBurn}})
}

func TestViewerStepsThroughReplay(t *testing.T) {
	logger := zaptest.NewLogger(t)
	levels, err := level.Default()
	require.NoError(t, err)
	recorder := replay.NewRecorder(logger, t.TempDir())
	mgr := session.NewManager(session.Options{
		Levels:      levels,
		Generations: classicOnly{},
		Recorder:    recorder,
		LeasePeriod: time.Minute,
	}, logger)

	app := NewApp(newFakeScreen(60, 20), mgr, "ada", nil, logger)
	require.NoError(t, app.Start("intro"))
	for range 2 {
		_, err := app.Handle(intent(board.IntentRight))
		require.NoError(t, err)
	}
	sessionID := app.State().SessionID
	replayID, err := mgr.End(sessionID)
	require.NoError(t, err)

	rec, err := recorder.Load(replayID)
	require.NoError(t, err)
	player, err := replay.NewPlayer(rec, board.DefaultGeneration(), logger)
	require.NoError(t, err)

	screen := newFakeScreen(60, 20)
	viewer := NewViewer(screen, player, "replay")
	require.NoError(t, viewer.Draw())
	assert.Equal(t, 'P', screen.at(2, 3))
	assert.Contains(t, screen.row(19), "step 0/2")

	assert.True(t, viewer.HandleKey(tcell.KeyRight, 0))
	assert.True(t, viewer.HandleKey(tcell.KeyRune, 'd'))
	require.NoError(t, viewer.Draw())
	assert.Equal(t, 'P', screen.at(4, 3))
	assert.Contains(t, screen.row(19), "step 2/2")

	assert.True(t, viewer.HandleKey(tcell.KeyHome, 0))
	require.NoError(t, viewer.Draw())
	assert.Equal(t, 'P', screen.at(2, 3))

	assert.False(t, viewer.HandleKey(tcell.KeyRune, 'q'))
}
