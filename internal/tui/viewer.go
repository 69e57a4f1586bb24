package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/session"
)

// Viewer steps through a recorded replay. Right, d and space step forward,
// left, a and backspace step back, home rewinds and page down skips ten.
type Viewer struct {
	screen   Screen
	renderer *Renderer
	player   *replay.Player
	title    string
}

// NewViewer creates a replay viewer.
func NewViewer(screen Screen, player *replay.Player, title string) *Viewer {
	return &Viewer{
		screen:   screen,
		renderer: NewRenderer(screen),
		player:   player,
		title:    title,
	}
}

// HandleKey applies one key and reports whether the viewer keeps running.
func (v *Viewer) HandleKey(key tcell.Key, r rune) bool {
	switch {
	case key == tcell.KeyRight || key == tcell.KeyRune && (r == 'd' || r == ' '):
		v.player.Next()
	case key == tcell.KeyLeft || key == tcell.KeyBackspace || key == tcell.KeyBackspace2 || key == tcell.KeyRune && r == 'a':
		v.player.Previous()
	case key == tcell.KeyHome || key == tcell.KeyRune && r == '0':
		v.player.Start()
	case key == tcell.KeyPgDn:
		v.player.Skip(10)
	case key == tcell.KeyEscape || key == tcell.KeyCtrlC || key == tcell.KeyRune && r == 'q':
		return false
	}
	return true
}

// Draw renders the current replay position.
func (v *Viewer) Draw() error {
	b, err := v.player.Board()
	if err != nil {
		return err
	}
	st, err := session.NewState(v.title, b)
	if err != nil {
		return err
	}
	v.screen.Clear()
	v.renderer.Draw(st)
	width, height := v.screen.Size()
	v.renderer.text(0, height-1, width,
		fmt.Sprintf("%s  step %d/%d  (left/right, home, q)", v.title, v.player.Index(), v.player.Size()-1),
		styleTitle)
	v.screen.Show()
	return nil
}

// Run draws and handles events from poll until the viewer quits or poll
// returns nil.
func (v *Viewer) Run(poll func() tcell.Event) error {
	for {
		if err := v.Draw(); err != nil {
			return err
		}
		switch ev := poll().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventKey:
			if !v.HandleKey(ev.Key(), ev.Rune()) {
				return nil
			}
		}
	}
}
