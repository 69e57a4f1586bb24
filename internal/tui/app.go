package tui

import (
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/session"
)

// Screen is the part of tcell.Screen the terminal client needs.
type Screen interface {
	Canvas
	Clear()
	Show()
	Sync()
}

// App plays sessions in a terminal, one level after another.
type App struct {
	screen   Screen
	renderer *Renderer
	sessions *session.Manager
	sounds   *Sounds
	logger   *zap.Logger
	owner    string

	sess  *session.Session
	state session.State
}

// NewApp creates a terminal client. sounds may be nil.
func NewApp(screen Screen, sessions *session.Manager, owner string, sounds *Sounds, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		screen:   screen,
		renderer: NewRenderer(screen),
		sessions: sessions,
		sounds:   sounds,
		logger:   logger,
		owner:    owner,
	}
}

// Start begins a level, ending the session in progress.
func (a *App) Start(levelID string) error {
	sess, err := a.sessions.Start(a.owner, levelID)
	if err != nil {
		return err
	}
	a.end()
	a.sess = sess
	a.state = sess.State()
	return nil
}

// State returns the state last drawn.
func (a *App) State() session.State { return a.state }

// Handle applies one input and reports whether the client keeps running.
func (a *App) Handle(in Input) (bool, error) {
	if a.sess == nil {
		return false, errors.New("no level started")
	}
	switch in.Command {
	case CommandNone:
	case CommandQuit:
		a.end()
		return false, nil
	case CommandReset:
		a.state = a.sess.Reset()
	case CommandIntent:
		st, err := a.sess.Submit(in.Intent)
		a.state = st
		if err != nil && !errors.Is(err, board.ErrCascadeLimit) {
			return false, err
		}
		a.sounds.Play(st.View.Effects)
	case CommandNextLevel:
		if a.state.View.Outcome != board.OutcomeWon {
			return true, nil
		}
		next, ok := a.sessions.Levels().Next(a.state.View.Level.ID)
		if !ok {
			a.end()
			return false, nil
		}
		if err := a.Start(next); err != nil {
			return false, fmt.Errorf("failed to start level %q: %w", next, err)
		}
	}
	return true, nil
}

// Draw renders the current state.
func (a *App) Draw() {
	a.screen.Clear()
	a.renderer.Draw(a.state)
	a.screen.Show()
}

// Run draws and handles events from poll until the player quits or poll
// returns nil.
func (a *App) Run(poll func() tcell.Event) error {
	a.Draw()
	for {
		ev := poll()
		if ev == nil {
			a.end()
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			a.screen.Sync()
		case *tcell.EventKey:
			running, err := a.Handle(DecodeEvent(ev))
			if err != nil || !running {
				return err
			}
		}
		a.Draw()
	}
}

func (a *App) end() {
	if a.sess == nil {
		return
	}
	replayID, err := a.sessions.End(a.sess.ID)
	if err != nil {
		a.logger.Debug("session already closed", zap.String("session_id", a.sess.ID), zap.Error(err))
	} else if replayID != "" {
		a.logger.Info("replay saved", zap.String("replay_id", replayID))
	}
	a.sess = nil
}
