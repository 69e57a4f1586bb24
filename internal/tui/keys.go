package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/elementalcave/cave-server-go/internal/board"
)

// Command is what a key press asks the terminal client to do.
type Command int

const (
	CommandNone Command = iota
	CommandIntent
	CommandReset
	CommandNextLevel
	CommandQuit
)

// Input is a decoded key press. Intent is set for CommandIntent only.
type Input struct {
	Command Command
	Intent  board.Intent
}

func intent(i board.Intent) Input { return Input{Command: CommandIntent, Intent: i} }

// Decode maps a key to a command. Arrows and WASD move, space and enter act,
// tab switches, u, z and backspace undo, r resets, n advances after a win,
// q, escape and ctrl-c quit. Terminals do not report a bare shift press, so
// shift-tab stands in for it.
func Decode(key tcell.Key, r rune, mod tcell.ModMask) Input {
	switch key {
	case tcell.KeyUp:
		return intent(board.IntentUp)
	case tcell.KeyDown:
		return intent(board.IntentDown)
	case tcell.KeyLeft:
		return intent(board.IntentLeft)
	case tcell.KeyRight:
		return intent(board.IntentRight)
	case tcell.KeyEnter:
		return intent(board.IntentAction)
	case tcell.KeyTab, tcell.KeyBacktab:
		return intent(board.IntentSwitch)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return intent(board.IntentUndo)
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Input{Command: CommandQuit}
	case tcell.KeyRune:
	default:
		return Input{}
	}

	if mod&tcell.ModCtrl != 0 {
		return Input{}
	}
	switch r {
	case 'w', 'W':
		return intent(board.IntentUp)
	case 's', 'S':
		return intent(board.IntentDown)
	case 'a', 'A':
		return intent(board.IntentLeft)
	case 'd', 'D':
		return intent(board.IntentRight)
	case ' ':
		return intent(board.IntentAction)
	case 'e', 'E':
		return intent(board.IntentSwitch)
	case 'u', 'U', 'z', 'Z':
		return intent(board.IntentUndo)
	case 'r', 'R':
		return Input{Command: CommandReset}
	case 'n', 'N':
		return Input{Command: CommandNextLevel}
	case 'q', 'Q':
		return Input{Command: CommandQuit}
	}
	return Input{}
}

// DecodeEvent decodes a tcell key event.
func DecodeEvent(ev *tcell.EventKey) Input {
	return Decode(ev.Key(), ev.Rune(), ev.Modifiers())
}
