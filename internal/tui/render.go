package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/session"
)

// Canvas is the part of tcell.Screen the renderer draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
}

var (
	styleDefault  = tcell.StyleDefault
	styleWater    = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleGround   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWall     = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleHigh     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleSunk     = tcell.StyleDefault.Foreground(tcell.ColorNavy)
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleSign     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleWon      = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	styleLost     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
	styleInactive = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleActive   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true).Reverse(true)
)

var elementGlyphs = map[board.Element]rune{
	board.ElementPerson: 'P', board.ElementFire: 'F', board.ElementWind: 'W',
	board.ElementIce: 'I', board.ElementVine: 'V', board.ElementGolem: 'G',
	board.ElementWater: 'A', board.ElementMagnet: 'M', board.ElementVoid: 'O',
	board.ElementButter: 'U', board.ElementBlob: 'B',
}

var decoGlyphs = map[board.DecoType]rune{
	board.DecoGeneric: 'g', board.DecoRock: 'r', board.DecoWood: 'w', board.DecoBox: 'x',
	board.DecoMetal: 'm', board.DecoVine: 'v', board.DecoIce: 'i', board.DecoXray: 'y',
}

var decoColors = map[board.DecoType]tcell.Color{
	board.DecoWood:  tcell.ColorOlive,
	board.DecoMetal: tcell.ColorSilver,
	board.DecoXray:  tcell.ColorFuchsia,
	board.DecoVine:  tcell.ColorGreen,
	board.DecoIce:   tcell.ColorAqua,
}

// Glyph returns the rune an entity is drawn with.
func Glyph(e board.EntityView) rune {
	switch e.Kind {
	case board.KindPlayer:
		if g, ok := elementGlyphs[e.Player.Element]; ok {
			return g
		}
	case board.KindDeco:
		if g, ok := decoGlyphs[e.Deco.Type]; ok {
			return g
		}
	case board.KindMine:
		return '*'
	case board.KindGoal:
		return '$'
	case board.KindSign:
		return '?'
	}
	return '%'
}

// Renderer draws session states on a canvas. Row 0 holds the title, the
// board follows, and status lines go below it.
type Renderer struct {
	canvas Canvas
}

// NewRenderer creates a renderer.
func NewRenderer(canvas Canvas) *Renderer {
	return &Renderer{canvas: canvas}
}

// Draw renders one state. The caller clears and shows the screen.
func (r *Renderer) Draw(st session.State) {
	width, height := r.canvas.Size()
	v := st.View

	r.text(0, 0, width, fmt.Sprintf("%s  moves %d", v.Level.Name, v.MoveClock), styleTitle)

	const top = 1
	for y, row := range st.Heights {
		for x, h := range row {
			r.put(x, top+y, width, height, terrainGlyph(h))
		}
	}

	cell := func(p board.Position) (int, int) {
		return p.X - st.Origin.X, top + p.Y - st.Origin.Y
	}
	// Non-solid entities first so players and decorations stay on top.
	for _, pass := range []func(board.EntityView) bool{
		func(e board.EntityView) bool { return e.Location == board.LocationSubmerged },
		func(e board.EntityView) bool { return e.Location == board.LocationWorld && !e.Solid() },
		func(e board.EntityView) bool { return e.Location == board.LocationWorld && e.Solid() },
	} {
		for _, e := range v.Entities {
			if e.Dead || !pass(e) {
				continue
			}
			x, y := cell(e.Position)
			r.put(x, y, width, height, glyph{Glyph(e), entityStyle(e, v.ActiveID)})
		}
	}

	y := top + len(st.Heights) + 1
	if v.Sign != "" {
		for _, line := range strings.Split(v.Sign, "$") {
			r.text(0, y, width, line, styleSign)
			y++
		}
	}
	switch v.Outcome {
	case board.OutcomeWon:
		r.text(0, y, width, " Level complete! n: next level  r: replay ", styleWon)
	case board.OutcomeLost:
		r.text(0, y, width, " You were lost. u: undo  r: reset ", styleLost)
	case board.OutcomePlaying:
	}
}

type glyph struct {
	r     rune
	style tcell.Style
}

func (r *Renderer) put(x, y, width, height int, g glyph) {
	if x < 0 || y < 0 || x >= width || y >= height {
		return
	}
	r.canvas.SetContent(x, y, g.r, nil, g.style)
}

func (r *Renderer) text(x, y, width int, s string, style tcell.Style) {
	for _, c := range s {
		if x >= width {
			return
		}
		r.canvas.SetContent(x, y, c, nil, style)
		x++
	}
}

func terrainGlyph(h int) glyph {
	switch {
	case h <= board.HeightWater:
		return glyph{'~', styleWater}
	case h == board.HeightGround:
		return glyph{'.', styleGround}
	case h == board.HeightWall:
		return glyph{'#', styleWall}
	case h <= 9:
		return glyph{rune('0' + h), styleHigh}
	default:
		return glyph{'^', styleHigh}
	}
}

func entityStyle(e board.EntityView, activeID int) tcell.Style {
	if e.Location == board.LocationSubmerged {
		return styleSunk
	}
	switch e.Kind {
	case board.KindPlayer:
		if e.ID == activeID {
			return styleActive
		}
		return styleInactive
	case board.KindDeco:
		if c, ok := decoColors[e.Deco.Type]; ok {
			return styleDefault.Foreground(c)
		}
	case board.KindMine:
		return styleDefault.Foreground(tcell.ColorRed)
	case board.KindGoal:
		return styleDefault.Foreground(tcell.ColorLime).Bold(true)
	case board.KindSign:
		return styleSign
	}
	return styleDefault
}
