package level

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/elementalcave/cave-server-go/internal/board"
)

var (
	// ErrNoPerson is returned for a level without a person to fall back to.
	ErrNoPerson = errors.New("level has no person")
	// ErrMultiplePersons is returned when more than one person is placed.
	ErrMultiplePersons = errors.New("level has more than one person")
	// ErrMultipleActive is returned when more than one player starts active.
	ErrMultipleActive = errors.New("level has more than one active player")
	// ErrUnknownElement is returned for a player of an unknown element.
	ErrUnknownElement = errors.New("unknown player element")
	// ErrUnknownGlyph is returned for a row character with no legend entry.
	ErrUnknownGlyph = errors.New("unknown row glyph")
)

// File is the on-disk level format.
type File struct {
	ID         string  `json:"id" jsonschema:"description=Unique level identifier"`
	Name       string  `json:"name" jsonschema:"description=Display name"`
	Generation string  `json:"generation,omitempty" jsonschema:"description=Rule generation the level was designed for"`
	Layers     []Layer `json:"layers" jsonschema:"minItems=1"`
}

// Layer is one authoring layer. Layers merge in order: positive heights
// overwrite what earlier layers wrote and things concatenate.
type Layer struct {
	// Grid maps "cx,cy" chunk coordinates to up to 64*64 heights in
	// row-major order.
	Grid    map[string][]int `json:"grid,omitempty"`
	Foliage [][2]int         `json:"foliage,omitempty"`
	// Rows draw terrain and entities from Origin: '~' water, '.' ground,
	// '#' wall, a digit an explicit height. Any other glyph is looked up in
	// Legend, then in the built-in glyph table, and stands on ground.
	Origin [2]int           `json:"origin,omitempty"`
	Rows   []string         `json:"rows,omitempty"`
	Legend map[string]Thing `json:"legend,omitempty"`
	Things []Thing          `json:"things,omitempty"`
}

// Thing is a placed entity. Names other than player, deco, mine, goal and
// sign are read as decorations of that type.
type Thing struct {
	Name     string     `json:"name"`
	Position [2]float64 `json:"position,omitempty"`
	Data     ThingData  `json:"data,omitempty"`
}

// ThingData carries the kind-specific fields of a Thing.
type ThingData struct {
	// Type is the element of a player or the type of a decoration.
	Type      string `json:"type,omitempty"`
	Direction string `json:"direction,omitempty" jsonschema:"enum=up,enum=down,enum=left,enum=right,enum=none"`
	Active    bool   `json:"active,omitempty"`
	Text      string `json:"text,omitempty"`
	Label     string `json:"label,omitempty"`
}

var glyphs = map[rune]Thing{
	'P': player("person"), 'F': player("fire"), 'W': player("wind"), 'I': player("ice"),
	'V': player("vine"), 'G': player("golem"), 'A': player("water"), 'M': player("magnet"),
	'O': player("void"), 'U': player("butter"), 'B': player("blob"),
	'r': deco("rock"), 'w': deco("wood"), 'x': deco("box"), 'm': deco("metal"),
	'y': deco("xray"), 'g': deco("generic"),
	'*': {Name: "mine"}, '$': {Name: "goal"},
}

func player(element string) Thing { return Thing{Name: "player", Data: ThingData{Type: element}} }
func deco(t string) Thing         { return Thing{Name: "deco", Data: ThingData{Type: t}} }

// Parse decodes a level file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode level: %w", err)
	}
	if f.ID == "" {
		return nil, fmt.Errorf("level has no id")
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("level %q has no layers", f.ID)
	}
	return &f, nil
}

// Build merges the layers and converts every thing into an entity. Entities
// are listed in authoring order: per layer, row glyphs top to bottom and then
// the things list. With no active player the person starts active.
func (f *File) Build() (board.Setup, error) {
	grid := board.NewGrid()
	var entities []*board.Entity

	for i, layer := range f.Layers {
		if err := mergeGrid(grid, layer); err != nil {
			return board.Setup{}, fmt.Errorf("level %q layer %d: %w", f.ID, i, err)
		}
		placed, err := drawRows(grid, layer)
		if err != nil {
			return board.Setup{}, fmt.Errorf("level %q layer %d: %w", f.ID, i, err)
		}
		entities = append(entities, placed...)
		for j, t := range layer.Things {
			pos := board.Pos(int(math.Floor(t.Position[0])), int(math.Floor(t.Position[1])))
			e, err := t.entity(pos)
			if err != nil {
				return board.Setup{}, fmt.Errorf("level %q layer %d thing %d: %w", f.ID, i, j, err)
			}
			entities = append(entities, e)
		}
	}

	if err := settleControl(entities); err != nil {
		return board.Setup{}, fmt.Errorf("level %q: %w", f.ID, err)
	}

	return board.Setup{
		Info:     board.LevelInfo{ID: f.ID, Name: f.Name, Generation: f.Generation},
		Grid:     grid,
		Entities: entities,
	}, nil
}

func mergeGrid(grid *board.Grid, layer Layer) error {
	for key, heights := range layer.Grid {
		coord, err := parseChunkKey(key)
		if err != nil {
			return err
		}
		if len(heights) > board.ChunkSize*board.ChunkSize {
			return fmt.Errorf("chunk %s holds %d heights", key, len(heights))
		}
		for i, h := range heights {
			if h <= 0 {
				continue
			}
			grid.SetHeightAt(board.Pos(coord.X*board.ChunkSize+i%board.ChunkSize, coord.Y*board.ChunkSize+i/board.ChunkSize), h)
		}
	}
	for _, p := range layer.Foliage {
		grid.SetFoliageAt(board.Pos(p[0], p[1]), true)
	}
	return nil
}

func parseChunkKey(key string) (board.ChunkCoord, error) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return board.ChunkCoord{}, fmt.Errorf("malformed chunk key %q", key)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return board.ChunkCoord{}, fmt.Errorf("malformed chunk key %q: %w", key, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return board.ChunkCoord{}, fmt.Errorf("malformed chunk key %q: %w", key, err)
	}
	return board.ChunkCoord{X: x, Y: y}, nil
}

func drawRows(grid *board.Grid, layer Layer) ([]*board.Entity, error) {
	var out []*board.Entity
	for y, row := range layer.Rows {
		for x, r := range []rune(row) {
			pos := board.Pos(layer.Origin[0]+x, layer.Origin[1]+y)
			switch {
			case r == '~' || r == ' ':
				continue
			case r == '.':
				grid.SetHeightAt(pos, board.HeightGround)
				continue
			case r == '#':
				grid.SetHeightAt(pos, board.HeightWall)
				continue
			case r >= '0' && r <= '9':
				if h := int(r - '0'); h > 0 {
					grid.SetHeightAt(pos, h)
				}
				continue
			}

			t, ok := layer.Legend[string(r)]
			if !ok {
				t, ok = glyphs[r]
			}
			if !ok {
				return nil, fmt.Errorf("%w %q at %s", ErrUnknownGlyph, r, pos)
			}
			grid.SetHeightAt(pos, board.HeightGround)
			e, err := t.entity(pos)
			if err != nil {
				return nil, fmt.Errorf("glyph %q at %s: %w", r, pos, err)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func (t Thing) entity(pos board.Position) (*board.Entity, error) {
	switch t.Name {
	case "player":
		name := t.Data.Type
		if name == "" {
			name = "fire"
		}
		el, err := board.ParseElement(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownElement, name)
		}
		dir := board.DirDown
		if t.Data.Direction != "" {
			if dir, err = board.ParseDirection(t.Data.Direction); err != nil {
				return nil, err
			}
		}
		e := board.NewPlayer(pos, el, dir)
		e.Player.Active = t.Data.Active
		return e, nil
	case "deco":
		return newDeco(pos, t.Data.Type, t.Data.Label), nil
	case "mine":
		return board.NewMine(pos), nil
	case "goal":
		return board.NewGoal(pos), nil
	case "sign":
		return board.NewSign(pos, t.Data.Text), nil
	default:
		return newDeco(pos, t.Name, t.Data.Label), nil
	}
}

// newDeco reads an unknown decoration type as a generic decoration labelled
// with the type name.
func newDeco(pos board.Position, typ, label string) *board.Entity {
	dt, err := board.ParseDecoType(typ)
	if err != nil {
		dt = board.DecoGeneric
		if label == "" {
			label = typ
		}
	}
	e := board.NewDeco(pos, dt)
	e.Deco.Label = label
	return e
}

func settleControl(entities []*board.Entity) error {
	var person *board.Entity
	active := 0
	for _, e := range entities {
		if !e.IsPlayer() {
			continue
		}
		if e.Player.Active {
			active++
		}
		if e.Player.Element == board.ElementPerson && !e.Player.IsBlob {
			if person != nil {
				return ErrMultiplePersons
			}
			person = e
		}
	}
	if person == nil {
		return ErrNoPerson
	}
	if active > 1 {
		return ErrMultipleActive
	}
	if active == 0 {
		person.Player.Active = true
	}
	return nil
}
