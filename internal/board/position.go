package board

import "fmt"

// Position is an integer cell coordinate on the board.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pos is shorthand for Position{X: x, Y: y}.
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add returns the neighbouring cell in direction d.
func (p Position) Add(d Direction) Position {
	dx, dy := d.Vector()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Offset returns p shifted by (dx, dy).
func (p Position) Offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Chebyshev returns the king-move distance between two cells.
func (p Position) Chebyshev(o Position) int {
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

// Manhattan returns the taxicab distance between two cells.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

// Adjacent reports whether o is one orthogonal step away from p.
func (p Position) Adjacent(o Position) bool {
	return p.Manhattan(o) == 1
}

// Less orders positions row-major (y, then x). Rules that need a
// deterministic visiting order sort by it.
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Key packs the position into a map key.
func (p Position) Key() Key {
	return Key(uint64(uint32(int32(p.X)))<<32 | uint64(uint32(int32(p.Y))))
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Key is a packed coordinate used by the side maps.
type Key uint64

// Position unpacks the key.
func (k Key) Position() Position {
	return Position{X: int(int32(uint32(k >> 32))), Y: int(int32(uint32(k)))}
}

// Direction is one of the four facing directions.
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

var directionNames = map[Direction]string{
	DirNone:  "none",
	DirUp:    "up",
	DirDown:  "down",
	DirLeft:  "left",
	DirRight: "right",
}

// Directions lists the four real directions in a fixed order.
var Directions = [4]Direction{DirUp, DirRight, DirDown, DirLeft}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DIRECTION_%d", int(d))
}

// ParseDirection converts a direction name. The empty string maps to DirNone.
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return DirNone, nil
	}
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}

// Vector returns the unit step for the direction. Up is negative Y.
func (d Direction) Vector() (int, int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return DirNone
	}
}

// Vertical reports whether the direction lies on the Y axis.
func (d Direction) Vertical() bool {
	return d == DirUp || d == DirDown
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
