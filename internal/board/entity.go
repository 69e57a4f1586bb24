package board

import "fmt"

// Kind discriminates the entity variants.
type Kind int

const (
	KindPlayer Kind = iota
	KindDeco
	KindMine
	KindGoal
	KindSign
)

var kindNames = map[Kind]string{
	KindPlayer: "player",
	KindDeco:   "deco",
	KindMine:   "mine",
	KindGoal:   "goal",
	KindSign:   "sign",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// ParseKind converts a kind name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Element is the behavioural role of a player.
type Element int

const (
	ElementPerson Element = iota
	ElementFire
	ElementWind
	ElementIce
	ElementVine
	ElementGolem
	ElementWater
	ElementMagnet
	ElementVoid
	ElementButter
	ElementBlob
)

var elementNames = map[Element]string{
	ElementPerson: "person",
	ElementFire:   "fire",
	ElementWind:   "wind",
	ElementIce:    "ice",
	ElementVine:   "vine",
	ElementGolem:  "golem",
	ElementWater:  "water",
	ElementMagnet: "magnet",
	ElementVoid:   "void",
	ElementButter: "butter",
	ElementBlob:   "blob",
}

func (e Element) String() string {
	if name, ok := elementNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ELEMENT_%d", int(e))
}

// ParseElement converts an element name. "plant" is accepted as an alias
// for vine and "rock" for golem, matching older level files.
func ParseElement(s string) (Element, error) {
	switch s {
	case "plant":
		return ElementVine, nil
	case "rock":
		return ElementGolem, nil
	}
	for e, name := range elementNames {
		if name == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown element %q", s)
}

func (e Element) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Element) UnmarshalText(text []byte) error {
	parsed, err := ParseElement(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// DecoType is the material of a decoration.
type DecoType int

const (
	DecoGeneric DecoType = iota
	DecoRock
	DecoWood
	DecoBox
	DecoMetal
	DecoVine
	DecoIce
	DecoXray
)

var decoNames = map[DecoType]string{
	DecoGeneric: "generic",
	DecoRock:    "rock",
	DecoWood:    "wood",
	DecoBox:     "box",
	DecoMetal:   "metal",
	DecoVine:    "vine",
	DecoIce:     "ice",
	DecoXray:    "xray",
}

func (d DecoType) String() string {
	if name, ok := decoNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DECO_%d", int(d))
}

// ParseDecoType converts a decoration name. Unknown names are reported as
// an error so loaders can fall back to DecoGeneric with a label.
func ParseDecoType(s string) (DecoType, error) {
	for d, name := range decoNames {
		if name == s {
			return d, nil
		}
	}
	return DecoGeneric, fmt.Errorf("unknown deco type %q", s)
}

func (d DecoType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DecoType) UnmarshalText(text []byte) error {
	parsed, err := ParseDecoType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Magnetizable reports whether magnets pull this material.
func (d DecoType) Magnetizable() bool {
	return d == DecoMetal || d == DecoXray
}

// Flammable reports whether fire destroys this material.
func (d DecoType) Flammable() bool {
	return d == DecoWood
}

// Attachment is a magnet link from a decoration to the entity it trails.
type Attachment struct {
	TargetID  int      `json:"target_id"`
	LastKnown Position `json:"last_known"`
}

// PlayerData holds the player-only fields.
type PlayerData struct {
	Element        Element   `json:"element"`
	Direction      Direction `json:"direction"`
	Active         bool      `json:"active,omitempty"`
	PhasedOut      bool      `json:"phased_out,omitempty"`
	IsBlob         bool      `json:"is_blob,omitempty"`
	BlobDirection  Direction `json:"blob_direction,omitempty"`
	LastActiveTurn int       `json:"last_active_turn,omitempty"`
	LastMoved      int       `json:"last_moved,omitempty"`
}

// DecoData holds the decoration-only fields.
type DecoData struct {
	Type        DecoType    `json:"type"`
	Label       string      `json:"label,omitempty"`
	Owner       int         `json:"owner,omitempty"`
	Direction   Direction   `json:"direction,omitempty"`
	Waterlogged bool        `json:"waterlogged,omitempty"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	LastMoved   int         `json:"last_moved,omitempty"`
}

// SignData holds the text of a sign.
type SignData struct {
	Text string `json:"text"`
}

// Entity is one object on the board. Exactly one of Player, Deco or Sign is
// set for the matching kind; mines and goals carry no extra data.
type Entity struct {
	ID       int         `json:"id"`
	Kind     Kind        `json:"kind"`
	Position Position    `json:"position"`
	Dead     bool        `json:"dead,omitempty"`
	Player   *PlayerData `json:"player,omitempty"`
	Deco     *DecoData   `json:"deco,omitempty"`
	Sign     *SignData   `json:"sign,omitempty"`
}

// NewPlayer builds a player entity.
func NewPlayer(pos Position, element Element, facing Direction) *Entity {
	p := &PlayerData{Element: element, Direction: facing}
	if element == ElementBlob {
		p.IsBlob = true
		p.BlobDirection = facing
	}
	return &Entity{Kind: KindPlayer, Position: pos, Player: p}
}

// NewDeco builds a decoration entity.
func NewDeco(pos Position, t DecoType) *Entity {
	return &Entity{Kind: KindDeco, Position: pos, Deco: &DecoData{Type: t}}
}

// NewMine builds a mine.
func NewMine(pos Position) *Entity {
	return &Entity{Kind: KindMine, Position: pos}
}

// NewGoal builds a goal marker.
func NewGoal(pos Position) *Entity {
	return &Entity{Kind: KindGoal, Position: pos}
}

// NewSign builds a sign with text.
func NewSign(pos Position, text string) *Entity {
	return &Entity{Kind: KindSign, Position: pos, Sign: &SignData{Text: text}}
}

// IsPlayer reports whether e is a player.
func (e *Entity) IsPlayer() bool { return e.Kind == KindPlayer && e.Player != nil }

// IsDeco reports whether e is a decoration.
func (e *Entity) IsDeco() bool { return e.Kind == KindDeco && e.Deco != nil }

// IsDecoType reports whether e is a decoration of type t.
func (e *Entity) IsDecoType(t DecoType) bool { return e.IsDeco() && e.Deco.Type == t }

// IsElement reports whether e is a player currently of element el.
func (e *Entity) IsElement(el Element) bool { return e.IsPlayer() && e.Player.Element == el }

// Solid reports whether the entity blocks its cell. Mines, goals and signs
// share cells with solid entities.
func (e *Entity) Solid() bool {
	switch e.Kind {
	case KindPlayer, KindDeco:
		return true
	case KindMine, KindGoal, KindSign:
		return false
	default:
		panic(fmt.Sprintf("board: unhandled entity kind %d", int(e.Kind)))
	}
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	cp := *e
	if e.Player != nil {
		p := *e.Player
		cp.Player = &p
	}
	if e.Deco != nil {
		d := *e.Deco
		if e.Deco.Attachment != nil {
			a := *e.Deco.Attachment
			d.Attachment = &a
		}
		cp.Deco = &d
	}
	if e.Sign != nil {
		s := *e.Sign
		cp.Sign = &s
	}
	return &cp
}

func (e *Entity) String() string {
	switch e.Kind {
	case KindPlayer:
		return fmt.Sprintf("player#%d[%s]@%s", e.ID, e.Player.Element, e.Position)
	case KindDeco:
		return fmt.Sprintf("deco#%d[%s]@%s", e.ID, e.Deco.Type, e.Position)
	default:
		return fmt.Sprintf("%s#%d@%s", e.Kind, e.ID, e.Position)
	}
}

func (e *Entity) setLastMoved(clock int) {
	switch {
	case e.Player != nil:
		e.Player.LastMoved = clock
	case e.Deco != nil:
		e.Deco.LastMoved = clock
	}
}

func (e *Entity) lastMoved() int {
	switch {
	case e.Player != nil:
		return e.Player.LastMoved
	case e.Deco != nil:
		return e.Deco.LastMoved
	}
	return 0
}
