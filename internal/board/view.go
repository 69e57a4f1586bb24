package board

import (
	"errors"
	"fmt"
	"sort"
)

// Outcome is the derived state of play.
type Outcome int

const (
	OutcomePlaying Outcome = iota
	OutcomeWon
	OutcomeLost
)

var outcomeNames = map[Outcome]string{
	OutcomePlaying: "playing",
	OutcomeWon:     "won",
	OutcomeLost:    "lost",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OUTCOME_%d", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Outcome reports whether the level is won, lost or still in play. The
// level is won when the active player stands alive on a goal and lost when
// the active player is dead.
func (b *Board) Outcome() Outcome {
	p, ok := b.store.ActivePlayer()
	if !ok {
		return OutcomePlaying
	}
	if p.Dead {
		return OutcomeLost
	}
	if !b.store.InWorld(p.ID) {
		return OutcomePlaying
	}
	for e := range b.store.EntitiesAt(p.Position) {
		if e.Kind == KindGoal {
			return OutcomeWon
		}
	}
	return OutcomePlaying
}

// NearbySign returns the text of a sign on or next to the active player.
func (b *Board) NearbySign() (string, bool) {
	p, ok := b.controllable()
	if !ok {
		return "", false
	}
	for _, s := range b.store.ByKind(KindSign) {
		if s.Position.Chebyshev(p.Position) <= 1 {
			return s.Sign.Text, true
		}
	}
	return "", false
}

// EntityView is a detached copy of an entity plus where the store holds it.
type EntityView struct {
	*Entity
	Location Location `json:"location"`
}

// View is what renderers and transports read after a drain.
type View struct {
	Level     LevelInfo    `json:"level"`
	MoveClock int          `json:"move_clock"`
	ActiveID  int          `json:"active_id,omitempty"`
	Outcome   Outcome      `json:"outcome"`
	Sign      string       `json:"sign,omitempty"`
	Entities  []EntityView `json:"entities"`
	Effects   []Effect     `json:"effects,omitempty"`
}

// View returns a copy of everything a collaborator may render. Entities are
// listed primary list first, then submerged, phased and fallen.
func (b *Board) View() View {
	v := View{
		Level:     b.info,
		MoveClock: b.moveClock,
		Outcome:   b.Outcome(),
		Effects:   b.Effects(),
	}
	if p, ok := b.store.ActivePlayer(); ok {
		v.ActiveID = p.ID
	}
	if text, ok := b.NearbySign(); ok {
		v.Sign = text
	}
	all := b.store.All()
	v.Entities = make([]EntityView, 0, len(all))
	for _, e := range all {
		v.Entities = append(v.Entities, EntityView{Entity: e.Clone(), Location: b.store.Where(e.ID)})
	}
	return v
}

// Lookup resolves an entity id to a detached copy.
func (b *Board) Lookup(id int) (EntityView, bool) {
	e, ok := b.store.Get(id)
	if !ok {
		return EntityView{}, false
	}
	return EntityView{Entity: e.Clone(), Location: b.store.Where(id)}, true
}

// Heights returns the terrain heights of the rectangle with top-left corner
// origin and the given size, row by row.
func (b *Board) Heights(origin Position, width, height int) [][]int {
	rows := make([][]int, height)
	for y := range height {
		row := make([]int, width)
		for x := range width {
			row[x] = b.grid.HeightAt(origin.Offset(x, y))
		}
		rows[y] = row
	}
	return rows
}

// CheckInvariants verifies the structural invariants of the board: one
// solid per cell in the world, side-map keys matching positions, unique ids,
// a single active player and an acyclic magnet forest.
func (b *Board) CheckInvariants() error {
	var errs []error

	ids := make(map[int]bool)
	for _, e := range b.store.All() {
		if ids[e.ID] {
			errs = append(errs, fmt.Errorf("entity id %d held twice", e.ID))
		}
		ids[e.ID] = true
		if e.ID >= b.store.NextID() {
			errs = append(errs, fmt.Errorf("entity id %d not below allocator %d", e.ID, b.store.NextID()))
		}
	}

	solids := make(map[Key]int)
	for _, e := range b.store.Entities() {
		if e.Dead {
			errs = append(errs, fmt.Errorf("dead entity %d in the world", e.ID))
		}
		if !e.Solid() {
			continue
		}
		if other, taken := solids[e.Position.Key()]; taken {
			errs = append(errs, fmt.Errorf("entities %d and %d share %s", other, e.ID, e.Position))
		}
		solids[e.Position.Key()] = e.ID
	}
	for k, e := range b.store.submerged {
		if e.Position.Key() != k {
			errs = append(errs, fmt.Errorf("submerged entity %d keyed at %s", e.ID, k.Position()))
		}
	}
	for k, e := range b.store.phased {
		if e.Position.Key() != k {
			errs = append(errs, fmt.Errorf("phased entity %d keyed at %s", e.ID, k.Position()))
		}
	}

	active := 0
	for _, p := range b.store.Players() {
		if p.Player.Active {
			active++
		}
	}
	if active > 1 {
		errs = append(errs, fmt.Errorf("%d active players", active))
	}

	followed := make(map[int]int)
	links := make(map[int]int)
	for _, e := range b.store.All() {
		if !e.IsDeco() || e.Deco.Attachment == nil {
			continue
		}
		t := e.Deco.Attachment.TargetID
		if prev, ok := followed[t]; ok {
			errs = append(errs, fmt.Errorf("entity %d followed by both %d and %d", t, prev, e.ID))
		}
		followed[t] = e.ID
		links[e.ID] = t
	}
	starts := make([]int, 0, len(links))
	for id := range links {
		starts = append(starts, id)
	}
	sort.Ints(starts)
	for _, start := range starts {
		seen := map[int]bool{start: true}
		for cur := links[start]; ; {
			if seen[cur] {
				errs = append(errs, fmt.Errorf("attachment cycle through entity %d", start))
				break
			}
			seen[cur] = true
			next, ok := links[cur]
			if !ok {
				break
			}
			cur = next
		}
	}

	return errors.Join(errs...)
}
