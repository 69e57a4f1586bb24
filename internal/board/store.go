package board

import (
	"fmt"
	"iter"
	"sort"
)

// Location tells which part of the store currently holds an entity.
type Location int

const (
	LocationNone Location = iota
	LocationWorld
	LocationSubmerged
	LocationPhased
	LocationFallen
)

var locationNames = map[Location]string{
	LocationNone:      "none",
	LocationWorld:     "world",
	LocationSubmerged: "submerged",
	LocationPhased:    "phased",
	LocationFallen:    "fallen",
}

func (l Location) String() string {
	if name, ok := locationNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LOCATION_%d", int(l))
}

func (l Location) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Store owns every entity of a board. Live entities sit in the ordered
// primary list; submerged and phased-out entities sit in position-keyed side
// maps; dead entities are kept in the fallen list so collaborators can still
// resolve their ids. Ids come from a monotonic allocator and are never reused.
type Store struct {
	entities  []*Entity
	submerged map[Key]*Entity
	phased    map[Key]*Entity
	fallen    []*Entity
	nextID    int
}

// NewStore returns an empty store whose first allocated id is 1.
func NewStore() *Store {
	return &Store{
		submerged: make(map[Key]*Entity),
		phased:    make(map[Key]*Entity),
		nextID:    1,
	}
}

// NextID returns the id the next Spawn will assign.
func (s *Store) NextID() int { return s.nextID }

// Spawn inserts e at the end of the primary list. An entity without an id
// gets the next one from the allocator; a preset id must be unused and moves
// the allocator past it. Dead entities go straight to the fallen list.
func (s *Store) Spawn(e *Entity) (int, error) {
	if e.ID <= 0 {
		e.ID = s.nextID
	} else if _, ok := s.Get(e.ID); ok {
		return 0, fmt.Errorf("entity id %d already in use", e.ID)
	}
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
	if e.Dead {
		s.fallen = append(s.fallen, e)
		return e.ID, nil
	}
	s.entities = append(s.entities, e)
	return e.ID, nil
}

// Entities returns the primary list. Callers must not modify the slice.
func (s *Store) Entities() []*Entity { return s.entities }

// Len returns the size of the primary list.
func (s *Store) Len() int { return len(s.entities) }

// EntitiesAt yields the primary-list entities standing on pos, in list order.
// The sequence reads the list lazily, so callers that mutate the store while
// ranging must collect first.
func (s *Store) EntitiesAt(pos Position) iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for _, e := range s.entities {
			if e.Position == pos {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// SolidAt returns the solid primary-list entity at pos, if any.
func (s *Store) SolidAt(pos Position) (*Entity, bool) {
	for e := range s.EntitiesAt(pos) {
		if e.Solid() {
			return e, true
		}
	}
	return nil, false
}

// SubmergedAt returns the submerged entity at pos, if any.
func (s *Store) SubmergedAt(pos Position) (*Entity, bool) {
	e, ok := s.submerged[pos.Key()]
	return e, ok
}

// PhasedAt returns the phased-out entity at pos, if any.
func (s *Store) PhasedAt(pos Position) (*Entity, bool) {
	e, ok := s.phased[pos.Key()]
	return e, ok
}

// ByKind returns the primary-list entities of one kind in list order.
func (s *Store) ByKind(kind Kind) []*Entity {
	var out []*Entity
	for _, e := range s.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Players returns every player the store knows, wherever it is held: primary
// list first, then submerged, phased and fallen, the side maps in position
// order.
func (s *Store) Players() []*Entity {
	var out []*Entity
	for _, e := range s.All() {
		if e.IsPlayer() {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entity across the primary list, both side maps and the
// fallen list.
func (s *Store) All() []*Entity {
	out := make([]*Entity, 0, len(s.entities)+len(s.submerged)+len(s.phased)+len(s.fallen))
	out = append(out, s.entities...)
	out = append(out, sortedByPosition(s.submerged)...)
	out = append(out, sortedByPosition(s.phased)...)
	out = append(out, s.fallen...)
	return out
}

// Submerged returns the submerged entities in position order.
func (s *Store) Submerged() []*Entity { return sortedByPosition(s.submerged) }

// Phased returns the phased-out entities in position order.
func (s *Store) Phased() []*Entity { return sortedByPosition(s.phased) }

// Fallen returns the dead entities in the order they died.
func (s *Store) Fallen() []*Entity { return s.fallen }

// ActivePlayer returns the player under direct control. It may be dead or
// phased out; rules check that separately.
func (s *Store) ActivePlayer() (*Entity, bool) {
	for _, e := range s.All() {
		if e.IsPlayer() && e.Player.Active {
			return e, true
		}
	}
	return nil, false
}

// Person returns the first person-type player that is not a blob.
func (s *Store) Person() (*Entity, bool) {
	for _, e := range s.All() {
		if e.IsPlayer() && !e.Player.IsBlob && e.Player.Element == ElementPerson {
			return e, true
		}
	}
	return nil, false
}

// Get looks an entity up by id wherever it is held.
func (s *Store) Get(id int) (*Entity, bool) {
	e, _ := s.locate(id)
	return e, e != nil
}

// Where reports which part of the store holds id.
func (s *Store) Where(id int) Location {
	_, loc := s.locate(id)
	return loc
}

// InWorld reports whether id is alive in the primary list.
func (s *Store) InWorld(id int) bool {
	return s.Where(id) == LocationWorld
}

// Kill marks an entity dead and moves it to the fallen list.
func (s *Store) Kill(id int) bool {
	e, loc := s.locate(id)
	if e == nil || loc == LocationFallen {
		return false
	}
	s.detach(e, loc)
	e.Dead = true
	if e.Player != nil {
		e.Player.PhasedOut = false
	}
	s.fallen = append(s.fallen, e)
	return true
}

// Remove deletes an entity outright. Rules use it for segments they
// synthesize and later withdraw, such as vines and conjured ice. The id is
// not reused.
func (s *Store) Remove(id int) bool {
	e, loc := s.locate(id)
	switch loc {
	case LocationNone:
		return false
	case LocationFallen:
		for i, f := range s.fallen {
			if f == e {
				s.fallen = append(s.fallen[:i], s.fallen[i+1:]...)
				break
			}
		}
	default:
		s.detach(e, loc)
	}
	return true
}

// Submerge moves a primary-list entity into the submerged map. It fails when
// another entity already rests submerged at that position.
func (s *Store) Submerge(id int) bool {
	e, loc := s.locate(id)
	if loc != LocationWorld {
		return false
	}
	key := e.Position.Key()
	if _, taken := s.submerged[key]; taken {
		return false
	}
	s.removeFromList(e)
	s.submerged[key] = e
	return true
}

// PlaceSubmerged puts a new entity straight into the submerged map.
func (s *Store) PlaceSubmerged(e *Entity) (int, bool) {
	key := e.Position.Key()
	if _, taken := s.submerged[key]; taken {
		return 0, false
	}
	if e.ID <= 0 {
		e.ID = s.nextID
	}
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
	s.submerged[key] = e
	return e.ID, true
}

// Raise moves a submerged entity back into the primary list. It fails when a
// solid entity already occupies the cell.
func (s *Store) Raise(id int) bool {
	e, loc := s.locate(id)
	if loc != LocationSubmerged {
		return false
	}
	if _, blocked := s.SolidAt(e.Position); blocked && e.Solid() {
		return false
	}
	delete(s.submerged, e.Position.Key())
	s.entities = append(s.entities, e)
	return true
}

// PhaseOut moves a primary-list entity into the phased-out map.
func (s *Store) PhaseOut(id int) bool {
	e, loc := s.locate(id)
	if loc != LocationWorld {
		return false
	}
	key := e.Position.Key()
	if _, taken := s.phased[key]; taken {
		return false
	}
	s.removeFromList(e)
	s.phased[key] = e
	if e.Player != nil {
		e.Player.PhasedOut = true
	}
	return true
}

// PhaseIn returns a phased-out entity to the primary list. It fails when a
// solid entity already occupies the cell.
func (s *Store) PhaseIn(id int) bool {
	e, loc := s.locate(id)
	if loc != LocationPhased {
		return false
	}
	if _, blocked := s.SolidAt(e.Position); blocked && e.Solid() {
		return false
	}
	delete(s.phased, e.Position.Key())
	s.entities = append(s.entities, e)
	if e.Player != nil {
		e.Player.PhasedOut = false
	}
	return true
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	out := NewStore()
	out.nextID = s.nextID
	out.entities = make([]*Entity, len(s.entities))
	for i, e := range s.entities {
		out.entities[i] = e.Clone()
	}
	for k, e := range s.submerged {
		out.submerged[k] = e.Clone()
	}
	for k, e := range s.phased {
		out.phased[k] = e.Clone()
	}
	out.fallen = make([]*Entity, len(s.fallen))
	for i, e := range s.fallen {
		out.fallen[i] = e.Clone()
	}
	return out
}

func (s *Store) locate(id int) (*Entity, Location) {
	for _, e := range s.entities {
		if e.ID == id {
			return e, LocationWorld
		}
	}
	for _, e := range s.submerged {
		if e.ID == id {
			return e, LocationSubmerged
		}
	}
	for _, e := range s.phased {
		if e.ID == id {
			return e, LocationPhased
		}
	}
	for _, e := range s.fallen {
		if e.ID == id {
			return e, LocationFallen
		}
	}
	return nil, LocationNone
}

func (s *Store) detach(e *Entity, loc Location) {
	switch loc {
	case LocationWorld:
		s.removeFromList(e)
	case LocationSubmerged:
		delete(s.submerged, e.Position.Key())
	case LocationPhased:
		delete(s.phased, e.Position.Key())
	case LocationFallen, LocationNone:
	}
}

func (s *Store) removeFromList(e *Entity) {
	for i := len(s.entities) - 1; i >= 0; i-- {
		if s.entities[i] == e {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			return
		}
	}
}

func sortedByPosition(m map[Key]*Entity) []*Entity {
	out := make([]*Entity, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position.Less(out[j].Position) })
	return out
}
