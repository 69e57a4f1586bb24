package board

// Helpers shared by the rule procedures. Every rule reads and writes the
// live store in place; lists are collected before they are mutated.

func (b *Board) isWall(pos Position) bool {
	return b.grid.HeightAt(pos) >= HeightWall
}

// openWater reports whether pos is water with nothing resting in it.
func (b *Board) openWater(pos Position) bool {
	if b.grid.HeightAt(pos) != HeightWater {
		return false
	}
	_, filled := b.store.SubmergedAt(pos)
	return !filled
}

// standHeight is the effective height of an entity standing in the world
// at pos. Anything standing over water stands at ground height.
func (b *Board) standHeight(pos Position) int {
	return max(b.grid.HeightAt(pos), HeightGround)
}

// climbable reports whether something standing at from may enter to.
func (b *Board) climbable(from, to Position) bool {
	return b.grid.HeightAt(to) <= b.standHeight(from)
}

// live reports whether e is alive in the primary list.
func (b *Board) live(e *Entity) bool {
	return e != nil && !e.Dead && b.store.InWorld(e.ID)
}

// controllable returns the active player when it can act this turn.
func (b *Board) controllable() (*Entity, bool) {
	p, ok := b.store.ActivePlayer()
	if !ok || !b.live(p) {
		return nil, false
	}
	return p, true
}

// inactive returns the live, inactive players currently of element el, in
// list order.
func (b *Board) inactive(el Element) []*Entity {
	var out []*Entity
	for _, e := range b.store.Entities() {
		if e.IsElement(el) && !e.Player.Active && !e.Dead {
			out = append(out, e)
		}
	}
	return out
}

// kill destroys e and records the effect.
func (b *Board) kill(e *Entity, effect EffectKind) bool {
	pos := e.Position
	if !b.store.Kill(e.ID) {
		return false
	}
	b.emit(effect, pos, e.ID)
	return true
}

// shift moves an in-world entity one step and stamps it.
func (b *Board) shift(e *Entity, dir Direction) {
	e.Position = e.Position.Add(dir)
	e.setLastMoved(b.moveClock)
}

// sight walks a line of sight from origin and returns the first live player
// on it. Walls and decorations block the view; an xray decoration is
// transparent and lets the view pass through the next decoration behind it.
// The entity with id skip is looked through. With phased set, a phased
// out player on the line is seen as well.
func (b *Board) sight(origin Position, dir Direction, length, skip int, phased bool) (*Entity, bool) {
	pos := origin
	seeThrough := false
	for range length {
		pos = pos.Add(dir)
		if b.grid.HeightAt(pos) > HeightGround {
			return nil, false
		}
		if phased {
			if ph, ok := b.store.PhasedAt(pos); ok && ph.IsPlayer() && !ph.Dead && ph.ID != skip {
				return ph, true
			}
		}
		e, ok := b.store.SolidAt(pos)
		if !ok || e.ID == skip {
			continue
		}
		switch e.Kind {
		case KindPlayer:
			return e, true
		case KindDeco:
			if e.Deco.Type == DecoXray {
				seeThrough = true
				continue
			}
			if seeThrough {
				seeThrough = false
				continue
			}
			return nil, false
		case KindMine, KindGoal, KindSign:
		}
	}
	return nil, false
}
