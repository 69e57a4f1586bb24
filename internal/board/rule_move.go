package board

import "go.uber.org/zap"

// ruleMove walks the active player one cell in the intent direction, pushing
// a chain of blockers when the mover is strong enough. Water and wind
// players cross open water; wind and butter glide over it until they reach
// a landing cell.
func (b *Board) ruleMove() {
	dir, ok := b.sched.Control().Direction()
	if !ok {
		return
	}
	p, ok := b.controllable()
	if !ok {
		return
	}

	dest, ok := b.moveDestination(p, dir)
	if !ok {
		return
	}
	if b.headwind(p, dir) {
		b.logger.Debug("move blocked by headwind", zap.Int("entity_id", p.ID), zap.Stringer("direction", dir))
		return
	}

	var chain []*Entity
	if blocker, blocked := b.store.SolidAt(dest); blocked {
		if dest != p.Position.Add(dir) {
			return
		}
		chain, ok = b.pushChain(p, blocker, dir)
		if !ok {
			return
		}
	}

	b.moveClock++
	for i := len(chain) - 1; i >= 0; i-- {
		b.shift(chain[i], dir)
	}
	p.Position = dest
	p.Player.Direction = dir
	if p.Player.IsBlob {
		p.Player.BlobDirection = dir
	}
	p.setLastMoved(b.moveClock)
	b.requeue()
}

// moveDestination resolves the terrain part of a move: where the mover ends
// up, or false when the terrain forbids it.
func (b *Board) moveDestination(p *Entity, dir Direction) (Position, bool) {
	from := p.Position
	to := from.Add(dir)
	if !b.climbable(from, to) {
		return Position{}, false
	}
	if !b.openWater(to) {
		return to, true
	}

	switch p.Player.Element {
	case ElementWater:
		return to, true
	case ElementWind, ElementButter:
		for range b.gen.GlideRange {
			if _, blocked := b.store.SolidAt(to); blocked {
				return Position{}, false
			}
			next := to.Add(dir)
			if !b.climbable(to, next) {
				return Position{}, false
			}
			to = next
			if !b.openWater(to) {
				if _, blocked := b.store.SolidAt(to); blocked {
					return Position{}, false
				}
				return to, true
			}
		}
		return Position{}, false
	case ElementPerson, ElementFire, ElementIce, ElementVine, ElementGolem,
		ElementMagnet, ElementVoid, ElementBlob:
		return Position{}, false
	default:
		return Position{}, false
	}
}

// headwind reports whether an inactive wind player blows straight at the
// mover against its direction of travel. Golems are too heavy to stop.
func (b *Board) headwind(p *Entity, dir Direction) bool {
	if p.IsElement(ElementGolem) {
		return false
	}
	against := dir.Reverse()
	for _, w := range b.inactive(ElementWind) {
		if w.Player.Direction != against {
			continue
		}
		pos := w.Position
		for range b.gen.WindRange {
			pos = pos.Add(against)
			if b.isWall(pos) {
				break
			}
			if e, ok := b.store.SolidAt(pos); ok {
				if e.ID == p.ID {
					return true
				}
				break
			}
		}
	}
	return false
}

// pushable reports whether mover may shove e. Boxes yield to anyone; rock,
// metal, xray and other players only to a golem.
func pushable(mover, e *Entity) bool {
	golem := mover.IsElement(ElementGolem)
	switch e.Kind {
	case KindPlayer:
		return golem
	case KindDeco:
		switch e.Deco.Type {
		case DecoBox:
			return true
		case DecoRock, DecoMetal, DecoXray:
			return golem
		case DecoGeneric, DecoWood, DecoVine, DecoIce:
			return false
		}
	case KindMine, KindGoal, KindSign:
	}
	return false
}

// pushChain collects the line of solids starting at first that would move
// one step along dir, or false if any link cannot move.
func (b *Board) pushChain(mover, first *Entity, dir Direction) ([]*Entity, bool) {
	var chain []*Entity
	for cur := first; ; {
		if !pushable(mover, cur) {
			return nil, false
		}
		chain = append(chain, cur)
		next := cur.Position.Add(dir)
		if !b.climbable(cur.Position, next) {
			return nil, false
		}
		blocker, blocked := b.store.SolidAt(next)
		if !blocked {
			return chain, true
		}
		cur = blocker
	}
}
