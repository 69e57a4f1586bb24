package board

// ruleWind lets every inactive wind player blow along its facing.
func (b *Board) ruleWind() {
	pushed := false
	for _, w := range b.inactive(ElementWind) {
		if !b.live(w) {
			continue
		}
		if b.gust(w, w.Player.Direction) > 0 {
			pushed = true
		}
	}
	if pushed {
		b.requeue()
	}
}

// windPushable reports whether a gust moves e: any player but a golem, and
// light decorations.
func windPushable(e *Entity) bool {
	switch e.Kind {
	case KindPlayer:
		return !e.IsElement(ElementGolem)
	case KindDeco:
		switch e.Deco.Type {
		case DecoBox, DecoWood:
			return true
		case DecoGeneric, DecoRock, DecoMetal, DecoVine, DecoIce, DecoXray:
			return false
		}
	case KindMine, KindGoal, KindSign:
	}
	return false
}

// gust casts a wind beam from src along dir. The first solid on the beam is
// pushed cell by cell while the way is clear, never further than the beam's
// range from src. A push that ends in open water stops there, and anything
// waiting to sink is left for waterlog. It returns the number of cells
// moved.
func (b *Board) gust(src *Entity, dir Direction) int {
	if dir == DirNone {
		return 0
	}
	reach := b.gen.WindRange
	pos := src.Position
	for i := 1; i <= reach; i++ {
		pos = pos.Add(dir)
		if b.isWall(pos) {
			return 0
		}
		e, ok := b.store.SolidAt(pos)
		if !ok {
			continue
		}
		if !windPushable(e) || (sinks(e) && b.openWater(e.Position)) {
			return 0
		}
		moved := b.blow(e, dir, reach-i)
		if moved > 0 {
			b.emit(EffectGust, e.Position, e.ID)
		}
		return moved
	}
	return 0
}

func (b *Board) blow(e *Entity, dir Direction, steps int) int {
	moved := 0
	for range steps {
		next := e.Position.Add(dir)
		if b.isWall(next) || !b.climbable(e.Position, next) {
			break
		}
		if _, blocked := b.store.SolidAt(next); blocked {
			break
		}
		b.shift(e, dir)
		moved++
		if b.openWater(e.Position) {
			break
		}
	}
	return moved
}
