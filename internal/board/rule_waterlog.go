package board

// ruleWaterlog sinks whatever stands over open water. Decorations come to
// rest in the submerged map and fill the cell; players drown. Vines and
// water players float.
func (b *Board) ruleWaterlog() {
	var sinking []*Entity
	for _, e := range b.store.Entities() {
		if !sinks(e) {
			continue
		}
		if b.openWater(e.Position) {
			sinking = append(sinking, e)
		}
	}

	changed := false
	for _, e := range sinking {
		// An earlier entity in this pass may have filled the cell.
		if !b.openWater(e.Position) {
			continue
		}
		if e.IsPlayer() {
			if b.kill(e, EffectDrown) {
				changed = true
			}
			continue
		}
		e.Deco.Waterlogged = true
		if b.store.Submerge(e.ID) {
			b.emit(EffectSplash, e.Position, e.ID)
			changed = true
		} else {
			e.Deco.Waterlogged = false
		}
	}
	if changed {
		b.requeue()
	}
}

// sinks reports whether open water takes e.
func sinks(e *Entity) bool {
	switch e.Kind {
	case KindPlayer:
		return !e.IsElement(ElementWater)
	case KindDeco:
		return e.Deco.Type != DecoVine
	case KindMine, KindGoal, KindSign:
	}
	return false
}
