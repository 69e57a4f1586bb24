package board

// phaseable reports whether a void beam can push e out of the world.
func phaseable(e *Entity) bool {
	switch e.Kind {
	case KindPlayer:
		return true
	case KindDeco:
		return e.Deco.Type != DecoVine
	case KindMine, KindGoal, KindSign:
	}
	return false
}

// ruleVoid casts the beam of every inactive void player. The first thing a
// beam meets is phased out, or stays phased if it already was. Anything left
// phased that no beam touches this pass phases back in once its cell is
// free.
func (b *Board) ruleVoid() {
	changed := false
	held := make(map[int]bool)

	for _, v := range b.inactive(ElementVoid) {
		if !b.live(v) || v.Player.Direction == DirNone {
			continue
		}
		pos := v.Position
		for range b.gen.VoidRange {
			pos = pos.Add(v.Player.Direction)
			if b.isWall(pos) {
				break
			}
			if ph, ok := b.store.PhasedAt(pos); ok {
				held[ph.ID] = true
				break
			}
			e, ok := b.store.SolidAt(pos)
			if !ok {
				continue
			}
			if phaseable(e) && b.store.PhaseOut(e.ID) {
				held[e.ID] = true
				b.emit(EffectPhaseOut, pos, e.ID)
				changed = true
			}
			break
		}
	}

	for _, e := range b.store.Phased() {
		if held[e.ID] {
			continue
		}
		if b.store.PhaseIn(e.ID) {
			b.emit(EffectPhaseIn, e.Position, e.ID)
			changed = true
		}
	}

	if changed {
		b.requeue()
	}
}
