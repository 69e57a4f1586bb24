package board

// ruleMine detonates every mine that shares its cell with a player or a
// decoration other than a vine. Both are destroyed.
func (b *Board) ruleMine() {
	type blast struct{ mine, trigger *Entity }
	var blasts []blast
	for _, m := range b.store.ByKind(KindMine) {
		e, ok := b.store.SolidAt(m.Position)
		if !ok || e.IsDecoType(DecoVine) {
			continue
		}
		blasts = append(blasts, blast{mine: m, trigger: e})
	}

	changed := false
	for _, bl := range blasts {
		if !b.store.Kill(bl.mine.ID) {
			continue
		}
		b.emit(EffectExplosion, bl.mine.Position, bl.mine.ID)
		b.kill(bl.trigger, EffectExplosion)
		changed = true
	}
	if changed {
		b.requeue()
	}
}
