package board

// ruleIce keeps a 3×3 sheet of submerged ice under every ice player. Ice
// belongs to the player that conjured it: it melts when it falls outside the
// owner's block or when the owner stops being a live ice player.
func (b *Board) ruleIce() {
	changed := false

	var melted []*Entity
	for _, d := range b.store.All() {
		if !d.IsDecoType(DecoIce) || d.Dead || d.Deco.Owner == 0 {
			continue
		}
		owner, ok := b.store.Get(d.Deco.Owner)
		if !ok || !b.live(owner) || !owner.IsElement(ElementIce) || owner.Position.Chebyshev(d.Position) > 1 {
			melted = append(melted, d)
		}
	}
	for _, d := range melted {
		if b.store.Remove(d.ID) {
			b.emit(EffectIceMelted, d.Position, d.ID)
			changed = true
		}
	}

	for _, p := range b.store.Entities() {
		if !p.IsElement(ElementIce) || p.Dead {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				pos := p.Position.Offset(dx, dy)
				if _, taken := b.store.SubmergedAt(pos); taken {
					continue
				}
				ice := NewDeco(pos, DecoIce)
				ice.Deco.Owner = p.ID
				if id, ok := b.store.PlaceSubmerged(ice); ok {
					b.emit(EffectIceFormed, pos, id)
					changed = true
				}
			}
		}
	}

	if changed {
		b.requeue()
	}
}
