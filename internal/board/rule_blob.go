package board

// ruleBlob lets every blob mimic the player it is looking at. A blob looks
// along its own facing, which survives mimicry, and reverts to a plain blob
// when it sees nobody it can copy. A player it phased out while mimicking
// void stays in sight, so the blob keeps holding it.
func (b *Board) ruleBlob() {
	changed := false
	for _, e := range b.store.Entities() {
		if !e.IsPlayer() || !e.Player.IsBlob || e.Dead {
			continue
		}
		p := e.Player

		element, facing := ElementBlob, p.BlobDirection
		if seen, ok := b.sight(e.Position, p.BlobDirection, b.gen.SightRange, e.ID, true); ok && !seen.IsElement(ElementPerson) {
			element, facing = seen.Player.Element, seen.Player.Direction
		}
		if element == p.Element && facing == p.Direction {
			continue
		}

		from := p.Element
		p.Element = element
		p.Direction = facing
		if element != from {
			b.effects = append(b.effects, Effect{Kind: EffectTransform, Position: e.Position, EntityID: e.ID, From: &from})
		}
		changed = true
	}
	if changed {
		b.requeue()
	}
}
