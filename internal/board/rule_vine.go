package board

// ruleVine grows the vines of every inactive vine player along both ends of
// its facing axis and withdraws vines whose owner no longer holds them up.
// A player caught in a growing vine is impaled.
func (b *Board) ruleVine() {
	changed := false

	owned := make(map[int][]*Entity)
	for _, e := range b.store.Entities() {
		if e.IsDecoType(DecoVine) && e.Deco.Owner != 0 {
			owned[e.Deco.Owner] = append(owned[e.Deco.Owner], e)
		}
	}

	for _, p := range b.store.Players() {
		var want map[Key]Direction
		if b.live(p) && p.IsElement(ElementVine) && !p.Player.Active {
			want = b.vineReach(p)
		}

		for _, seg := range owned[p.ID] {
			if dir, ok := want[seg.Position.Key()]; ok && dir == seg.Deco.Direction {
				continue
			}
			if b.store.Remove(seg.ID) {
				b.emit(EffectVineRetracted, seg.Position, seg.ID)
				changed = true
			}
		}
		delete(owned, p.ID)

		for _, d := range [2]Direction{p.Player.Direction, p.Player.Direction.Reverse()} {
			pos := p.Position
			for range b.gen.VineLength {
				pos = pos.Add(d)
				dir, ok := want[pos.Key()]
				if !ok || dir != d {
					break
				}
				if e, blocked := b.store.SolidAt(pos); blocked {
					if e.IsDecoType(DecoVine) && e.Deco.Owner == p.ID {
						continue
					}
					break
				}
				seg := NewDeco(pos, DecoVine)
				seg.Deco.Owner = p.ID
				seg.Deco.Direction = d
				id, err := b.store.Spawn(seg)
				if err != nil {
					break
				}
				b.emit(EffectVineGrown, pos, id)
				changed = true
			}
		}
	}

	// Vines whose owner is gone entirely.
	for _, segs := range owned {
		for _, seg := range segs {
			if b.store.Remove(seg.ID) {
				b.emit(EffectVineRetracted, seg.Position, seg.ID)
				changed = true
			}
		}
	}

	if changed {
		b.requeue()
	}
}

// vineReach walks both rays of p's axis and returns every cell its vines
// should cover with the ray direction that reaches it. Rays stop at walls
// and at decorations that are not p's own vines. Players on the way are
// impaled.
func (b *Board) vineReach(p *Entity) map[Key]Direction {
	want := make(map[Key]Direction)
	if p.Player.Direction == DirNone {
		return want
	}
	for _, d := range [2]Direction{p.Player.Direction, p.Player.Direction.Reverse()} {
		pos := p.Position
	ray:
		for range b.gen.VineLength {
			pos = pos.Add(d)
			if b.isWall(pos) {
				break
			}
			if e, ok := b.store.SolidAt(pos); ok {
				switch {
				case e.IsDecoType(DecoVine) && e.Deco.Owner == p.ID:
				case e.IsDeco():
					break ray
				case e.IsPlayer():
					b.kill(e, EffectImpale)
				}
			}
			want[pos.Key()] = d
		}
	}
	return want
}
