package board

// neighbours are the eight cells around a tile, clockwise from the east.
var neighbours = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// ruleFire makes every inactive fire player discharge.
func (b *Board) ruleFire() {
	destroyed := false
	for _, f := range b.inactive(ElementFire) {
		if !b.live(f) {
			continue
		}
		if b.discharge(f) {
			destroyed = true
		}
	}
	if destroyed {
		b.requeue()
	}
}

// discharge burns the eight cells around f that sit at f's own tile height.
// Flammable decorations and every player but a golem are destroyed. It
// reports whether anything was.
func (b *Board) discharge(f *Entity) bool {
	level := b.grid.HeightAt(f.Position)
	destroyed := false
	for _, d := range neighbours {
		pos := f.Position.Offset(d[0], d[1])
		if b.grid.HeightAt(pos) != level {
			continue
		}
		b.emit(EffectFire, pos, f.ID)

		var victims []*Entity
		for e := range b.store.EntitiesAt(pos) {
			switch {
			case e.IsPlayer() && !e.IsElement(ElementGolem):
				victims = append(victims, e)
			case e.IsDeco() && e.Deco.Type.Flammable():
				victims = append(victims, e)
			}
		}
		for _, v := range victims {
			if b.kill(v, EffectBurn) {
				destroyed = true
			}
		}
	}
	return destroyed
}
