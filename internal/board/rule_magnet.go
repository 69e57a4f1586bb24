package board

import "sort"

// ruleMagnet maintains magnet chains. The follow pass drags every attached
// decoration into the cell its anchor just left, or breaks the link when it
// cannot; the attach pass links loose metal to an adjacent magnet that has
// no follower yet. Both passes repeat until nothing changes.
func (b *Board) ruleMagnet() {
	changed := false

	for _, e := range b.store.All() {
		if e.IsDeco() && e.Deco.Attachment != nil && !b.live(e) {
			b.sever(e)
			changed = true
		}
	}

	for moved := true; moved; {
		moved = false
		for _, d := range b.attached() {
			a := d.Deco.Attachment
			if a == nil {
				// severed earlier in this sweep
				continue
			}
			anchor, ok := b.store.Get(a.TargetID)
			if !ok || !b.magnetic(anchor) {
				b.sever(d)
				changed = true
				continue
			}
			if anchor.Position.Adjacent(d.Position) {
				a.LastKnown = anchor.Position
				continue
			}
			if b.canTrail(d, anchor) {
				d.Position = a.LastKnown
				d.setLastMoved(b.moveClock)
				a.LastKnown = anchor.Position
				moved = true
				changed = true
				continue
			}
			b.sever(d)
			changed = true
		}
	}

	for linked := true; linked; {
		linked = false
		for _, d := range b.loose() {
			anchor, ok := b.pickAnchor(d)
			if !ok {
				continue
			}
			d.Deco.Attachment = &Attachment{TargetID: anchor.ID, LastKnown: anchor.Position}
			b.emit(EffectAttach, d.Position, d.ID)
			linked = true
			changed = true
		}
	}

	if changed {
		b.requeue()
	}
}

// magnetic reports whether e can hold a follower: a live magnet player or a
// live decoration that is itself attached.
func (b *Board) magnetic(e *Entity) bool {
	if !b.live(e) {
		return false
	}
	switch e.Kind {
	case KindPlayer:
		return e.Player.Element == ElementMagnet
	case KindDeco:
		return e.Deco.Attachment != nil
	case KindMine, KindGoal, KindSign:
	}
	return false
}

// canTrail reports whether d may step into its anchor's last known cell.
// The anchor must have moved exactly one cell from there.
func (b *Board) canTrail(d, anchor *Entity) bool {
	last := d.Deco.Attachment.LastKnown
	if !last.Adjacent(d.Position) || !anchor.Position.Adjacent(last) {
		return false
	}
	if b.isWall(last) || !b.climbable(d.Position, last) {
		return false
	}
	_, blocked := b.store.SolidAt(last)
	return !blocked
}

// sever breaks d's link and every link that hangs off d.
func (b *Board) sever(d *Entity) {
	pending := []*Entity{d}
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]
		if cur.Deco == nil || cur.Deco.Attachment == nil {
			continue
		}
		cur.Deco.Attachment = nil
		b.emit(EffectDetach, cur.Position, cur.ID)
		pending = append(pending, b.followers(cur.ID)...)
	}
}

// followers returns the decorations linked to id, wherever they are held.
func (b *Board) followers(id int) []*Entity {
	var out []*Entity
	for _, e := range b.store.All() {
		if e.IsDeco() && e.Deco.Attachment != nil && e.Deco.Attachment.TargetID == id {
			out = append(out, e)
		}
	}
	return out
}

// attached returns the linked decorations in the world, by position.
func (b *Board) attached() []*Entity {
	var out []*Entity
	for _, e := range b.store.Entities() {
		if e.IsDeco() && e.Deco.Attachment != nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position.Less(out[j].Position) })
	return out
}

// loose returns the unlinked magnetizable decorations in the world, by
// position.
func (b *Board) loose() []*Entity {
	var out []*Entity
	for _, e := range b.store.Entities() {
		if e.IsDeco() && e.Deco.Type.Magnetizable() && e.Deco.Attachment == nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position.Less(out[j].Position) })
	return out
}

// pickAnchor chooses the magnet d links to: of the orthogonal neighbours
// that are magnetic and free, the one that moved most recently, ties going
// to the first in clockwise order from up.
func (b *Board) pickAnchor(d *Entity) (*Entity, bool) {
	var best *Entity
	for _, dir := range Directions {
		n, ok := b.store.SolidAt(d.Position.Add(dir))
		if !ok || !b.magnetic(n) || len(b.followers(n.ID)) > 0 {
			continue
		}
		if best == nil || n.lastMoved() > best.lastMoved() {
			best = n
		}
	}
	return best, best != nil
}
