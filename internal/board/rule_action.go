package board

// ruleAction performs the active player's element ability.
func (b *Board) ruleAction() {
	if b.sched.Control() != IntentAction {
		return
	}
	p, ok := b.controllable()
	if !ok {
		return
	}

	switch p.Player.Element {
	case ElementFire:
		if b.discharge(p) {
			b.requeue()
		}
	case ElementWind, ElementButter:
		if b.gust(p, p.Player.Direction) > 0 {
			b.requeue()
		}
	case ElementPerson:
		b.switchFrom(p)
	case ElementIce, ElementVine, ElementGolem, ElementWater, ElementMagnet, ElementVoid, ElementBlob:
	}
}
