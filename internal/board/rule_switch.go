package board

import "go.uber.org/zap"

// ruleSwitch hands control to another player.
func (b *Board) ruleSwitch() {
	if b.sched.Control() != IntentSwitch {
		return
	}
	p, ok := b.store.ActivePlayer()
	if !ok {
		return
	}
	b.switchFrom(p)
}

// switchFrom resolves the next controllable player. The person picks the
// first live player in its line of sight; everyone else hands control back
// to the person, even a dead or phased one.
func (b *Board) switchFrom(p *Entity) {
	if p.IsElement(ElementPerson) && !p.Player.IsBlob {
		if !b.live(p) {
			return
		}
		target, ok := b.sight(p.Position, p.Player.Direction, b.gen.SightRange, p.ID, false)
		if !ok {
			return
		}
		b.transfer(p, target)
		return
	}

	person, ok := b.store.Person()
	if !ok || person.ID == p.ID {
		return
	}
	b.transfer(p, person)
}

func (b *Board) transfer(from, to *Entity) {
	from.Player.Active = false
	to.Player.Active = true
	to.Player.LastActiveTurn = b.moveClock
	b.emit(EffectSwitch, to.Position, to.ID)
	b.logger.Debug("control switched", zap.Int("from", from.ID), zap.Int("to", to.ID))
	b.requeue()
}
