package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMoveBlockedByWater(t *testing.T) {
	s := newScene(t, []string{"P~."})

	s.submit(IntentRight)

	assert.Equal(t, Pos(0, 0), s.pos('P'))
	assert.Equal(t, OutcomePlaying, s.board.Outcome())
	assert.Equal(t, 0, s.board.MoveClock())
}

func TestMoveOnGround(t *testing.T) {
	s := newScene(t, []string{"P.."}, facing('P', DirLeft))

	s.submit(IntentRight)

	p := s.get('P')
	assert.Equal(t, Pos(1, 0), p.Position)
	assert.Equal(t, DirRight, p.Player.Direction)
	assert.Equal(t, 1, p.Player.LastMoved)
	assert.Equal(t, 1, s.board.MoveClock())
}

func TestMoveRejectedKeepsFacing(t *testing.T) {
	s := newScene(t, []string{"P#"}, facing('P', DirDown))

	s.submit(IntentRight)

	p := s.get('P')
	assert.Equal(t, Pos(0, 0), p.Position)
	assert.Equal(t, DirDown, p.Player.Direction)
}

func TestMoveCannotClimbWall(t *testing.T) {
	s := newScene(t, []string{"P.."}, height(1, 0, 3))

	s.submit(IntentRight)

	assert.Equal(t, Pos(0, 0), s.pos('P'))
}

func TestGolemPushesRock(t *testing.T) {
	s := newScene(t, []string{"Gr."}, active('G'))

	s.submit(IntentRight)

	assert.Equal(t, Pos(1, 0), s.pos('G'))
	assert.Equal(t, Pos(2, 0), s.pos('r'))
	assert.Equal(t, 1, s.get('r').Deco.LastMoved)
}

func TestPushRules(t *testing.T) {
	tests := []struct {
		name    string
		rows    []string
		mover   rune
		want    Position
		blocker rune
		pushed  Position
	}{
		{name: "person pushes box", rows: []string{"Px."}, mover: 'P', want: Pos(1, 0), blocker: 'x', pushed: Pos(2, 0)},
		{name: "person cannot push rock", rows: []string{"Pr."}, mover: 'P', want: Pos(0, 0), blocker: 'r', pushed: Pos(1, 0)},
		{name: "person cannot push metal", rows: []string{"Pm."}, mover: 'P', want: Pos(0, 0), blocker: 'm', pushed: Pos(1, 0)},
		{name: "golem pushes metal", rows: []string{"Gm."}, mover: 'G', want: Pos(1, 0), blocker: 'm', pushed: Pos(2, 0)},
		{name: "golem pushes xray", rows: []string{"Gy."}, mover: 'G', want: Pos(1, 0), blocker: 'y', pushed: Pos(2, 0)},
		{name: "golem cannot push wood", rows: []string{"Gw."}, mover: 'G', want: Pos(0, 0), blocker: 'w', pushed: Pos(1, 0)},
		{name: "golem cannot push generic", rows: []string{"Gg."}, mover: 'G', want: Pos(0, 0), blocker: 'g', pushed: Pos(1, 0)},
		{name: "golem pushes a player", rows: []string{"GP."}, mover: 'G', want: Pos(1, 0), blocker: 'P', pushed: Pos(2, 0)},
		{name: "push into wall fails", rows: []string{"Gr#"}, mover: 'G', want: Pos(0, 0), blocker: 'r', pushed: Pos(1, 0)},
		{name: "push up a cliff fails", rows: []string{"Gr.", "..."}, mover: 'G', want: Pos(0, 0), blocker: 'r', pushed: Pos(1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []sceneOption{active(tt.mover)}
			if tt.name == "push up a cliff fails" {
				opts = append(opts, height(2, 0, 2))
			}
			s := newScene(t, tt.rows, opts...)

			s.submit(IntentRight)

			assert.Equal(t, tt.want, s.pos(tt.mover))
			assert.Equal(t, tt.pushed, s.pos(tt.blocker))
		})
	}
}

func TestGolemPushesChain(t *testing.T) {
	s := newScene(t, []string{"Gxr.."}, active('G'))

	s.submit(IntentRight)

	assert.Equal(t, Pos(1, 0), s.pos('G'))
	assert.Equal(t, Pos(2, 0), s.pos('x'))
	assert.Equal(t, Pos(3, 0), s.pos('r'))
}

func TestChainBlockedByUnpushable(t *testing.T) {
	s := newScene(t, []string{"Gxw."}, active('G'))

	s.submit(IntentRight)

	assert.Equal(t, Pos(0, 0), s.pos('G'))
	assert.Equal(t, Pos(1, 0), s.pos('x'))
}

func TestPushedBoxSinksAndBecomesFloor(t *testing.T) {
	s := newScene(t, []string{"Px~."})

	s.submit(IntentRight)

	box := s.get('x')
	assert.Equal(t, Pos(2, 0), box.Position)
	assert.Equal(t, LocationSubmerged, box.Location)
	assert.True(t, box.Deco.Waterlogged)
	assert.True(t, s.hasEffect(EffectSplash))

	s.submit(IntentRight, IntentRight)

	assert.Equal(t, Pos(3, 0), s.pos('P'))
	assert.Equal(t, OutcomePlaying, s.board.Outcome())
}

func TestWaterPlayerSwims(t *testing.T) {
	s := newScene(t, []string{"A~~."}, active('A'))

	s.submit(IntentRight)

	a := s.get('A')
	assert.Equal(t, Pos(1, 0), a.Position)
	assert.Equal(t, LocationWorld, a.Location)
	assert.False(t, a.Dead)
}

func TestWindGlidesAcrossWater(t *testing.T) {
	for _, r := range []rune{'W', 'U'} {
		t.Run(string(r), func(t *testing.T) {
			s := newScene(t, []string{string(r) + "~~.."}, active(r))

			s.submit(IntentRight)

			assert.Equal(t, Pos(3, 0), s.pos(r))
			assert.False(t, s.get(r).Dead)
		})
	}
}

func TestGlideNeedsLandingInRange(t *testing.T) {
	s := newScene(t, []string{"W~~~."}, active('W'), tune(func(g *Generation) { g.GlideRange = 2 }))

	s.submit(IntentRight)

	assert.Equal(t, Pos(0, 0), s.pos('W'))
}

func TestGlideBlockedAtLanding(t *testing.T) {
	s := newScene(t, []string{"W~~r."}, active('W'))

	s.submit(IntentRight)

	assert.Equal(t, Pos(0, 0), s.pos('W'))
}

func TestHeadwindStopsMove(t *testing.T) {
	s := newScene(t, []string{"#P..W"}, facing('W', DirLeft))

	s.submit(IntentRight)

	assert.Equal(t, Pos(1, 0), s.pos('P'))
	assert.False(t, s.get('P').Dead)
}

func TestGolemWalksIntoHeadwind(t *testing.T) {
	s := newScene(t, []string{"#G..W"}, active('G'), facing('W', DirLeft))

	s.submit(IntentRight)

	assert.Equal(t, Pos(2, 0), s.pos('G'))
}

func TestFireKillsWood(t *testing.T) {
	s := newScene(t, []string{"Fw."}, active('F'))

	s.submit(IntentAction)

	assert.Equal(t, Pos(0, 0), s.pos('F'))
	wood := s.get('w')
	assert.True(t, wood.Dead)
	assert.Equal(t, LocationFallen, wood.Location)
	assert.True(t, s.hasEffect(EffectBurn))
}

func TestFireSparesGolemAndStone(t *testing.T) {
	s := newScene(t, []string{
		"FG",
		"rP",
	}, active('F'))

	s.submit(IntentAction)

	assert.False(t, s.get('G').Dead)
	assert.False(t, s.get('r').Dead)
	assert.True(t, s.get('P').Dead)
}

func TestFireIgnoresOtherHeights(t *testing.T) {
	s := newScene(t, []string{"Fw"}, active('F'), height(1, 0, 0))

	// The wood stands over water but the lookup happens before it sinks.
	s.submit(IntentAction)

	wood := s.get('w')
	assert.False(t, wood.Dead)
	assert.Equal(t, LocationSubmerged, wood.Location)
}

func TestInactiveFireBurnsEveryPass(t *testing.T) {
	s := newScene(t, []string{"Px.F"})

	s.submit(IntentRight)

	// The box was pushed next to the fire but is not flammable; the person
	// now stands two cells away.
	assert.Equal(t, Pos(1, 0), s.pos('P'))
	assert.False(t, s.get('x').Dead)

	s2 := newScene(t, []string{"P.wF"})
	s2.submit(IntentAction)
	assert.True(t, s2.get('w').Dead)
}

func TestSwitchLineOfSight(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		target bool
	}{
		{name: "clear", row: "P..G", target: true},
		{name: "wall", row: "P.#G", target: false},
		{name: "deco blocks", row: "P.rG", target: false},
		{name: "xray is transparent", row: "PyG", target: true},
		{name: "xray sees through one", row: "PyrG", target: true},
		{name: "xray sees through only one", row: "PyrrG", target: false},
		{name: "mine does not block", row: "P*G", target: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t, []string{tt.row})

			s.submit(IntentSwitch)

			assert.Equal(t, tt.target, s.get('G').Player.Active)
			assert.Equal(t, !tt.target, s.get('P').Player.Active)
		})
	}
}

func TestSwitchBackToPerson(t *testing.T) {
	s := newScene(t, []string{"P.G."})

	s.submit(IntentSwitch)
	require.True(t, s.get('G').Player.Active)
	assert.Equal(t, 0, s.get('G').Player.LastActiveTurn)

	s.submit(IntentRight, IntentSwitch)

	assert.True(t, s.get('P').Player.Active)
	assert.False(t, s.get('G').Player.Active)
	assert.Equal(t, 1, s.get('P').Player.LastActiveTurn)
}

func TestPersonActionSwitches(t *testing.T) {
	s := newScene(t, []string{"P..G"})

	s.submit(IntentAction)

	assert.True(t, s.get('G').Player.Active)
}

func TestSwitchFromDeadPlayer(t *testing.T) {
	s := newScene(t, []string{"P.G*"})

	s.submit(IntentSwitch)
	require.True(t, s.get('G').Player.Active)

	// The golem walks onto the mine and dies; control returns to the person.
	s.submit(IntentRight)
	require.True(t, s.get('G').Dead)
	assert.Equal(t, OutcomeLost, s.board.Outcome())

	s.submit(IntentSwitch)
	assert.True(t, s.get('P').Player.Active)
	assert.Equal(t, OutcomePlaying, s.board.Outcome())
}

func TestWindPushesBox(t *testing.T) {
	s := newScene(t, []string{
		"W.x...#",
		"P......",
	}, tune(func(g *Generation) { g.WindRange = 5 }))

	s.submit(IntentAction)

	// The box travels until it is five cells from the wind.
	assert.Equal(t, Pos(5, 0), s.pos('x'))
	assert.True(t, s.hasEffect(EffectGust))
}

func TestWindStopsAtObstacle(t *testing.T) {
	s := newScene(t, []string{
		"W.x.r.",
		"P.....",
	})

	s.submit(IntentAction)

	assert.Equal(t, Pos(3, 0), s.pos('x'))
	assert.Equal(t, Pos(4, 0), s.pos('r'))
}

func TestWindBlockedByHeavyDeco(t *testing.T) {
	s := newScene(t, []string{
		"W.rx..",
		"P.....",
	})

	s.submit(IntentAction)

	assert.Equal(t, Pos(3, 0), s.pos('x'))
}

func TestWindBlowsIntoWater(t *testing.T) {
	s := newScene(t, []string{
		"W.x~~.",
		"P.....",
	})

	s.submit(IntentAction)

	box := s.get('x')
	assert.Equal(t, Pos(3, 0), box.Position)
	assert.Equal(t, LocationSubmerged, box.Location)
}

func TestActiveWindGust(t *testing.T) {
	s := newScene(t, []string{"W.x..#"}, active('W'))

	s.submit(IntentAction)

	assert.Equal(t, Pos(4, 0), s.pos('x'))
	assert.Equal(t, Pos(0, 0), s.pos('W'))
}

func TestOpposedWindsHitCascadeLimit(t *testing.T) {
	s := newScene(t, []string{
		"W.x..W",
		"P.....",
	}, facing('W', DirRight), tune(func(g *Generation) { g.MaxRuleExecutions = 500 }))
	// the second wind faces back
	back, ok := s.board.store.Get(s.nth('W', 1))
	require.True(t, ok)
	back.Player.Direction = DirLeft

	err := s.board.SubmitIntent(IntentRight)

	require.ErrorIs(t, err, ErrCascadeLimit)
	assert.False(t, s.board.Pending())

	// The board accepts input again afterwards.
	assert.NotPanics(t, func() { _ = s.board.SubmitIntent(IntentLeft) })
}

func TestIceRegrowsAroundInactiveIcePlayer(t *testing.T) {
	s := newScene(t, []string{
		"P.~~~",
		"..~I~",
		"..~~~",
	})

	s.submit(IntentDown)

	ice := s.owned('I', DecoIce)
	require.Len(t, ice, 9)
	for _, d := range ice {
		assert.Equal(t, LocationSubmerged, d.Location)
		assert.LessOrEqual(t, d.Position.Chebyshev(Pos(3, 1)), 1)
	}
	assert.True(t, s.hasEffect(EffectIceFormed))
}

func TestIceFollowsItsOwner(t *testing.T) {
	s := newScene(t, []string{"GI..."}, active('G'))

	s.submit(IntentRight)
	require.Equal(t, Pos(2, 0), s.pos('I'))
	require.Len(t, s.owned('I', DecoIce), 9)

	s.submit(IntentRight)
	require.Equal(t, Pos(3, 0), s.pos('I'))

	ice := s.owned('I', DecoIce)
	require.Len(t, ice, 9)
	for _, d := range ice {
		assert.NotEqual(t, 1, d.Position.X)
	}
	assert.True(t, s.hasEffect(EffectIceMelted))
}

func TestIceMeltsWhenOwnerDies(t *testing.T) {
	s := newScene(t, []string{"I.F"}, active('F'))

	s.submit(IntentLeft)
	require.Len(t, s.owned('I', DecoIce), 9)

	s.submit(IntentAction)

	assert.True(t, s.get('I').Dead)
	assert.Empty(t, s.owned('I', DecoIce))
	assert.True(t, s.hasEffect(EffectIceMelted))
}

func TestIceBridgeCarriesPlayer(t *testing.T) {
	s := newScene(t, []string{
		"P~.",
		".I.",
	}, facing('P', DirDown))

	s.submit(IntentRight)

	// the first intent grows the ice; the person waits
	require.Equal(t, Pos(0, 0), s.pos('P'))

	s.submit(IntentRight)

	p := s.get('P')
	assert.Equal(t, Pos(1, 0), p.Position)
	assert.False(t, p.Dead)
}

func TestVineGrowsBothWays(t *testing.T) {
	s := newScene(t, []string{
		"..V..#",
		"..P...",
	}, facing('P', DirUp), tune(func(g *Generation) { g.VineLength = 3 }))

	// Walking into the vine is refused, but the reactive sweep still runs.
	s.submit(IntentUp)

	vines := s.owned('V', DecoVine)
	require.Len(t, vines, 5)
	cells := map[Position]Direction{}
	for _, v := range vines {
		cells[v.Position] = v.Deco.Direction
	}
	assert.Equal(t, map[Position]Direction{
		Pos(3, 0): DirRight, Pos(4, 0): DirRight,
		Pos(1, 0): DirLeft, Pos(0, 0): DirLeft, Pos(-1, 0): DirLeft,
	}, cells)
	assert.True(t, s.hasEffect(EffectVineGrown))
}

func TestVineRetractsWhenControlled(t *testing.T) {
	s := newScene(t, []string{
		"..V..#",
		"..P...",
	}, facing('P', DirUp), tune(func(g *Generation) { g.VineLength = 3 }))

	s.submit(IntentUp)
	require.Len(t, s.owned('V', DecoVine), 5)

	s.submit(IntentSwitch)
	require.True(t, s.get('V').Player.Active)
	assert.Empty(t, s.owned('V', DecoVine))
	assert.True(t, s.hasEffect(EffectVineRetracted))

	s.submit(IntentSwitch)
	require.True(t, s.get('P').Player.Active)
	assert.Len(t, s.owned('V', DecoVine), 5)
}

func TestVineImpalesPlayers(t *testing.T) {
	s := newScene(t, []string{
		"..V.G#",
		"..P...",
	}, facing('P', DirUp), tune(func(g *Generation) { g.VineLength = 3 }))

	s.submit(IntentUp)

	assert.True(t, s.get('G').Dead)
	assert.True(t, s.hasEffect(EffectImpale))
	assert.Len(t, s.owned('V', DecoVine), 5)
}

func TestVineStopsAtDeco(t *testing.T) {
	s := newScene(t, []string{
		"#r.V.x.",
		"...P...",
	}, facing('P', DirUp))

	s.submit(IntentUp)

	vines := s.owned('V', DecoVine)
	require.Len(t, vines, 2)
}

func TestWaterlogDrownsPlayer(t *testing.T) {
	s := newScene(t, []string{
		"W.P~",
		".....",
	}, facing('W', DirRight), active('U'))

	// Nobody is active; any intent runs the reactive sweep.
	s.submit(IntentAction)

	p := s.get('P')
	assert.True(t, p.Dead)
	assert.Equal(t, Pos(3, 0), p.Position)
	assert.True(t, s.hasEffect(EffectDrown))

	// One gust carried it to the shore; the next sweep left it to sink.
	gusts := 0
	for _, e := range s.board.Effects() {
		if e.Kind == EffectGust {
			gusts++
		}
	}
	assert.Equal(t, 1, gusts)
}

func TestMineDestroysBoth(t *testing.T) {
	s := newScene(t, []string{"Px*."})

	s.submit(IntentRight)

	assert.True(t, s.get('x').Dead)
	assert.True(t, s.get('*').Dead)
	assert.True(t, s.hasEffect(EffectExplosion))
	assert.Equal(t, Pos(1, 0), s.pos('P'))
	assert.False(t, s.get('P').Dead)
}

func TestMineKillsActivePlayer(t *testing.T) {
	s := newScene(t, []string{"P*"})

	s.submit(IntentRight)

	assert.True(t, s.get('P').Dead)
	assert.Equal(t, OutcomeLost, s.board.Outcome())

	// A dead player cannot act.
	s.submit(IntentLeft)
	assert.Equal(t, Pos(1, 0), s.pos('P'))
}

func TestVoidPhasesFirstThingHit(t *testing.T) {
	s := newScene(t, []string{
		"O.x.",
		".P..",
	}, facing('P', DirDown))

	s.submit(IntentAction)

	box := s.get('x')
	assert.Equal(t, LocationPhased, box.Location)
	assert.True(t, s.hasEffect(EffectPhaseOut))

	// The person steps into the beam: it is phased out and the box returns.
	s.submit(IntentUp)

	p := s.get('P')
	assert.Equal(t, Pos(1, 0), p.Position)
	assert.Equal(t, LocationPhased, p.Location)
	assert.True(t, p.Player.PhasedOut)
	assert.Equal(t, LocationWorld, s.get('x').Location)
	assert.True(t, s.hasEffect(EffectPhaseIn))

	// A phased player cannot move.
	s.submit(IntentDown)
	assert.Equal(t, Pos(1, 0), s.pos('P'))
}

func TestVoidSparesVines(t *testing.T) {
	s := newScene(t, []string{
		"PV..",
		"O.x.",
	}, facing('V', DirDown), facing('P', DirDown), tune(func(g *Generation) { g.VineLength = 1 }))

	// The person bumps into the void player; the sweep still runs.
	s.submit(IntentDown)

	vines := s.owned('V', DecoVine)
	require.Len(t, vines, 2)
	for _, v := range vines {
		assert.Equal(t, LocationWorld, v.Location)
	}
	assert.Equal(t, LocationWorld, s.get('x').Location)
}

func TestBlobMimicsWhatItSees(t *testing.T) {
	s := newScene(t, []string{
		"B.G",
		".P.",
	}, facing('G', DirDown))

	s.submit(IntentAction)

	blob := s.get('B')
	assert.Equal(t, ElementGolem, blob.Player.Element)
	assert.Equal(t, DirDown, blob.Player.Direction)
	assert.Equal(t, DirRight, blob.Player.BlobDirection)
	assert.True(t, blob.Player.IsBlob)

	var transform *Effect
	for _, e := range s.board.Effects() {
		if e.Kind == EffectTransform {
			transform = &e
		}
	}
	require.NotNil(t, transform)
	require.NotNil(t, transform.From)
	assert.Equal(t, ElementBlob, *transform.From)

	// The person steps between them; a blob never copies a person.
	s.submit(IntentUp)

	blob = s.get('B')
	assert.Equal(t, ElementBlob, blob.Player.Element)
	assert.Equal(t, DirRight, blob.Player.Direction)
}

func TestBlobAsVoidHoldsWhatItPhased(t *testing.T) {
	s := newScene(t, []string{
		"B..O.",
		"P....",
	})

	s.submit(IntentRight)

	assert.Equal(t, Pos(1, 1), s.pos('P'))
	blob := s.get('B')
	assert.Equal(t, ElementVoid, blob.Player.Element)
	assert.Equal(t, DirRight, blob.Player.Direction)
	assert.Equal(t, LocationPhased, s.get('O').Location)
	assert.Equal(t, OutcomePlaying, s.board.Outcome())

	// The next turn settles the same way.
	s.submit(IntentLeft)
	assert.Equal(t, ElementVoid, s.get('B').Player.Element)
	assert.Equal(t, LocationPhased, s.get('O').Location)
}

func TestBlobAsIceGrowsAndMeltsIce(t *testing.T) {
	s := newScene(t, []string{
		"B..I",
		".P..",
	}, facing('P', DirLeft))

	s.submit(IntentAction)
	require.Equal(t, ElementIce, s.get('B').Player.Element)
	assert.Len(t, s.owned('B', DecoIce), 9)

	s.submit(IntentUp)
	require.Equal(t, ElementBlob, s.get('B').Player.Element)
	assert.Empty(t, s.owned('B', DecoIce))
}

func TestMagnetAttachThenFollow(t *testing.T) {
	s := newScene(t, []string{"mM...."}, active('M'))

	// The magnet has no action; the reactive sweep links the metal.
	s.submit(IntentAction)

	metal := s.get('m')
	require.NotNil(t, metal.Deco.Attachment)
	assert.Equal(t, s.id('M'), metal.Deco.Attachment.TargetID)
	assert.True(t, s.hasEffect(EffectAttach))

	s.submit(IntentRight)
	assert.Equal(t, Pos(2, 0), s.pos('M'))
	assert.Equal(t, Pos(1, 0), s.pos('m'))

	s.submit(IntentRight)
	assert.Equal(t, Pos(3, 0), s.pos('M'))
	assert.Equal(t, Pos(2, 0), s.pos('m'))
	require.NoError(t, s.board.CheckInvariants())
}

func TestMagnetChainFollows(t *testing.T) {
	s := newScene(t, []string{"mmM..."}, active('M'))

	s.submit(IntentAction)
	first, second := s.lookup(s.nth('m', 0)), s.lookup(s.nth('m', 1))
	require.NotNil(t, first.Deco.Attachment)
	require.NotNil(t, second.Deco.Attachment)
	assert.Equal(t, second.ID, first.Deco.Attachment.TargetID)

	s.submit(IntentRight)

	assert.Equal(t, Pos(3, 0), s.pos('M'))
	assert.Equal(t, Pos(2, 0), s.lookup(s.nth('m', 1)).Position)
	assert.Equal(t, Pos(1, 0), s.lookup(s.nth('m', 0)).Position)
	require.NoError(t, s.board.CheckInvariants())
}

func TestMagnetChainBendsAroundCorner(t *testing.T) {
	s := newScene(t, []string{
		"....",
		".mM.",
	}, active('M'))

	s.submit(IntentAction)
	s.submit(IntentUp)

	assert.Equal(t, Pos(2, 0), s.pos('M'))
	assert.Equal(t, Pos(2, 1), s.pos('m'))
}

func TestMagnetLinkBreaksWhenAnchorLeaps(t *testing.T) {
	s := newScene(t, []string{
		".m...#",
		"WM...#",
	}, active('W'))

	// There is no person to switch to; the sweep links the metal.
	s.submit(IntentSwitch)
	require.NotNil(t, s.get('m').Deco.Attachment)

	// The gust carries the magnet three cells in one go.
	s.submit(IntentAction)

	assert.Equal(t, Pos(4, 1), s.pos('M'))
	assert.Nil(t, s.get('m').Deco.Attachment)
	assert.Equal(t, Pos(1, 0), s.pos('m'))
	assert.True(t, s.hasEffect(EffectDetach))
}

func TestMagnetLinkBreaksWhenAnchorChanges(t *testing.T) {
	s := newScene(t, []string{"mmM"}, active('M'))

	s.submit(IntentAction)
	require.NotNil(t, s.lookup(s.nth('m', 0)).Deco.Attachment)

	magnet, ok := s.board.store.Get(s.id('M'))
	require.True(t, ok)
	magnet.Player.Element = ElementFire
	s.submit(IntentSwitch)

	// Breaking the root tears down the whole chain.
	assert.Nil(t, s.lookup(s.nth('m', 0)).Deco.Attachment)
	assert.Nil(t, s.lookup(s.nth('m', 1)).Deco.Attachment)
}

func TestMagnetLinkBreaksWhenPushedAway(t *testing.T) {
	s := newScene(t, []string{
		"G...",
		"mM..",
	}, active('G'), facing('G', DirDown))

	s.submit(IntentAction)
	require.NotNil(t, s.get('m').Deco.Attachment)

	s.submit(IntentDown)

	// the golem pushed the metal down into the water where it sank
	assert.Nil(t, s.get('m').Deco.Attachment)
	assert.Equal(t, LocationSubmerged, s.get('m').Location)
}

func TestMagnetPrefersMostRecentlyMoved(t *testing.T) {
	s := newScene(t, []string{
		"M...",
		".mM.",
	}, active('M'))

	// The first magnet steps next to the metal. Both magnets now touch it;
	// the one that just moved wins even though the other comes first in
	// direction order.
	s.submit(IntentDown)

	link := s.get('m').Deco.Attachment
	require.NotNil(t, link)
	assert.Equal(t, s.nth('M', 0), link.TargetID)
}

func TestUndoRestoresPreviousState(t *testing.T) {
	s := newScene(t, []string{"P..."})

	s.submit(IntentRight, IntentRight)
	require.Equal(t, Pos(2, 0), s.pos('P'))

	require.True(t, s.board.Undo())
	assert.Equal(t, Pos(1, 0), s.pos('P'))
	require.True(t, s.board.Undo())
	assert.Equal(t, Pos(0, 0), s.pos('P'))
	assert.False(t, s.board.Undo())
	assert.Equal(t, 0, s.board.MoveClock())
}

func TestUndoSkipsNoOpTurn(t *testing.T) {
	s := newScene(t, []string{"P.#"})

	s.submit(IntentRight) // moves
	s.submit(IntentRight) // blocked by the wall
	require.Equal(t, 2, s.board.HistoryLen())

	s.submit(IntentUndo)

	assert.Equal(t, Pos(0, 0), s.pos('P'))
	assert.Equal(t, 0, s.board.HistoryLen())
}

func TestUndoIntent(t *testing.T) {
	s := newScene(t, []string{"Fw"}, active('F'))

	s.submit(IntentAction)
	require.True(t, s.get('w').Dead)

	s.submit(IntentUndo)

	wood := s.get('w')
	assert.False(t, wood.Dead)
	assert.Equal(t, LocationWorld, wood.Location)
	assert.Empty(t, s.board.Effects())
}

func TestResetReturnsToStart(t *testing.T) {
	s := newScene(t, []string{"P..."})

	s.submit(IntentRight, IntentRight)
	s.board.Reset()

	assert.Equal(t, Pos(0, 0), s.pos('P'))
	assert.Equal(t, 0, s.board.HistoryLen())
	assert.Equal(t, 0, s.board.MoveClock())
}

func TestOutcomeWon(t *testing.T) {
	s := newScene(t, []string{"P$"})

	assert.Equal(t, OutcomePlaying, s.board.Outcome())
	s.submit(IntentRight)
	assert.Equal(t, OutcomeWon, s.board.Outcome())
	assert.Equal(t, OutcomeWon, s.board.View().Outcome)
}

func TestNearbySign(t *testing.T) {
	s := newScene(t, []string{"P.?"})

	_, ok := s.board.NearbySign()
	assert.False(t, ok)

	s.submit(IntentRight)
	text, ok := s.board.NearbySign()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "hello", s.board.View().Sign)
}

func TestSubmitIgnoredWhilePending(t *testing.T) {
	s := newScene(t, []string{"P..."})
	s.board.sched.Seed(IntentNone, []Tag{TagFire})

	require.NoError(t, s.board.SubmitIntent(IntentRight))
	assert.Equal(t, Pos(0, 0), s.pos('P'))

	require.NoError(t, s.board.Drain())
	require.NoError(t, s.board.SubmitIntent(IntentRight))
	assert.Equal(t, Pos(1, 0), s.pos('P'))
}

func TestDeterminism(t *testing.T) {
	rows := []string{
		"..~~~....",
		"P.~I~.x.G",
		"..~~~.mM.",
		"W...r...O",
	}
	intents := []Intent{
		IntentRight, IntentDown, IntentSwitch, IntentAction, IntentLeft, IntentUp,
		IntentRight, IntentRight, IntentUndo, IntentDown, IntentAction, IntentSwitch,
	}

	run := func() [][]byte {
		s := newScene(t, rows, facing('W', DirRight), facing('O', DirLeft))
		var out [][]byte
		for _, in := range intents {
			s.submit(in)
			snap, err := s.board.Snapshot()
			require.NoError(t, err)
			out = append(out, snap)
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newScene(t, []string{
		"P.x~.",
		"mM..I",
	})
	s.submit(IntentRight, IntentRight, IntentAction)

	snap, err := s.board.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(snap, DefaultGeneration(), zaptest.NewLogger(t))
	require.NoError(t, err)

	again, err := restored.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, again)
	assert.Equal(t, s.board.View().Entities, restored.View().Entities)

	sum, err := restored.Checksum()
	require.NoError(t, err)
	assert.Equal(t, Checksum(snap), sum)
}

func TestRestoreMidDrain(t *testing.T) {
	s := newScene(t, []string{"Fw"}, active('F'))
	s.board.sched.Seed(IntentAction, []Tag{TagAction})

	snap, err := s.board.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(snap, DefaultGeneration(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.True(t, restored.Pending())

	require.NoError(t, restored.Drain())
	wood, ok := restored.Lookup(2)
	require.True(t, ok)
	assert.True(t, wood.Dead)

	restored.Reset()
	wood, _ = restored.Lookup(2)
	assert.False(t, wood.Dead)
}

func TestLoadRejectsOtherLevel(t *testing.T) {
	s := newScene(t, []string{"P."})
	other := newScene(t, []string{"P."})
	other.board.info.ID = "elsewhere"

	snap, err := other.board.Snapshot()
	require.NoError(t, err)

	assert.Error(t, s.board.Load(snap))
}

func TestLoadIsUndoable(t *testing.T) {
	s := newScene(t, []string{"P.."})
	saved, err := s.board.Snapshot()
	require.NoError(t, err)

	s.submit(IntentRight)
	require.NoError(t, s.board.Load(saved))
	assert.Equal(t, Pos(0, 0), s.pos('P'))

	require.True(t, s.board.Undo())
	assert.Equal(t, Pos(1, 0), s.pos('P'))
}

func TestNewRejectsOverlap(t *testing.T) {
	setup := Setup{
		Info: LevelInfo{ID: "bad"},
		Entities: []*Entity{
			NewPlayer(Pos(0, 0), ElementPerson, DirRight),
			NewDeco(Pos(0, 0), DecoRock),
		},
	}
	_, err := New(setup, DefaultGeneration(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewRejectsBadGeneration(t *testing.T) {
	gen := DefaultGeneration()
	gen.Order = []Tag{TagMove, TagAction}
	_, err := New(Setup{}, gen, nil)
	assert.Error(t, err)
}

func TestCheckInvariantsFindsCycle(t *testing.T) {
	s := newScene(t, []string{"mm"})
	a, b := s.board.store.entities[0], s.board.store.entities[1]
	a.Deco.Attachment = &Attachment{TargetID: b.ID}
	b.Deco.Attachment = &Attachment{TargetID: a.ID}

	assert.ErrorContains(t, s.board.CheckInvariants(), "cycle")
}

func TestViewListsEveryLocation(t *testing.T) {
	s := newScene(t, []string{"Px~Fw"}, facing('F', DirLeft))

	s.submit(IntentRight)

	locations := map[Location]int{}
	for _, e := range s.board.View().Entities {
		locations[e.Location]++
	}
	assert.Equal(t, 1, locations[LocationSubmerged])
	assert.Equal(t, 1, locations[LocationFallen])
}
