package board

import "fmt"

// EffectKind names a transient visual or audio cue produced by a rule.
type EffectKind int

const (
	EffectFire EffectKind = iota
	EffectBurn
	EffectGust
	EffectExplosion
	EffectSplash
	EffectDrown
	EffectImpale
	EffectIceFormed
	EffectIceMelted
	EffectVineGrown
	EffectVineRetracted
	EffectPhaseOut
	EffectPhaseIn
	EffectAttach
	EffectDetach
	EffectTransform
	EffectSwitch
)

var effectNames = map[EffectKind]string{
	EffectFire:          "fire",
	EffectBurn:          "burn",
	EffectGust:          "gust",
	EffectExplosion:     "explosion",
	EffectSplash:        "splash",
	EffectDrown:         "drown",
	EffectImpale:        "impale",
	EffectIceFormed:     "ice_formed",
	EffectIceMelted:     "ice_melted",
	EffectVineGrown:     "vine_grown",
	EffectVineRetracted: "vine_retracted",
	EffectPhaseOut:      "phase_out",
	EffectPhaseIn:       "phase_in",
	EffectAttach:        "attach",
	EffectDetach:        "detach",
	EffectTransform:     "transform",
	EffectSwitch:        "switch",
}

func (k EffectKind) String() string {
	if name, ok := effectNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EFFECT_%d", int(k))
}

func (k EffectKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Effect records something a renderer may want to animate. Effects are not
// part of the board state: they describe the most recent drain only.
type Effect struct {
	Kind     EffectKind `json:"kind"`
	Position Position   `json:"position"`
	EntityID int        `json:"entity_id,omitempty"`
	// From is the element a player had before a transform.
	From *Element `json:"from,omitempty"`
}
