package tui

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/elementalcave/cave-server-go/internal/board"
)

const sampleRate = beep.SampleRate(44100)

// cueTones maps effects to the pitch of a short tone.
var cueTones = map[board.EffectKind]float64{
	board.EffectBurn:      220,
	board.EffectExplosion: 110,
	board.EffectSplash:    660,
	board.EffectDrown:     165,
	board.EffectImpale:    196,
	board.EffectIceFormed: 1320,
	board.EffectTransform: 523,
	board.EffectSwitch:    880,
	board.EffectPhaseOut:  330,
	board.EffectPhaseIn:   440,
}

// Sounds plays a tone for the loudest effect of each drain. A Sounds whose
// speaker failed to start stays silent.
type Sounds struct {
	enabled bool
}

// NewSounds opens the speaker.
func NewSounds() (*Sounds, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return &Sounds{}, err
	}
	return &Sounds{enabled: true}, nil
}

// Tone returns the pitch played for a drain's effects, the lowest cue
// winning, and false when no effect has a cue.
func Tone(effects []board.Effect) (float64, bool) {
	best, found := 0.0, false
	for _, e := range effects {
		if f, ok := cueTones[e.Kind]; ok && (!found || f < best) {
			best, found = f, true
		}
	}
	return best, found
}

// Play sounds the cue for effects, if any.
func (s *Sounds) Play(effects []board.Effect) {
	if s == nil || !s.enabled {
		return
	}
	freq, ok := Tone(effects)
	if !ok {
		return
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(80*time.Millisecond), sine))
}

// Close releases the speaker.
func (s *Sounds) Close() {
	if s != nil && s.enabled {
		speaker.Close()
	}
}
