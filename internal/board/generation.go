package board

import "fmt"

// Intent is one abstract control input.
type Intent int

const (
	IntentNone Intent = iota
	IntentUp
	IntentDown
	IntentLeft
	IntentRight
	IntentAction
	IntentSwitch
	IntentUndo
)

var intentNames = map[Intent]string{
	IntentNone:   "none",
	IntentUp:     "up",
	IntentDown:   "down",
	IntentLeft:   "left",
	IntentRight:  "right",
	IntentAction: "action",
	IntentSwitch: "switch",
	IntentUndo:   "undo",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INTENT_%d", int(i))
}

// ParseIntent converts an intent name.
func ParseIntent(s string) (Intent, error) {
	for i, name := range intentNames {
		if name == s {
			return i, nil
		}
	}
	return IntentNone, fmt.Errorf("unknown intent %q", s)
}

func (i Intent) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Intent) UnmarshalText(text []byte) error {
	parsed, err := ParseIntent(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Direction returns the movement direction of a directional intent.
func (i Intent) Direction() (Direction, bool) {
	switch i {
	case IntentUp:
		return DirUp, true
	case IntentDown:
		return DirDown, true
	case IntentLeft:
		return DirLeft, true
	case IntentRight:
		return DirRight, true
	default:
		return DirNone, false
	}
}

// Generation is the rule manifest of one generation of levels: which rules
// run, in which order, and the ranges they use. Level files name the
// generation they were designed for.
type Generation struct {
	Name string `json:"name"`

	// Order is the canonical queue installed for every intent. The reactive
	// subset, in this order, is what a requeue appends.
	Order []Tag `json:"order"`

	WindRange  int `json:"wind_range"`
	VineLength int `json:"vine_length"`
	VoidRange  int `json:"void_range"`
	SightRange int `json:"sight_range"`
	GlideRange int `json:"glide_range"`

	// MaxRuleExecutions caps one drain. Hitting it is a defect in the rules
	// or the level, never a normal outcome.
	MaxRuleExecutions int `json:"max_rule_executions"`

	// HistoryLimit bounds the undo stack; zero keeps every snapshot.
	HistoryLimit int `json:"history_limit"`
}

// DefaultOrder is the manifest of the current generation.
var DefaultOrder = []Tag{
	TagMove, TagAction, TagSwitch,
	TagFire, TagWind, TagIce, TagVine, TagWaterlog, TagMine, TagBlob, TagMagnet, TagVoid,
}

// DefaultGeneration returns the manifest used when a level names none.
func DefaultGeneration() Generation {
	return Generation{
		Name:              "classic",
		Order:             append([]Tag(nil), DefaultOrder...),
		WindRange:         12,
		VineLength:        12,
		VoidRange:         12,
		SightRange:        32,
		GlideRange:        12,
		MaxRuleExecutions: 10000,
	}
}

// Validate checks the manifest: every tag known, none repeated, and the three
// intent rules present.
func (g Generation) Validate() error {
	seen := make(map[Tag]bool, len(g.Order))
	for _, t := range g.Order {
		if _, ok := tagNames[t]; !ok {
			return fmt.Errorf("generation %q: %w: %d", g.Name, ErrUnknownTag, int(t))
		}
		if seen[t] {
			return fmt.Errorf("generation %q: rule %s listed twice", g.Name, t)
		}
		seen[t] = true
	}
	for _, t := range []Tag{TagMove, TagAction, TagSwitch} {
		if !seen[t] {
			return fmt.Errorf("generation %q: manifest lacks %s", g.Name, t)
		}
	}
	if g.WindRange < 0 || g.VineLength < 0 || g.VoidRange < 0 || g.SightRange < 0 || g.GlideRange < 0 {
		return fmt.Errorf("generation %q: ranges must not be negative", g.Name)
	}
	if g.MaxRuleExecutions <= 0 {
		return fmt.Errorf("generation %q: max rule executions must be positive", g.Name)
	}
	return nil
}

// Enabled reports whether the manifest runs rule t.
func (g Generation) Enabled(t Tag) bool {
	for _, o := range g.Order {
		if o == t {
			return true
		}
	}
	return false
}
