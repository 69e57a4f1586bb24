package board

import (
	"errors"
	"fmt"
)

// Tag names one rule in the advancement queue.
type Tag int

const (
	TagMove Tag = iota
	TagAction
	TagSwitch
	TagFire
	TagWind
	TagIce
	TagVine
	TagWaterlog
	TagMine
	TagBlob
	TagMagnet
	TagVoid
)

var tagNames = map[Tag]string{
	TagMove:     "move",
	TagAction:   "action",
	TagSwitch:   "switch",
	TagFire:     "fire",
	TagWind:     "wind",
	TagIce:      "ice",
	TagVine:     "vine",
	TagWaterlog: "waterlog",
	TagMine:     "mine",
	TagBlob:     "blob",
	TagMagnet:   "magnet",
	TagVoid:     "void",
}

// ErrUnknownTag is returned when a manifest names a rule that does not exist.
var ErrUnknownTag = errors.New("unknown rule tag")

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TAG_%d", int(t))
}

// ParseTag converts a rule name.
func ParseTag(s string) (Tag, error) {
	for t, name := range tagNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

func (t Tag) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := ParseTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Reactive reports whether the rule belongs to the set that is re-run after
// every mutation. Only the three intent-driven rules are not reactive.
func (t Tag) Reactive() bool {
	switch t {
	case TagMove, TagAction, TagSwitch:
		return false
	default:
		return true
	}
}

// Scheduler is the advancement queue of one board. It holds the control
// intent being resolved and the ordered rule tags still to run.
type Scheduler struct {
	control  Intent
	queue    []Tag
	reactive []Tag
	blocked  bool
}

// NewScheduler returns a scheduler whose requeue order is the reactive
// subset of order.
func NewScheduler(order []Tag) *Scheduler {
	s := &Scheduler{}
	for _, t := range order {
		if t.Reactive() {
			s.reactive = append(s.reactive, t)
		}
	}
	return s
}

// Seed installs a fresh queue for a new control intent.
func (s *Scheduler) Seed(control Intent, order []Tag) {
	s.control = control
	s.queue = append(s.queue[:0], order...)
}

// Restore reinstates a persisted control intent and queue.
func (s *Scheduler) Restore(control Intent, pending []Tag) {
	s.control = control
	s.queue = append([]Tag(nil), pending...)
}

// Pop removes and returns the next tag.
func (s *Scheduler) Pop() (Tag, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	t := s.queue[0]
	s.queue = s.queue[1:]
	return t, true
}

// Requeue removes every reactive tag still pending and appends the whole
// reactive set again in manifest order, so one more full reactive sweep runs
// after whatever is draining now.
func (s *Scheduler) Requeue() {
	kept := s.queue[:0]
	for _, t := range s.queue {
		if !t.Reactive() {
			kept = append(kept, t)
		}
	}
	s.queue = append(kept, s.reactive...)
}

// Clear drops the pending queue.
func (s *Scheduler) Clear() {
	s.queue = s.queue[:0]
}

// Empty reports whether nothing is pending.
func (s *Scheduler) Empty() bool { return len(s.queue) == 0 }

// Blocked reports whether input is gated. Reserved for animation gating by
// collaborators; the core never sets it.
func (s *Scheduler) Blocked() bool { return s.blocked }

// Control returns the intent being resolved.
func (s *Scheduler) Control() Intent { return s.control }

// Pending returns a copy of the queue.
func (s *Scheduler) Pending() []Tag {
	return append([]Tag(nil), s.queue...)
}
