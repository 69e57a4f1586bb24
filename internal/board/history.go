package board

import "bytes"

// History is the undo log: serialized snapshots, newest last.
type History struct {
	snapshots [][]byte
	limit     int
}

// NewHistory returns an empty history. A positive limit drops the oldest
// snapshot once exceeded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// PushIfChanged appends snapshot unless it equals the newest entry.
func (h *History) PushIfChanged(snapshot []byte) bool {
	if n := len(h.snapshots); n > 0 && bytes.Equal(h.snapshots[n-1], snapshot) {
		return false
	}
	h.snapshots = append(h.snapshots, snapshot)
	if h.limit > 0 && len(h.snapshots) > h.limit {
		h.snapshots = append(h.snapshots[:0], h.snapshots[len(h.snapshots)-h.limit:]...)
	}
	return true
}

// Pop removes and returns the newest snapshot.
func (h *History) Pop() ([]byte, bool) {
	n := len(h.snapshots)
	if n == 0 {
		return nil, false
	}
	top := h.snapshots[n-1]
	h.snapshots[n-1] = nil
	h.snapshots = h.snapshots[:n-1]
	return top, true
}

// Peek returns the newest snapshot without removing it.
func (h *History) Peek() ([]byte, bool) {
	n := len(h.snapshots)
	if n == 0 {
		return nil, false
	}
	return h.snapshots[n-1], true
}

// Len returns the number of stored snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Clear drops every snapshot.
func (h *History) Clear() { h.snapshots = nil }
