package ink

// MaxHistory is how many finished strokes are kept for undo.
const MaxHistory = 50

// History is a bounded stack of strokes. Pushing past the limit drops the
// oldest stroke.
type History struct {
	strokes []Stroke
	limit   int
}

// NewHistory creates a history holding at most limit strokes.
// A non-positive limit means MaxHistory.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = MaxHistory
	}
	return &History{limit: limit}
}

// Push appends s and reports how many old strokes were evicted.
func (h *History) Push(s Stroke) int {
	h.strokes = append(h.strokes, s)
	over := len(h.strokes) - h.limit
	if over <= 0 {
		return 0
	}
	h.strokes = append(h.strokes[:0:0], h.strokes[over:]...)
	return over
}

// Pop removes and returns the newest stroke.
func (h *History) Pop() (Stroke, bool) {
	if len(h.strokes) == 0 {
		return Stroke{}, false
	}
	last := h.strokes[len(h.strokes)-1]
	h.strokes = h.strokes[:len(h.strokes)-1]
	return last, true
}

// Len returns the number of strokes held.
func (h *History) Len() int { return len(h.strokes) }

// All returns the strokes oldest first.
func (h *History) All() []Stroke {
	return append([]Stroke(nil), h.strokes...)
}

// Reset drops every stroke.
func (h *History) Reset() { h.strokes = nil }
