package story

import "strings"

// History is the append-only sequence of story segments. The first segment is
// the opening.
type History struct {
	segments []string
}

func NewHistory(opening string) *History {
	h := &History{}
	if opening != "" {
		h.segments = append(h.segments, opening)
	}
	return h
}

func (h *History) AddAction(action string) {
	h.add("[" + action + "]")
}

func (h *History) AddNarration(text string) {
	h.add(text)
}

func (h *History) add(entry string) {
	h.segments = append(h.segments, entry)
}

func (h *History) Opening() string {
	if len(h.segments) == 0 {
		return ""
	}
	return h.segments[0]
}

func (h *History) Len() int {
	return len(h.segments)
}

// Recent returns up to the last n segments.
func (h *History) Recent(n int) []string {
	if n >= len(h.segments) {
		n = len(h.segments)
	}
	result := make([]string, n)
	copy(result, h.segments[len(h.segments)-n:])
	return result
}

func (h *History) GetEntries() []string {
	result := make([]string, len(h.segments))
	copy(result, h.segments)
	return result
}

// BuildContext assembles the sliding window handed to the oracle: the opening,
// the last three key events and the last maxHistory segments.
func BuildContext(h *History, events *KeyEvents, maxHistory int) string {
	var parts []string
	if opening := h.Opening(); opening != "" {
		parts = append(parts, opening)
	}
	parts = append(parts, events.Recent(3)...)
	if h.Len() > 1 {
		parts = append(parts, h.Recent(maxHistory)...)
	}
	return strings.Join(parts, "\n\n")
}
