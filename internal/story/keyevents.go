package story

import "strings"

const maxKeyEvents = 5

var keyIndicators = []string{
	"died", "killed", "murdered", "death",
	"discovered", "found", "revealed", "realized",
	"decided", "chose", "agreed",
	"arrived", "left", "escaped",
	"betrayed", "confessed", "admitted",
}

// KeyEvents keeps the five most recent significant sentences, oldest first.
type KeyEvents struct {
	events []string
}

func NewKeyEvents() *KeyEvents {
	return &KeyEvents{events: make([]string, 0, maxKeyEvents)}
}

// Track stores the first sentence of text that mentions a key indicator.
func (k *KeyEvents) Track(text string) bool {
	if !hasIndicator(text) {
		return false
	}
	for _, sentence := range strings.Split(text, ".") {
		if hasIndicator(sentence) {
			k.Push(strings.TrimSpace(sentence) + ".")
			return true
		}
	}
	return false
}

func (k *KeyEvents) Push(event string) {
	k.events = append(k.events, event)
	if len(k.events) > maxKeyEvents {
		k.events = k.events[len(k.events)-maxKeyEvents:]
	}
}

// Recent returns up to the last n events.
func (k *KeyEvents) Recent(n int) []string {
	if n > len(k.events) {
		n = len(k.events)
	}
	out := make([]string, n)
	copy(out, k.events[len(k.events)-n:])
	return out
}

func (k *KeyEvents) Len() int {
	return len(k.events)
}

func (k *KeyEvents) All() []string {
	return k.Recent(len(k.events))
}

func hasIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, ind := range keyIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
