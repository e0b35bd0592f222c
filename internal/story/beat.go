package story

import "fmt"

// Beat is a coarse stage of the three-act structure. Beats only move forward.
type Beat int

const (
	Exposition Beat = iota
	IncitingIncident
	RisingAction
	Climax
	FallingAction
	Resolution
)

var beatNames = [...]string{
	Exposition:       "exposition",
	IncitingIncident: "inciting_incident",
	RisingAction:     "rising_action",
	Climax:           "climax",
	FallingAction:    "falling_action",
	Resolution:       "resolution",
}

func (b Beat) String() string {
	if b < Exposition || b > Resolution {
		return fmt.Sprintf("Beat(%d)", int(b))
	}
	return beatNames[b]
}

// transitions maps each non-terminal beat to the accepted-action count that
// moves it to the following beat.
var transitions = map[Beat]struct {
	at   int
	next Beat
}{
	Exposition:       {2, IncitingIncident},
	IncitingIncident: {5, RisingAction},
	RisingAction:     {10, Climax},
	Climax:           {13, FallingAction},
	FallingAction:    {15, Resolution},
}

// Next returns the beat after actions accepted actions. It moves at most one
// step and never backwards; Resolution is terminal.
func (b Beat) Next(actions int) Beat {
	t, ok := transitions[b]
	if !ok || actions < t.at {
		return b
	}
	return t.next
}

func ParseBeat(s string) (Beat, error) {
	for i, name := range beatNames {
		if name == s {
			return Beat(i), nil
		}
	}
	return Exposition, fmt.Errorf("unknown beat %q", s)
}

func (b Beat) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Beat) UnmarshalText(text []byte) error {
	parsed, err := ParseBeat(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
