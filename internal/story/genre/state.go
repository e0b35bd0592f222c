package genre

import (
	"fmt"
	"strings"
)

const (
	snippetLength = 100

	// ActionsPerBeat is how many accepted actions move the genre beat forward.
	ActionsPerBeat = 2
)

// State is the per-session view of a genre. Config is shared; everything else
// belongs to the session.
type State struct {
	Genre      string              `json:"genre"`
	Config     *Config             `json:"-"`
	BeatIndex  int                 `json:"beat_index"`
	Violations []string            `json:"violations"`
	Elements   map[string][]string `json:"elements"`

	actions int
}

func NewState(requested string, cfg *Config) *State {
	elements := make(map[string][]string, len(cfg.Elements))
	for _, slot := range cfg.Elements {
		elements[slot] = []string{}
	}
	return &State{
		Genre:     requested,
		Config:    cfg,
		Elements:  elements,
		BeatIndex: 0,
	}
}

// Beat is the name of the current genre beat.
func (s *State) Beat() string {
	if len(s.Config.Beats) == 0 {
		return "story_development"
	}
	return s.Config.Beats[s.BeatIndex]
}

// Check validates text and records any violations on the session.
func (s *State) Check(text string) bool {
	ok, violations := ValidateConsistency(s.Config, text)
	s.Violations = append(s.Violations, violations...)
	return ok
}

// RecordAction counts one accepted action and advances the beat every
// ActionsPerBeat actions, stopping at the last beat.
func (s *State) RecordAction() {
	s.actions++
	if s.actions%ActionsPerBeat == 0 && s.BeatIndex < len(s.Config.Beats)-1 {
		s.BeatIndex++
	}
}

// ExtractElements files the first hundred characters of text under every slot
// whose trigger words appear in it.
func (s *State) ExtractElements(text string) {
	lower := strings.ToLower(text)
	for _, rule := range s.Config.ElementRules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(lower, trigger) {
				s.Elements[rule.Slot] = append(s.Elements[rule.Slot], snippet(text))
				break
			}
		}
	}
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) > snippetLength {
		return string(r[:snippetLength])
	}
	return text
}

type Status struct {
	Genre        string              `json:"genre"`
	CurrentBeat  string              `json:"current_beat"`
	BeatProgress string              `json:"beat_progress"`
	Violations   []string            `json:"violations"`
	Elements     map[string][]string `json:"elements"`
}

func (s *State) Status() Status {
	return Status{
		Genre:        s.Genre,
		CurrentBeat:  s.Beat(),
		BeatProgress: fmt.Sprintf("%d/%d", s.BeatIndex+1, len(s.Config.Beats)),
		Violations:   append([]string(nil), s.Violations...),
		Elements:     s.Elements,
	}
}

// ActionCount is the number of accepted actions recorded on the state.
func (s *State) ActionCount() int {
	return s.actions
}

// Restore sets the action counter after loading a persisted state.
func (s *State) Restore(actions int) {
	s.actions = actions
}
