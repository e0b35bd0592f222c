package story

import (
	"time"

	"adaptivestory/internal/story/genre"
	"adaptivestory/internal/story/profile"
)

// Snapshot is the persisted form of a Session.
type Snapshot struct {
	ID          string               `json:"id"`
	Genre       string               `json:"genre"`
	History     []string             `json:"history"`
	UserActions []string             `json:"user_actions"`
	Characters  map[string]Character `json:"characters"`
	Locations   map[string]int       `json:"locations"`
	Beat        Beat                 `json:"current_beat"`
	ActionCount int                  `json:"action_count"`
	KeyEvents   []string             `json:"key_events"`
	Profile     map[string]any       `json:"profile"`
	GenreState  *GenreSnapshot       `json:"genre_state,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type GenreSnapshot struct {
	BeatIndex  int                 `json:"beat_index"`
	Actions    int                 `json:"actions"`
	Violations []string            `json:"violations"`
	Elements   map[string][]string `json:"elements"`
}

func (s *Session) Snapshot() Snapshot {
	chars := make(map[string]Character, len(s.Characters))
	for name, c := range s.Characters {
		chars[name] = *c
	}
	locs := make(map[string]int, len(s.Locations))
	for k, v := range s.Locations {
		locs[k] = v
	}

	snap := Snapshot{
		ID:          s.ID,
		Genre:       s.Genre,
		History:     s.History.GetEntries(),
		UserActions: append([]string(nil), s.UserActions...),
		Characters:  chars,
		Locations:   locs,
		Beat:        s.Beat,
		ActionCount: s.ActionCount,
		KeyEvents:   s.KeyEvents.All(),
		Profile:     s.Profile.ToMap(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if gs := s.GenreState; gs != nil {
		snap.GenreState = &GenreSnapshot{
			BeatIndex:  gs.BeatIndex,
			Actions:    gs.ActionCount(),
			Violations: append([]string(nil), gs.Violations...),
			Elements:   gs.Elements,
		}
	}
	return snap
}

// Restore rebuilds a session from a snapshot. Genre configs are resolved
// through catalog; a nil catalog leaves the session without genre state.
func Restore(snap Snapshot, catalog *genre.Catalog, analyzer *profile.Analyzer) *Session {
	var cfg *genre.Config
	if catalog != nil && snap.GenreState != nil {
		cfg = catalog.Lookup(snap.Genre)
	}

	s := NewSession(snap.ID, snap.Genre, cfg, analyzer)
	s.History = &History{segments: append([]string(nil), snap.History...)}
	s.UserActions = append([]string(nil), snap.UserActions...)
	for name, c := range snap.Characters {
		s.Characters[name] = &Character{FirstMention: c.FirstMention, Mentions: c.Mentions}
	}
	for k, v := range snap.Locations {
		s.Locations[k] = v
	}
	s.Beat = snap.Beat
	s.ActionCount = snap.ActionCount
	for _, e := range snap.KeyEvents {
		s.KeyEvents.Push(e)
	}
	if snap.Profile != nil {
		s.Profile.FromMap(snap.Profile)
	}
	if s.GenreState != nil {
		gs := snap.GenreState
		s.GenreState.BeatIndex = min(gs.BeatIndex, max(len(cfg.Beats)-1, 0))
		s.GenreState.Violations = gs.Violations
		if gs.Elements != nil {
			s.GenreState.Elements = gs.Elements
		}
		s.GenreState.Restore(gs.Actions)
	}
	s.CreatedAt = snap.CreatedAt
	s.UpdatedAt = snap.UpdatedAt
	return s
}
