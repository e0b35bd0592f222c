// Package story holds the per-conversation story state and the narrative beat
// machine that drives it.
package story

import (
	"sort"
	"time"

	"adaptivestory/internal/story/genre"
	"adaptivestory/internal/story/profile"
)

// Session is the root aggregate of one story. It is not safe for concurrent
// use; callers serialize turns per session.
type Session struct {
	ID          string
	Genre       string
	History     *History
	UserActions []string
	Characters  map[string]*Character
	Locations   map[string]int
	Beat        Beat
	ActionCount int
	KeyEvents   *KeyEvents
	GenreState  *genre.State
	Profile     *profile.Profile
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// LastRejection is the message of the most recent rejected action. It is
	// never written to History.
	LastRejection string
}

func NewSession(id, genreName string, cfg *genre.Config, analyzer *profile.Analyzer) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Genre:      genreName,
		History:    NewHistory(""),
		Characters: make(map[string]*Character),
		Locations:  make(map[string]int),
		Beat:       Exposition,
		KeyEvents:  NewKeyEvents(),
		Profile:    profile.New(analyzer),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if cfg != nil {
		s.GenreState = genre.NewState(genreName, cfg)
	}
	return s
}

// GenreBeat is the current genre beat, or a generic label without a genre.
func (s *Session) GenreBeat() string {
	if s.GenreState == nil {
		return "story_development"
	}
	return s.GenreState.Beat()
}

// RecordAction logs an accepted action and moves the beats forward.
func (s *Session) RecordAction(action string) {
	s.UserActions = append(s.UserActions, action)
	s.ActionCount++
	s.Beat = s.Beat.Next(s.ActionCount)
	if s.GenreState != nil {
		s.GenreState.RecordAction()
	}
	s.UpdatedAt = time.Now()
}

// TrackElements updates characters and locations from text.
func (s *Session) TrackElements(text string) {
	for _, name := range CandidateNames(text) {
		if c, ok := s.Characters[name]; ok {
			c.Mentions++
			continue
		}
		s.Characters[name] = &Character{FirstMention: s.History.Len(), Mentions: 1}
	}
	for _, loc := range ExtractLocations(text) {
		s.Locations[loc]++
	}
}

type NamedCharacter struct {
	Name string
	Character
}

// TopCharacters returns up to n characters ordered by mentions, then by
// first appearance.
func (s *Session) TopCharacters(n int) []NamedCharacter {
	out := make([]NamedCharacter, 0, len(s.Characters))
	for name, c := range s.Characters {
		out = append(out, NamedCharacter{Name: name, Character: *c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		if out[i].FirstMention != out[j].FirstMention {
			return out[i].FirstMention < out[j].FirstMention
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
