package chapter

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"adaptivestory/internal/story"
)

type CharacterEntry struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	FirstAppearance int      `json:"first_appearance"`
	Mentions        int      `json:"mentions"`
	History         []string `json:"history"`
}

type LocationEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visits      int    `json:"visits"`
}

type Event struct {
	Description string    `json:"description"`
	Chapter     int       `json:"chapter"`
	Timestamp   time.Time `json:"timestamp"`
}

// Database is the searchable record of who and where a story has mentioned.
type Database struct {
	Characters map[string]*CharacterEntry `json:"characters"`
	Locations  map[string]*LocationEntry  `json:"locations"`
	Events     []Event                    `json:"events"`
}

type SearchResults struct {
	Characters []CharacterEntry `json:"characters"`
	Locations  []LocationEntry  `json:"locations"`
	Events     []Event          `json:"events"`
}

func NewDatabase() *Database {
	return &Database{
		Characters: make(map[string]*CharacterEntry),
		Locations:  make(map[string]*LocationEntry),
		Events:     []Event{},
	}
}

func (d *Database) AddCharacter(name, description string, chapter int) {
	if c, ok := d.Characters[name]; ok {
		c.Mentions++
		c.History = append(c.History, description)
		return
	}
	d.Characters[name] = &CharacterEntry{
		Name:            name,
		Description:     description,
		FirstAppearance: chapter,
		Mentions:        1,
		History:         []string{description},
	}
}

func (d *Database) AddLocation(name, description string) {
	if l, ok := d.Locations[name]; ok {
		l.Visits++
		return
	}
	d.Locations[name] = &LocationEntry{Name: name, Description: description, Visits: 1}
}

func (d *Database) AddEvent(description string, chapter int) {
	d.Events = append(d.Events, Event{Description: description, Chapter: chapter, Timestamp: time.Now()})
}

// Search matches query case-insensitively against character names, location
// names and event descriptions. Characters and locations come back sorted by
// name, events in the order they happened.
func (d *Database) Search(query string) SearchResults {
	q := strings.ToLower(query)
	res := SearchResults{
		Characters: []CharacterEntry{},
		Locations:  []LocationEntry{},
		Events:     []Event{},
	}
	for name, c := range d.Characters {
		if strings.Contains(strings.ToLower(name), q) {
			res.Characters = append(res.Characters, *c)
		}
	}
	for name, l := range d.Locations {
		if strings.Contains(strings.ToLower(name), q) {
			res.Locations = append(res.Locations, *l)
		}
	}
	for _, e := range d.Events {
		if strings.Contains(strings.ToLower(e.Description), q) {
			res.Events = append(res.Events, e)
		}
	}
	sort.Slice(res.Characters, func(i, j int) bool { return res.Characters[i].Name < res.Characters[j].Name })
	sort.Slice(res.Locations, func(i, j int) bool { return res.Locations[i].Name < res.Locations[j].Name })
	return res
}

var (
	properName = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)

	excluded = map[string]bool{
		"The": true, "A": true, "An": true, "In": true, "On": true, "At": true,
		"To": true, "For": true, "Of": true, "And": true, "But": true, "Or": true,
		"As": true, "He": true, "She": true, "It": true, "They": true, "This": true,
		"That": true, "When": true, "Where": true, "Why": true, "How": true,
		"What": true, "Which": true, "Who": true,
	}
)

const (
	snippetBefore = 50
	snippetAfter  = 100
)

// Extract records every capitalized name and every place after a
// preposition in text under chapter. Each name is described by the text
// around its first occurrence.
func (d *Database) Extract(text string, chapter int) {
	for _, m := range properName.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if excluded[name] || len(name) <= 2 {
			continue
		}
		pos := strings.Index(text, name)
		d.AddCharacter(name, around(text, pos, snippetBefore, snippetAfter), chapter)
	}
	for _, loc := range story.ExtractLocations(text) {
		if excluded[loc] {
			continue
		}
		d.AddLocation(loc, "Location mentioned in chapter "+strconv.Itoa(chapter))
	}
}

// around slices text from before bytes ahead of pos to after bytes past it,
// widened to rune boundaries.
func around(text string, pos, before, after int) string {
	start := max(0, pos-before)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := min(len(text), pos+after)
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return text[start:end]
}
