// Package chapter splits a running story into chapters and keeps a
// searchable database of the characters, places and events it mentions.
package chapter

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinActions is the fewest actions a chapter holds before it may end.
	MinActions = 3
	// forcedBreak ends a chapter regardless of the text.
	forcedBreak = 8
	// transitionBreak ends a chapter when the recent text reads like a time skip.
	transitionBreak = 5

	ForcedTransition = "After a series of events..."
	TimeTransition   = "Time passes..."
)

var transitionMarkers = []string{
	"later", "meanwhile", "the next day", "hours passed",
	"after that", "eventually", "finally", "suddenly",
}

type Chapter struct {
	Number  int       `json:"number"`
	Title   string    `json:"title"`
	Content []string  `json:"content"`
	Started time.Time `json:"started"`
}

// Break announces a chapter that just started.
type Break struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	Transition string `json:"transition"`
}

// ShouldBreak decides whether the story has earned a new chapter, given the
// story history and the accepted actions since the last break. The second
// value is the transition line to show.
func ShouldBreak(history []string, actionsSince int) (bool, string) {
	if actionsSince < MinActions {
		return false, ""
	}
	if actionsSince >= forcedBreak {
		return true, ForcedTransition
	}
	if len(history) > 2 {
		history = history[len(history)-2:]
	}
	recent := strings.ToLower(strings.Join(history, " "))
	for _, marker := range transitionMarkers {
		if strings.Contains(recent, marker) && actionsSince >= transitionBreak {
			return true, TimeTransition
		}
	}
	return false, ""
}

func Title(n int) string {
	switch {
	case n == 1:
		return "Chapter 1: The Beginning"
	case n < 4:
		return fmt.Sprintf("Chapter %d: Developments", n)
	case n < 7:
		return fmt.Sprintf("Chapter %d: Complications", n)
	default:
		return fmt.Sprintf("Chapter %d: The Conclusion", n)
	}
}

// Book is the chapter view of one session. It is not safe for concurrent use.
type Book struct {
	Chapters     []*Chapter `json:"chapters"`
	Current      int        `json:"current_chapter"`
	ActionsSince int        `json:"actions_since_chapter"`
	DB           *Database  `json:"database"`
}

// NewBook opens chapter one with the story's first text.
func NewBook(opening string) *Book {
	b := &Book{
		Chapters: []*Chapter{newChapter(1)},
		Current:  1,
		DB:       NewDatabase(),
	}
	b.CurrentChapter().Content = append(b.CurrentChapter().Content, opening)
	b.DB.Extract(opening, 1)
	return b
}

func newChapter(n int) *Chapter {
	return &Chapter{Number: n, Title: Title(n), Content: []string{}, Started: time.Now()}
}

func (b *Book) CurrentChapter() *Chapter {
	return b.Chapters[b.Current-1]
}

// AddContinuation files narration that no action produced.
func (b *Book) AddContinuation(text string) {
	b.CurrentChapter().Content = append(b.CurrentChapter().Content, text)
	b.DB.Extract(text, b.Current)
}

// AddTurn files an accepted action and its narration, then starts a new
// chapter if history says it is time. The returned Break is nil otherwise.
func (b *Book) AddTurn(action, text string, history []string) *Break {
	ch := b.CurrentChapter()
	ch.Content = append(ch.Content, "[USER ACTION: "+action+"]", text)
	b.ActionsSince++
	b.DB.Extract(text, b.Current)
	b.DB.AddEvent(action, b.Current)

	ok, transition := ShouldBreak(history, b.ActionsSince)
	if !ok {
		return nil
	}
	b.Current++
	b.ActionsSince = 0
	next := newChapter(b.Current)
	b.Chapters = append(b.Chapters, next)
	return &Break{Number: next.Number, Title: next.Title, Transition: transition}
}
