package story

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Character tracks a capitalized name seen in the story.
type Character struct {
	FirstMention int `json:"first_mention"`
	Mentions     int `json:"mentions"`
}

var skipWords = map[string]bool{
	"The": true, "A": true, "An": true, "But": true, "And": true, "Or": true,
}

// CandidateNames returns the capitalized words of text longer than two
// characters, with surrounding punctuation stripped.
func CandidateNames(text string) []string {
	var names []string
	for _, word := range strings.Fields(text) {
		first, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(word) <= 2 {
			continue
		}
		clean := strings.Trim(word, `.,!?";:`)
		if clean == "" || skipWords[clean] {
			continue
		}
		names = append(names, clean)
	}
	return names
}

// LocationPattern captures a capitalized place name after a preposition.
var LocationPattern = regexp.MustCompile(`(?:in|at|to|from|near)\s+(?:the\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

func ExtractLocations(text string) []string {
	var out []string
	for _, m := range LocationPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
