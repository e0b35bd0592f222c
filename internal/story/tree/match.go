package tree

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// MatchThreshold is the score a fuzzy match has to beat.
const MatchThreshold = 0.5

// MatchChoice picks the choice the input most likely means. An exact
// case-insensitive match always wins with score 1. Otherwise each choice is
// scored by the better of word overlap and character sequence similarity.
func MatchChoice(input string, choices []Choice) (Choice, float64, bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	for _, c := range choices {
		if strings.ToLower(c.Text) == in {
			return c, 1, true
		}
	}

	var best Choice
	bestScore := 0.0
	for _, c := range choices {
		score := Similarity(in, strings.ToLower(c.Text))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore > MatchThreshold {
		return best, bestScore, true
	}
	return Choice{}, bestScore, false
}

// Similarity is max(word overlap, sequence ratio) of two lower-cased strings.
func Similarity(input, choice string) float64 {
	return max(wordOverlap(input, choice), sequenceRatio(input, choice))
}

// wordOverlap is the share of the choice's distinct words present in input.
func wordOverlap(input, choice string) float64 {
	choiceWords := wordSet(choice)
	if len(choiceWords) == 0 {
		return 0
	}
	inputWords := wordSet(input)
	shared := 0
	for w := range choiceWords {
		if inputWords[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(choiceWords))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func sequenceRatio(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
