package profile

import (
	"fmt"
	"math"
	"strings"
)

var divider = strings.Repeat("━", 43)

// Label maps a score onto a five-step scale between two trait names.
func Label(score int, negative, positive string) string {
	switch {
	case score > 50:
		return "Very " + positive
	case score > 20:
		return capitalize(positive)
	case score > -20:
		return "Balanced"
	case score > -50:
		return capitalize(negative)
	default:
		return "Very " + negative
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func titleTag(tag string) string {
	words := strings.Split(tag, "_")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func gauge(score int) string {
	return strings.Repeat("▓", (score+100)/10)
}

// Summary is the human-readable profile report.
func (p *Profile) Summary() string {
	var b strings.Builder
	section := func(title string) {
		fmt.Fprintf(&b, "%s\n  %s\n%s\n\n", divider, title, divider)
	}
	trait := func(icon, name string, score int, negative, positive string) {
		fmt.Fprintf(&b, "%s %-13s %s\n    %s %+d\n\n", icon, name+":", Label(score, negative, positive), gauge(score), score)
	}

	b.WriteString("\n")
	section("PLAYER PERSONALITY PROFILE")
	fmt.Fprintf(&b, "🎭 Archetype: %s (%d%% confidence)\n", p.Archetype, int(math.Round(p.Confidence*100)))
	fmt.Fprintf(&b, "📊 Actions Analyzed: %d\n\n", p.actionCount)

	section("PERSONALITY TRAITS")
	trait("⚖️ ", "Morality", p.Morality, "ruthless", "virtuous")
	trait("🎲", "Risk-Taking", p.Risk, "cautious", "bold")
	trait("💙", "Empathy", p.Empathy, "cold", "compassionate")
	trait("⚔️ ", "Aggression", p.Aggression, "diplomatic", "aggressive")
	trait("🔍", "Curiosity", p.Curiosity, "avoidant", "investigative")

	fmt.Fprintf(&b, "%s\n  DECISION PATTERNS\n%s\n", divider, divider)
	for _, c := range p.TopChoices(5) {
		fmt.Fprintf(&b, "  • %s: %dx\n", titleTag(c.Tag), c.Count)
	}
	fmt.Fprintf(&b, "\n%s\n", divider)

	return b.String()
}
