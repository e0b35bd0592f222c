package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeUpdatesAllMatchingAxes(t *testing.T) {
	p := New(nil)

	traits := p.Analyze("I ATTACK the guard")

	assert.Equal(t, map[Axis]string{Risk: "bold", Aggression: "aggressive"}, traits)
	assert.Equal(t, 8, p.Risk)
	assert.Equal(t, 12, p.Aggression)
	assert.Equal(t, 0, p.Morality)
	assert.Equal(t, 1, p.Choices["risk_bold"])
	assert.Equal(t, 1, p.Choices["aggression_high"])
}

func TestAnalyzePositiveListWins(t *testing.T) {
	p := New(nil)
	traits := p.Analyze("I help, then I lie")
	assert.Equal(t, "good", traits[Morality])
	assert.Equal(t, 10, p.Morality)
	assert.Zero(t, p.Choices["moral_evil"])
}

func TestAnalyzeClampsScores(t *testing.T) {
	p := New(nil)
	for range 10 {
		p.Analyze("I kill him")
	}
	assert.Equal(t, -100, p.Morality)
	assert.Equal(t, 10, p.Choices["moral_evil"])
	assert.Equal(t, 10, p.ActionCount())
}

func TestArchetypeDevelopingBelowThreeActions(t *testing.T) {
	p := New(nil)
	assert.Equal(t, Developing, p.Archetype)

	p.Analyze("I rush to help with kind words")
	p.Analyze("I rush to help with kind words")
	assert.Equal(t, Developing, p.Archetype)
	assert.Zero(t, p.Confidence)
}

func TestArchetypeProgression(t *testing.T) {
	p := New(nil)
	for range 3 {
		p.Analyze("I rush to help with kind words")
	}
	// Morality sits at exactly 30, which no rule accepts.
	assert.Equal(t, ComplexCharacter, p.Archetype)
	assert.Equal(t, 0.5, p.Confidence)

	p.Analyze("I rush to help with kind words")
	assert.Equal(t, "Hero", p.Archetype)
	assert.Equal(t, 0.9, p.Confidence)
	assert.Equal(t, 4, p.Keywords["words"])
}

func TestArchetypeWildcardWhenNeutral(t *testing.T) {
	p := New(nil)
	for range 3 {
		p.Analyze("I look around")
	}
	assert.Equal(t, "Wildcard", p.Archetype)
	assert.Equal(t, 0.6, p.Confidence)
}

func TestClassifyPrefersHigherConfidenceThenTableOrder(t *testing.T) {
	a := DefaultAnalyzer()

	// Warrior (0.8) and Anti-Hero (0.75) both match.
	name, conf := a.Classify(Scores{Aggression: 50, Risk: 40, Empathy: 20}, 5)
	assert.Equal(t, "Warrior", name)
	assert.Equal(t, 0.8, conf)

	// Detective (0.85) and Scholar (0.8) both match.
	name, _ = a.Classify(Scores{Curiosity: 50, Risk: -30, Morality: 20, Aggression: -10}, 5)
	assert.Equal(t, "Detective", name)
}

func TestNarrativeGuidance(t *testing.T) {
	p := New(nil)
	g := p.NarrativeGuidance()
	assert.Contains(t, g, "PLAYER PERSONALITY INSIGHTS:")
	assert.Contains(t, g, "a 'Developing' character")
	assert.Contains(t, g, "They walk a morally gray path.")
	assert.NotContains(t, g, "bold and reckless")

	p.Scores = Scores{Morality: 50, Risk: 45, Aggression: -50, Curiosity: -60}
	p.Archetype = "Hero"
	g = p.NarrativeGuidance()
	assert.Contains(t, g, "They consistently make moral, heroic choices.")
	assert.Contains(t, g, "They're bold and reckless.")
	assert.Contains(t, g, "They prefer negotiation.")
	assert.Contains(t, g, "They focus on main objectives.")
	assert.NotContains(t, g, "morally gray")
	assert.Contains(t, g, "match this 'Hero' playstyle.")
}

func TestMapRoundTrip(t *testing.T) {
	p := New(nil)
	for _, a := range []string{"I attack", "I help them", "I search the room", "I wait"} {
		p.Analyze(a)
	}

	restored := New(nil)
	restored.FromMap(p.ToMap())

	assert.Equal(t, p.Scores, restored.Scores)
	assert.Equal(t, p.Archetype, restored.Archetype)
	assert.Equal(t, p.Confidence, restored.Confidence)
	assert.Equal(t, p.Choices, restored.Choices)
	assert.Equal(t, p.ActionCount(), restored.ActionCount())
}

func TestJSONRoundTrip(t *testing.T) {
	p := New(nil)
	p.Analyze("I carefully examine the letter")
	p.Analyze("I carefully examine the letter")
	p.Analyze("I carefully examine the letter")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(data, &keys))
	for _, k := range []string{"morality_score", "risk_taking", "empathy", "aggression", "curiosity", "archetype", "archetype_confidence", "choices", "action_count"} {
		assert.Contains(t, keys, k)
	}

	restored := New(nil)
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, p.Scores, restored.Scores)
	assert.Equal(t, p.Choices, restored.Choices)
	assert.Equal(t, p.Archetype, restored.Archetype)
	assert.Equal(t, 3, restored.ActionCount())
}

func TestSummary(t *testing.T) {
	p := New(nil)
	p.Analyze("I attack")
	p.Analyze("I attack")

	s := p.Summary()
	assert.Contains(t, s, "PLAYER PERSONALITY PROFILE")
	assert.Contains(t, s, "Archetype: Developing (0% confidence)")
	assert.Contains(t, s, "Actions Analyzed: 2")
	assert.Contains(t, s, "Aggression High: 2x")
	assert.Contains(t, s, "Risk Bold: 2x")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Very virtuous", Label(60, "ruthless", "virtuous"))
	assert.Equal(t, "Virtuous", Label(30, "ruthless", "virtuous"))
	assert.Equal(t, "Balanced", Label(0, "ruthless", "virtuous"))
	assert.Equal(t, "Ruthless", Label(-30, "ruthless", "virtuous"))
	assert.Equal(t, "Very ruthless", Label(-50, "ruthless", "virtuous"))
}

func TestCloneIsIndependent(t *testing.T) {
	p := New(nil)
	p.Analyze("I help the stranger")

	c := p.Clone()
	c.Analyze("I attack and explore the ruins")

	assert.Equal(t, 1, p.ActionCount())
	assert.Len(t, p.Actions, 1)
	assert.NotContains(t, p.Choices, "aggression_high")
	assert.Equal(t, 1, c.Choices["aggression_high"])
	assert.Equal(t, 2, c.ActionCount())
	assert.Len(t, c.Actions, 2)
}
