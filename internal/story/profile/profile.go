// Package profile tracks the personality a player reveals through their actions.
package profile

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

const (
	minScore = -100
	maxScore = 100
)

// Scores are the five personality axes, each within [-100, 100].
type Scores struct {
	Morality   int
	Risk       int
	Empathy    int
	Aggression int
	Curiosity  int
}

func (s Scores) Get(axis Axis) int {
	switch axis {
	case Morality:
		return s.Morality
	case Risk:
		return s.Risk
	case Empathy:
		return s.Empathy
	case Aggression:
		return s.Aggression
	case Curiosity:
		return s.Curiosity
	}
	return 0
}

func (s *Scores) add(axis Axis, delta int) {
	var field *int
	switch axis {
	case Morality:
		field = &s.Morality
	case Risk:
		field = &s.Risk
	case Empathy:
		field = &s.Empathy
	case Aggression:
		field = &s.Aggression
	case Curiosity:
		field = &s.Curiosity
	default:
		return
	}
	*field = clamp(*field + delta)
}

func clamp(v int) int {
	return max(minScore, min(maxScore, v))
}

// Action is one analyzed entry of the action log.
type Action struct {
	Action string          `json:"action"`
	Traits map[Axis]string `json:"traits"`
	Index  int             `json:"timestamp"`
}

type Profile struct {
	Scores

	Choices    map[string]int
	Actions    []Action
	Keywords   map[string]int
	Archetype  string
	Confidence float64

	actionCount int
	analyzer    *Analyzer
}

// New returns an empty profile. A nil analyzer selects DefaultAnalyzer.
func New(analyzer *Analyzer) *Profile {
	if analyzer == nil {
		analyzer = DefaultAnalyzer()
	}
	return &Profile{
		Choices:   make(map[string]int),
		Keywords:  make(map[string]int),
		Archetype: Developing,
		analyzer:  analyzer,
	}
}

// ActionCount is the number of actions analyzed, including those restored by FromMap.
func (p *Profile) ActionCount() int {
	return p.actionCount
}

// Clone returns a deep copy sharing only the analyzer.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Choices = maps.Clone(p.Choices)
	c.Keywords = maps.Clone(p.Keywords)
	c.Actions = slices.Clone(p.Actions)
	return &c
}

// Analyze updates the axes from one action and returns the detected trait per axis.
func (p *Profile) Analyze(action string) map[Axis]string {
	lower := strings.ToLower(action)
	traits := make(map[Axis]string)

	for _, rule := range p.analyzer.Rules {
		switch {
		case containsAny(lower, rule.Positive):
			p.Scores.add(rule.Axis, rule.PositiveStep)
			traits[rule.Axis] = rule.PositiveLabel
			p.Choices[rule.PositiveTag]++
		case containsAny(lower, rule.Negative):
			p.Scores.add(rule.Axis, rule.NegativeStep)
			traits[rule.Axis] = rule.NegativeLabel
			p.Choices[rule.NegativeTag]++
		}
	}

	for _, word := range strings.Fields(lower) {
		if len(word) > 4 {
			p.Keywords[word]++
		}
	}

	p.Actions = append(p.Actions, Action{Action: action, Traits: traits, Index: p.actionCount})
	p.actionCount++
	p.Archetype, p.Confidence = p.analyzer.Classify(p.Scores, p.actionCount)

	return traits
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// NarrativeGuidance renders steering text for the narrator from the current axes.
func (p *Profile) NarrativeGuidance() string {
	var b strings.Builder
	b.WriteString("PLAYER PERSONALITY INSIGHTS:\n")
	fmt.Fprintf(&b, "The player has shown themselves to be a '%s' character.\n", p.Archetype)

	switch {
	case p.Morality > 40:
		b.WriteString("They consistently make moral, heroic choices. Present opportunities for noble sacrifice and moral dilemmas.\n")
	case p.Morality < -40:
		b.WriteString("They embrace dark, ruthless choices. Challenge them with consequences and moral complexity.\n")
	default:
		b.WriteString("They walk a morally gray path. Present nuanced situations without clear right/wrong.\n")
	}

	switch {
	case p.Risk > 40:
		b.WriteString("They're bold and reckless. Reward their daring with dramatic outcomes (good and bad).\n")
	case p.Risk < -40:
		b.WriteString("They're methodical and cautious. Provide detailed environmental clues and planning opportunities.\n")
	}

	switch {
	case p.Empathy > 40:
		b.WriteString("They care deeply about others. Include emotional character moments and relationships.\n")
	case p.Empathy < -40:
		b.WriteString("They're pragmatic and cold. Focus on logical outcomes over emotional appeals.\n")
	}

	switch {
	case p.Aggression > 40:
		b.WriteString("They solve problems through force. Provide action scenes but show realistic consequences.\n")
	case p.Aggression < -40:
		b.WriteString("They prefer negotiation. Create opportunities for clever dialogue and peaceful resolution.\n")
	}

	switch {
	case p.Curiosity > 40:
		b.WriteString("They're highly investigative. Reward exploration with hidden secrets and lore.\n")
	case p.Curiosity < -40:
		b.WriteString("They focus on main objectives. Keep plot straightforward and action-oriented.\n")
	}

	fmt.Fprintf(&b, "\nAdapt the narrative tone, NPC reactions, and story options to match this '%s' playstyle.", p.Archetype)
	return b.String()
}

// TopChoices returns up to n choice tags ordered by count, ties by name.
func (p *Profile) TopChoices(n int) []ChoiceCount {
	out := make([]ChoiceCount, 0, len(p.Choices))
	for tag, count := range p.Choices {
		out = append(out, ChoiceCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type ChoiceCount struct {
	Tag   string
	Count int
}

// ToMap returns the persisted form of the profile.
func (p *Profile) ToMap() map[string]any {
	choices := make(map[string]int, len(p.Choices))
	for k, v := range p.Choices {
		choices[k] = v
	}
	return map[string]any{
		"morality_score":       p.Morality,
		"risk_taking":          p.Risk,
		"empathy":              p.Empathy,
		"aggression":           p.Aggression,
		"curiosity":            p.Curiosity,
		"archetype":            p.Archetype,
		"archetype_confidence": p.Confidence,
		"choices":              choices,
		"action_count":         p.actionCount,
	}
}

// FromMap restores a profile written by ToMap. Numbers may arrive as any
// numeric type, which covers maps decoded from JSON.
func (p *Profile) FromMap(data map[string]any) {
	p.Morality = clamp(intValue(data["morality_score"]))
	p.Risk = clamp(intValue(data["risk_taking"]))
	p.Empathy = clamp(intValue(data["empathy"]))
	p.Aggression = clamp(intValue(data["aggression"]))
	p.Curiosity = clamp(intValue(data["curiosity"]))
	p.actionCount = intValue(data["action_count"])

	p.Archetype = "Unknown"
	if s, ok := data["archetype"].(string); ok {
		p.Archetype = s
	}
	p.Confidence = floatValue(data["archetype_confidence"])

	p.Choices = make(map[string]int)
	switch choices := data["choices"].(type) {
	case map[string]int:
		for k, v := range choices {
			p.Choices[k] = v
		}
	case map[string]any:
		for k, v := range choices {
			p.Choices[k] = intValue(v)
		}
	}
	if p.Keywords == nil {
		p.Keywords = make(map[string]int)
	}
	if p.analyzer == nil {
		p.analyzer = DefaultAnalyzer()
	}
}

func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	p.FromMap(m)
	return nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
