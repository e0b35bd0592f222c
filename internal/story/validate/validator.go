// Package validate classifies raw player input before it reaches the narrator.
package validate

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

type Status string

const (
	Rejected Status = "rejected"
	Accepted Status = "accepted"
	Adapted  Status = "adapted"
)

type Severity string

const (
	Normal Severity = "normal"
	High   Severity = "high"
	Dark   Severity = "dark"
)

const (
	MsgTooShort       = "❌ Error: Please provide a meaningful action or choice."
	MsgOutOfCharacter = "❌ Error: Please stay in character. Describe what your character does."
	MsgUnrealistic    = "❌ Error: Too unrealistic. Try something more grounded."
)

// Result is the outcome of validating one action. Severity is empty for rejections.
type Result struct {
	Status   Status   `json:"status"`
	Severity Severity `json:"severity,omitempty"`
	Message  string   `json:"message,omitempty"`
}

func (r Result) Rejected() bool {
	return r.Status == Rejected
}

// Marker is one absurdity concept. It counts once no matter how many of its
// variants appear in the input.
type Marker struct {
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants"`
}

type Rules struct {
	MinLength    int      `yaml:"min_length"`
	MetaPhrases  []string `yaml:"meta_phrases"`
	Absurdity    []Marker `yaml:"absurdity"`
	MaxAbsurdity int      `yaml:"max_absurdity"`
	DarkMarkers  []string `yaml:"dark_markers"`
}

func DefaultRules() Rules {
	return Rules{
		MinLength: 3,
		MetaPhrases: []string{
			"what is", "how do i", "can you", "tell me",
			"explain", "define", "who are you", "what are you",
		},
		Absurdity: []Marker{
			{Name: "transformation", Variants: []string{"turn into", "turns into", "transform into", "transforms into"}},
			{Name: "apotheosis", Variants: []string{"become god", "becomes god", "become a god", "becomes a god", "into a god"}},
			{Name: "interplanetary_teleport", Variants: []string{"teleport to mars", "teleports to mars"}},
			{Name: "universe_destruction", Variants: []string{"destroy the universe", "destroys the universe"}},
			{Name: "time_travel", Variants: []string{"time travel"}},
			{Name: "magic_powers", Variants: []string{"magic powers"}},
		},
		MaxAbsurdity: 2,
		DarkMarkers:  []string{"kill", "murder", "destroy", "attack", "stab", "shoot"},
	}
}

// LoadRules reads a YAML rules file. Fields missing from the file keep their
// default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read validator rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse validator rules %s: %w", path, err)
	}
	return rules, nil
}

type Validator struct {
	rules Rules
}

func New(rules Rules) *Validator {
	return &Validator{rules: rules}
}

func Default() *Validator {
	return New(DefaultRules())
}

// Validate never fails; every input maps to a Result.
func (v *Validator) Validate(raw string) Result {
	input := strings.ToLower(strings.TrimSpace(raw))

	if utf8.RuneCountInString(input) < v.rules.MinLength {
		return Result{Status: Rejected, Message: MsgTooShort}
	}

	if containsAny(input, v.rules.MetaPhrases) {
		return Result{Status: Rejected, Message: MsgOutOfCharacter}
	}

	absurdity := v.AbsurdityLevel(input)
	switch {
	case absurdity > v.rules.MaxAbsurdity:
		return Result{Status: Rejected, Message: MsgUnrealistic}
	case absurdity > 0:
		return Result{Status: Adapted, Severity: High}
	}

	if containsAny(input, v.rules.DarkMarkers) {
		return Result{Status: Adapted, Severity: Dark}
	}

	return Result{Status: Accepted, Severity: Normal}
}

// AbsurdityLevel counts the distinct absurdity markers present in input.
func (v *Validator) AbsurdityLevel(input string) int {
	input = strings.ToLower(input)
	level := 0
	for _, marker := range v.rules.Absurdity {
		if containsAny(input, marker.Variants) {
			level++
		}
	}
	return level
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
