package profile

// Axis names one personality dimension.
type Axis string

const (
	Morality   Axis = "morality"
	Risk       Axis = "risk"
	Empathy    Axis = "empathy"
	Aggression Axis = "aggression"
	Curiosity  Axis = "curiosity"
)

// Axes lists every axis in evaluation order.
var Axes = []Axis{Morality, Risk, Empathy, Aggression, Curiosity}

// AxisRule moves one axis when the action contains a keyword from either list.
// The positive list is checked first and the first match wins for the call.
type AxisRule struct {
	Axis Axis `yaml:"axis"`

	Positive      []string `yaml:"positive"`
	PositiveStep  int      `yaml:"positive_step"`
	PositiveLabel string   `yaml:"positive_label"`
	PositiveTag   string   `yaml:"positive_tag"`

	Negative      []string `yaml:"negative"`
	NegativeStep  int      `yaml:"negative_step"`
	NegativeLabel string   `yaml:"negative_label"`
	NegativeTag   string   `yaml:"negative_tag"`
}

// ArchetypeRule is a conjunction of axis predicates with a fixed confidence.
type ArchetypeRule struct {
	Name       string
	Confidence float64
	Match      func(Scores) bool
}

// Analyzer holds the keyword and archetype tables used by Profile.
type Analyzer struct {
	Rules      []AxisRule
	Archetypes []ArchetypeRule

	// MinActions is the number of analyzed actions needed before an archetype
	// other than Developing is assigned.
	MinActions int
}

const (
	Developing       = "Developing"
	ComplexCharacter = "Complex Character"
)

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func DefaultAnalyzer() *Analyzer {
	return &Analyzer{
		MinActions: 3,
		Rules: []AxisRule{
			{
				Axis:     Morality,
				Positive: []string{"help", "save", "protect", "comfort", "heal", "rescue", "donate", "honest"},
				Negative: []string{"steal", "kill", "murder", "betray", "lie", "cheat", "harm", "destroy"},

				PositiveStep: 10, PositiveLabel: "good", PositiveTag: "moral_good",
				NegativeStep: -15, NegativeLabel: "evil", NegativeTag: "moral_evil",
			},
			{
				Axis:     Risk,
				Positive: []string{"rush", "immediately", "without", "charge", "attack", "confront", "dare"},
				Negative: []string{"carefully", "slowly", "observe", "wait", "hide", "avoid", "plan"},

				PositiveStep: 8, PositiveLabel: "bold", PositiveTag: "risk_bold",
				NegativeStep: -8, NegativeLabel: "cautious", NegativeTag: "risk_cautious",
			},
			{
				Axis:     Empathy,
				Positive: []string{"comfort", "listen", "understand", "support", "care", "gentle", "kind"},
				Negative: []string{"ignore", "dismiss", "coldly", "indifferent", "uncaring", "harsh"},

				PositiveStep: 10, PositiveLabel: "compassionate", PositiveTag: "empathy_high",
				NegativeStep: -10, NegativeLabel: "cold", NegativeTag: "empathy_low",
			},
			{
				Axis:     Aggression,
				Positive: []string{"attack", "fight", "punch", "hit", "threaten", "yell", "demand"},
				Negative: []string{"negotiate", "talk", "discuss", "reason", "compromise", "calm"},

				PositiveStep: 12, PositiveLabel: "aggressive", PositiveTag: "aggression_high",
				NegativeStep: -8, NegativeLabel: "diplomatic", NegativeTag: "aggression_low",
			},
			{
				Axis:     Curiosity,
				Positive: []string{"investigate", "examine", "search", "explore", "ask", "question", "study"},
				Negative: []string{"leave", "walk away", "avoid", "skip", "ignore the"},

				PositiveStep: 10, PositiveLabel: "investigative", PositiveTag: "curiosity_high",
				NegativeStep: -8, NegativeLabel: "avoidant", NegativeTag: "curiosity_low",
			},
		},
		Archetypes: []ArchetypeRule{
			{"Hero", 0.9, func(s Scores) bool {
				return s.Morality > 30 && s.Risk > 20 && s.Empathy > 20
			}},
			{"Villain", 0.9, func(s Scores) bool {
				return s.Morality < -30 && s.Aggression > 30 && s.Empathy < -20
			}},
			{"Detective", 0.85, func(s Scores) bool {
				return s.Curiosity > 40 && s.Risk < 0 && s.Morality > 10
			}},
			{"Rogue", 0.8, func(s Scores) bool {
				return abs(s.Morality) < 30 && s.Risk > 30 && s.Curiosity > 20
			}},
			{"Diplomat", 0.85, func(s Scores) bool {
				return s.Empathy > 30 && s.Aggression < -20 && s.Risk < 0
			}},
			{"Warrior", 0.8, func(s Scores) bool {
				return s.Aggression > 40 && s.Risk > 30
			}},
			{"Anti-Hero", 0.75, func(s Scores) bool {
				return abs(s.Morality) < 40 && s.Aggression > 20 && s.Empathy > 10
			}},
			{"Scholar", 0.8, func(s Scores) bool {
				return s.Curiosity > 40 && s.Risk < -20 && s.Aggression < 0
			}},
			{"Survivor", 0.75, func(s Scores) bool {
				return s.Risk < -30 && s.Curiosity < 0 && abs(s.Morality) < 20
			}},
			{"Wildcard", 0.6, func(s Scores) bool {
				for _, axis := range Axes {
					if abs(s.Get(axis)) >= 30 {
						return false
					}
				}
				return true
			}},
		},
	}
}

// Classify returns the archetype for the given scores and action count.
// Ties on confidence keep table order.
func (a *Analyzer) Classify(s Scores, actions int) (string, float64) {
	if actions < a.MinActions {
		return Developing, 0
	}

	best := -1
	for i, rule := range a.Archetypes {
		if !rule.Match(s) {
			continue
		}
		if best < 0 || rule.Confidence > a.Archetypes[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return ComplexCharacter, 0.5
	}
	return a.Archetypes[best].Name, a.Archetypes[best].Confidence
}
