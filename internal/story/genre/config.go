// Package genre keeps generated text inside the vocabulary and beat structure of
// a story genre.
package genre

// Required describes the cast and setting a genre expects.
type Required struct {
	Protagonist string   `yaml:"protagonist" json:"protagonist"`
	Antagonist  string   `yaml:"antagonist,omitempty" json:"antagonist,omitempty"`
	Focus       string   `yaml:"focus,omitempty" json:"focus,omitempty"`
	Settings    []string `yaml:"settings" json:"settings"`
}

// ElementRule appends a snippet to Slot whenever any trigger word appears.
type ElementRule struct {
	Slot     string   `yaml:"slot"`
	Triggers []string `yaml:"triggers"`
}

// Config is the static description of one genre. It is shared between
// sessions and must not be mutated after the catalog is built.
type Config struct {
	Name              string            `yaml:"name"`
	Aliases           []string          `yaml:"aliases"`
	Beats             []string          `yaml:"beats"`
	Required          Required          `yaml:"required"`
	ToneKeywords      []string          `yaml:"tone_keywords"`
	ForbiddenKeywords []string          `yaml:"forbidden_keywords"`
	Elements          []string          `yaml:"elements"`
	ElementRules      []ElementRule     `yaml:"element_rules"`
	Fallbacks         map[string]string `yaml:"fallbacks"`
	Opening           string            `yaml:"opening"`
}

// Fallback is the canned line for beat, used when the oracle produced
// nothing usable for a whole turn.
func (c *Config) Fallback(beat string) string {
	if line, ok := c.Fallbacks[beat]; ok {
		return line
	}
	return "The story continues in an unexpected direction..."
}

func detective() *Config {
	return &Config{
		Name:    "detective",
		Aliases: []string{"mystery"},
		Beats: []string{
			"crime_discovered", "investigation_begins", "first_clue_found",
			"suspects_identified", "red_herring", "crucial_clue_discovered",
			"confrontation", "truth_revealed", "resolution",
		},
		Required: Required{
			Protagonist: "detective",
			Antagonist:  "criminal",
			Focus:       "mystery to solve",
			Settings:    []string{"crime scene", "investigation location", "suspect locations"},
		},
		ToneKeywords: []string{
			"investigate", "clue", "evidence", "suspect", "motive",
			"alibi", "witness", "case", "detective", "crime",
			"murder", "victim", "interrogate", "deduce", "solve",
		},
		ForbiddenKeywords: []string{
			"wizard", "magic spell", "alien", "spaceship", "time machine",
			"vampire", "werewolf", "superpower", "fantasy realm",
		},
		Elements: []string{"clues", "suspects", "red_herrings"},
		ElementRules: []ElementRule{
			{Slot: "clues", Triggers: []string{"clue", "evidence"}},
			{Slot: "suspects", Triggers: []string{"suspect", "accused"}},
		},
		Fallbacks: map[string]string{
			"crime_discovered":        "A perplexing mystery presents itself, demanding investigation.",
			"investigation_begins":    "Clues begin to emerge as you investigate further.",
			"first_clue_found":        "An important clue comes to light.",
			"suspects_identified":     "A potential suspect emerges from the shadows.",
			"red_herring":             "The trail leads somewhere unexpected.",
			"crucial_clue_discovered": "A crucial revelation changes everything.",
			"confrontation":           "The truth must be confronted.",
			"resolution":              "The mystery finally unravels.",
		},
	}
}

func romcom() *Config {
	return &Config{
		Name:    "romcom",
		Aliases: []string{"romance"},
		Beats: []string{
			"meet_cute", "initial_attraction", "first_interaction", "growing_closer",
			"comedy_moment", "romantic_tension", "misunderstanding", "separation",
			"realization", "grand_gesture", "reconciliation", "happy_ending",
		},
		Required: Required{
			Protagonist: "romantic_lead",
			Antagonist:  "relationship_conflict",
			Focus:       "romantic_partner",
			Settings:    []string{"romantic location", "workplace", "social setting"},
		},
		ToneKeywords: []string{
			"love", "romance", "heart", "feelings", "attraction",
			"date", "kiss", "relationship", "chemistry", "flirt",
			"awkward", "funny", "charming", "cute", "sweet",
		},
		ForbiddenKeywords: []string{
			"murder", "corpse", "blood", "violence", "kill",
			"horror", "terror", "monster", "death",
		},
		Elements: []string{"romantic_moments", "comedy_beats", "obstacles"},
		ElementRules: []ElementRule{
			{Slot: "romantic_moments", Triggers: []string{"kiss", "heart", "blush", "love"}},
			{Slot: "comedy_beats", Triggers: []string{"laugh", "awkward", "funny"}},
			{Slot: "obstacles", Triggers: []string{"misunderstand", "jealous", "ex-"}},
		},
	}
}

func horror() *Config {
	return &Config{
		Name: "horror",
		Beats: []string{
			"normal_world", "first_warning", "something_wrong", "denial", "escalation",
			"threat_revealed", "fight_or_flight", "darkest_moment", "final_confrontation",
			"aftermath",
		},
		Required: Required{
			Protagonist: "survivor",
			Antagonist:  "threat",
			Focus:       "source of horror",
			Settings:    []string{"isolated location", "haunted place", "dangerous area"},
		},
		ToneKeywords: []string{
			"fear", "terror", "shadow", "darkness", "scream",
			"blood", "creature", "haunted", "evil", "nightmare",
			"death", "monster", "horror", "creepy", "sinister",
		},
		ForbiddenKeywords: []string{
			"romance", "wedding", "date", "love", "cute",
			"funny", "comedy", "laugh",
		},
		Elements: []string{"scares", "threats_encountered", "safe_locations"},
		ElementRules: []ElementRule{
			{Slot: "scares", Triggers: []string{"terror", "fear", "scream", "horror"}},
			{Slot: "threats_encountered", Triggers: []string{"creature", "monster", "figure"}},
		},
		Fallbacks: map[string]string{
			"normal_world":        "An unsettling atmosphere pervades the scene.",
			"first_warning":       "Something isn't quite right...",
			"escalation":          "The horror intensifies.",
			"threat_revealed":     "The true nature of the terror reveals itself.",
			"final_confrontation": "Terror reaches its peak.",
			"aftermath":           "The nightmare's grip begins to loosen.",
		},
	}
}

func adventure() *Config {
	return &Config{
		Name: "adventure",
		Beats: []string{
			"call_to_adventure", "journey_begins", "challenge", "discovery", "climax", "return",
		},
		Required: Required{
			Protagonist: "explorer",
			Antagonist:  "rival",
			Focus:       "lost treasure",
			Settings:    []string{"ancient ruins", "wilderness", "hidden chamber"},
		},
		ToneKeywords: []string{
			"explore", "journey", "treasure", "map", "ancient",
			"temple", "discover", "path", "danger", "quest",
		},
		ForbiddenKeywords: []string{"spaceship", "alien", "wedding", "office meeting"},
		Elements:          []string{"discoveries", "challenges"},
		ElementRules: []ElementRule{
			{Slot: "discoveries", Triggers: []string{"discover", "found"}},
			{Slot: "challenges", Triggers: []string{"trap", "obstacle", "cliff"}},
		},
		Fallbacks: map[string]string{
			"call_to_adventure": "A new adventure beckons.",
			"journey_begins":    "The journey takes an exciting turn.",
			"challenge":         "A formidable obstacle appears.",
			"discovery":         "An amazing discovery awaits.",
			"climax":            "The ultimate challenge presents itself.",
			"return":            "The adventure nears its conclusion.",
		},
		Opening: "The ancient map led you to this hidden temple deep in the Amazon rainforest. Dr. Elena Rodriguez examined the stone door covered in mysterious glyphs. Your guide, Carlos, nervously clutched his machete. 'The locals say this place is cursed,' he whispered. But the artifact you sought, the Emerald Eye, was supposedly inside. One wrong move could trigger the temple's deadly traps.",
	}
}

func thriller() *Config {
	return &Config{
		Name: "thriller",
		Beats: []string{
			"hook", "ticking_clock", "pursuit", "betrayal", "point_of_no_return", "showdown", "escape",
		},
		Required: Required{
			Protagonist: "ordinary person in danger",
			Antagonist:  "conspiracy",
			Focus:       "stolen secret",
			Settings:    []string{"city streets", "safehouse", "transit hub"},
		},
		ToneKeywords: []string{
			"seconds", "chase", "danger", "conspiracy", "gun",
			"escape", "target", "agent", "secret", "threat",
		},
		ForbiddenKeywords: []string{"wizard", "dragon", "fairy", "magic spell"},
		Elements:          []string{"threats", "allies"},
		ElementRules: []ElementRule{
			{Slot: "threats", Triggers: []string{"gun", "follow", "watch", "threat"}},
			{Slot: "allies", Triggers: []string{"trust", "help", "ally"}},
		},
	}
}

func war() *Config {
	return &Config{
		Name: "war",
		Beats: []string{
			"deployment", "first_contact", "under_fire", "loss", "last_stand", "aftermath",
		},
		Required: Required{
			Protagonist: "soldier",
			Antagonist:  "enemy forces",
			Focus:       "mission objective",
			Settings:    []string{"front line", "command post", "occupied town"},
		},
		ToneKeywords: []string{
			"soldier", "squad", "enemy", "orders", "mission",
			"fire", "trench", "sergeant", "radio", "battle",
		},
		ForbiddenKeywords: []string{"wizard", "spaceship", "alien", "romcom"},
		Elements:          []string{"casualties", "orders"},
		ElementRules: []ElementRule{
			{Slot: "casualties", Triggers: []string{"wounded", "fallen", "killed"}},
			{Slot: "orders", Triggers: []string{"orders", "command", "mission"}},
		},
		Opening: "Sergeant Jake Morrison crouched in the muddy trench, artillery fire shaking the ground. His squad of eight had been holding this position for three days. Command just radioed: enemy forces massing for a major assault at dawn. With dwindling ammunition and two wounded soldiers, Jake had to make a call. Hold the line or fall back to regroup.",
	}
}

func drama() *Config {
	return &Config{
		Name:  "drama",
		Beats: []string{"status_quo", "disruption", "struggle", "confrontation", "catharsis", "new_normal"},
		Required: Required{
			Protagonist: "conflicted lead",
			Antagonist:  "the past",
			Focus:       "broken relationship",
			Settings:    []string{"home", "hospital", "workplace"},
		},
		ToneKeywords: []string{
			"family", "sister", "memory", "regret", "forgive",
			"silence", "tears", "truth", "years", "hope",
		},
		ForbiddenKeywords: []string{"spaceship", "alien", "wizard", "zombie"},
		Elements:          []string{"revelations", "reconciliations"},
		ElementRules: []ElementRule{
			{Slot: "revelations", Triggers: []string{"truth", "secret", "admit"}},
			{Slot: "reconciliations", Triggers: []string{"forgive", "sorry", "embrace"}},
		},
	}
}
