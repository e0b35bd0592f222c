package tree

import (
	"sort"
	"strings"
)

type genreSeed struct {
	title    string
	opening  string
	defaults []string
}

var seeds = map[string]genreSeed{
	"detective": {
		title:    "The Thornton Case",
		opening:  "Detective Sarah Chen stood at the crime scene, rain drumming on her umbrella. The victim, Marcus Thornton, investment banker, lay in his locked study, no signs of forced entry. The only clue: a cryptic note reading 'The past always collects its debts.' Sarah's instincts screamed that this murder was connected to an old case, one she thought she'd buried years ago.",
		defaults: []string{"Examine the body", "Search for clues", "Question witnesses"},
	},
	"war": {
		title:    "Hold the Line",
		opening:  "Sergeant Jake Morrison crouched in the muddy trench, artillery fire shaking the ground. His squad of eight had been holding this position for three days. Command just radioed: enemy forces massing for a major assault at dawn. With dwindling ammunition and two wounded soldiers, Jake had to make a call: hold the line or fall back to regroup.",
		defaults: []string{"Hold the position", "Call for backup", "Scout enemy lines"},
	},
	"adventure": {
		title:    "The Emerald Eye",
		opening:  "The ancient map led you to this hidden temple deep in the Amazon rainforest. Dr. Elena Rodriguez examined the stone door covered in mysterious glyphs. Your guide, Carlos, nervously clutched his machete. 'The locals say this place is cursed,' he whispered. But the artifact you sought, the Emerald Eye, was supposedly inside. One wrong move could trigger the temple's deadly traps.",
		defaults: []string{"Enter the temple", "Study the glyphs", "Search the perimeter"},
	},
	"horror": {
		title:    "The Abandoned Asylum",
		opening:  "The asylum had been abandoned for thirty years, but something was wrong. Emma clutched her flashlight as she stepped into the main hall. The urban exploration vlog had seemed like a good idea yesterday. Now, with her phone dead and her friends missing, she heard footsteps echoing from the floor above. The door behind her slammed shut. Someone, or something, didn't want her to leave.",
		defaults: []string{"Go upstairs", "Find another exit", "Hide and wait"},
	},
	"thriller": {
		title:    "The USB Drive",
		opening:  "The USB drive in your pocket contained evidence that could bring down a senator. Journalist Alex Carter had three hours before the deadline to publish. But the black SUV that had been following you just pulled up. Two men in suits stepped out. Your editor wasn't answering calls. You had to decide: run, hide, or confront them directly.",
		defaults: []string{"Run away", "Confront them", "Call the police"},
	},
}

var genreAliases = map[string]string{
	"mystery": "detective",
}

// startTypes label the three opening choices in order.
var startTypes = []string{"action", "investigate", "social"}

// resolveGenre maps a requested genre to a seeded one.
func resolveGenre(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := genreAliases[name]; ok {
		name = alias
	}
	_, ok := seeds[name]
	return name, ok
}

// Genres lists the genres a tree can be built for.
func Genres() []string {
	out := make([]string, 0, len(seeds))
	for name := range seeds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
