package narrator

import (
	"fmt"

	"adaptivestory/internal/story/validate"
)

// Framework is the list of narrative principles prepended to every turn
// instruction.
const Framework = `
NARRATIVE PRINCIPLES:
1. SHOW, DON'T TELL - Use vivid actions, dialogue, and sensory details instead of bland exposition
2. SENSORY IMMERSION - Include sights, sounds, smells, textures, tastes where appropriate
3. CHARACTER DEPTH - Reveal personality through behavior, dialogue, and inner conflict
4. RISING TENSION - Each scene should escalate stakes, reveal information, or deepen mystery
5. CONCRETE SPECIFICS - Use precise, tangible descriptions not vague generalities
6. NATURAL DIALOGUE - Characters speak distinctly with subtext and personality
7. CAUSE AND EFFECT - Every action has realistic, proportional consequences
8. VARIED PACING - Mix action with reflection, vary sentence rhythms
9. EMOTIONAL RESONANCE - Make readers feel what characters feel
10. MEANINGFUL DETAILS - Every description should serve character, plot, or atmosphere
`

const darkDirective = `
A dark, consequential action has occurred. Write what happens next with:
- Visceral, immediate sensory details
- Authentic emotional reactions from witnesses
- Realistic physical and psychological consequences
- Moral weight and character development
- Build toward justice, redemption, or tragedy
`

const highDirective = `
The character attempts something unusual. Show:
- Grounded, realistic outcome (may surprise them)
- Creative problem-solving or unexpected twists
- Character's reaction to reality vs. expectation
- How this moves the plot forward
`

const normalDirective = `
Continue the narrative naturally with:
- Immediate consequence of the action
- Character revelation through behavior/dialogue
- New information or complications
- Vivid sensory details and varied pacing
- Build tension and engagement
`

// Instruction builds the system block for a turn from the action severity,
// the player's narrative guidance and the current genre beat.
func Instruction(severity validate.Severity, guidance, beat string) string {
	base := fmt.Sprintf("%s\n\n%s\n\nCurrent narrative stage: %s\n", Framework, guidance, beat)
	switch severity {
	case validate.Dark:
		return base + darkDirective
	case validate.High:
		return base + highDirective
	default:
		return base + normalDirective
	}
}
