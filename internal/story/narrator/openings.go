package narrator

import "strings"

const defaultOpeningGenre = "mystery"

var openings = map[string]string{
	"mystery": "Detective Sarah Chen stood at the crime scene, rain drumming on her umbrella. The victim, Marcus Thornton, investment banker, lay in his locked study, no signs of forced entry. The only clue: a cryptic note reading 'The past always collects its debts.' Sarah's instincts screamed that this murder was connected to an old case, one she thought she'd buried years ago.",

	"detective": "The body was discovered at 6 AM by the janitor. Detective Rodriguez examined the scene: office door locked from inside, windows sealed, victim (tech CEO James Morrison) slumped at his desk. No weapon found. The computer screen still glowed with an unsent email: 'I know what you did. Tonight, everyone knows.' This wasn't suicide. This was murder staged to look like one.",

	"romcom": "Emma grabbed for the last croissant at exactly the same moment as someone else. 'That's mine,' she said, not looking up. 'Actually, I was here first,' a deep voice replied. She glanced up into the most annoyingly handsome face she'd ever seen. Great. Just great. Her ex-boyfriend's best friend, Jake Morrison, the one person in Seattle she'd successfully avoided for six months. Until now.",

	"romance": "The coffee shop meet-cute wasn't supposed to be a disaster. But here was Alex, standing in front of Jordan with latte all over their shirt, apologizing profusely while trying not to notice how gorgeous Jordan looked even while annoyed. 'This is the worst first impression ever,' Alex stammered. Jordan's lips quirked into an almost-smile. 'Second impression might be better. I'm Jordan.' A pause. 'Want to try this again with less coffee?'",

	"horror": "The house on Blackwood Lane had been empty for thirty years. Everyone knew why: the Marrow family disappeared without explanation, leaving dinner on the table, doors unlocked. But Sarah needed cheap rent, and legends didn't pay bills. As she turned the key, the door swung open on its own. Inside, the smell hit her: not decay, but something older. Something wrong. And from upstairs, unmistakably, came the sound of children laughing.",

	"thriller": "The train would arrive in thirty seconds, and Marcus had a choice to make. The briefcase in his hands contained either salvation or damnation; he hadn't dared to look inside. The man who'd handed it to him three hours ago was now dead, a 'suicide' the news would call it. Marcus's hands trembled. Platform security cameras swiveled his direction. Twenty seconds. In his pocket, his phone buzzed: 'Open the case or they kill your daughter.' Fifteen seconds.",

	"drama": "Rachel hadn't spoken to her sister in eight years, but here she was, standing in the hospital hallway, holding a cup of terrible coffee, waiting for news that would change everything. The doctor emerged, expression carefully neutral. 'She's asking for you,' he said. 'But Rachel...' He hesitated. 'She doesn't remember. The accident took the last decade. She thinks it's 2015. She thinks you're still friends.'",
}

// Opening picks the fixed opening for a genre. Genres missing from the table
// use the catalog config's own opening, then the mystery opening.
func Opening(genreName, configOpening string) string {
	if text, ok := openings[strings.ToLower(genreName)]; ok {
		return text
	}
	if configOpening != "" {
		return configOpening
	}
	return openings[defaultOpeningGenre]
}
