// Package mcp serves the story engine as Model Context Protocol tools and
// provides a typed client for them.
package mcp

import "adaptivestory/internal/story/chapter"

const (
	ToolStartStory    = "start_story"
	ToolTakeAction    = "take_action"
	ToolContinueStory = "continue_story"
	ToolStorySummary  = "story_summary"
	ToolPlayerProfile = "player_profile"
	ToolGenreStatus   = "genre_status"
)

type StartArgs struct {
	Genre  string `json:"genre,omitempty" jsonschema:"story genre such as detective, horror, romcom, adventure, thriller, war or drama"`
	Prompt string `json:"prompt,omitempty" jsonschema:"custom opening that replaces the genre's default"`
}

type SessionArgs struct {
	SessionID string `json:"session_id" jsonschema:"id returned by start_story"`
}

type ActionArgs struct {
	SessionID string `json:"session_id" jsonschema:"id returned by start_story"`
	Action    string `json:"action" jsonschema:"what the player's character does, in the first person"`
}

// TurnResult is the JSON body of start_story, take_action and
// continue_story results.
type TurnResult struct {
	SessionID  string         `json:"session_id"`
	Status     string         `json:"status"`
	Text       string         `json:"text,omitempty"`
	Message    string         `json:"message,omitempty"`
	Beat       string         `json:"beat"`
	GenreBeat  string         `json:"genre_beat,omitempty"`
	Chapter    int            `json:"chapter"`
	NewChapter *chapter.Break `json:"new_chapter,omitempty"`
}

// Rejected reports whether the action was refused by the validator.
func (r TurnResult) Rejected() bool {
	return r.Status == "rejected"
}
