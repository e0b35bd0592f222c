package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"adaptivestory/internal/mcp"
	"adaptivestory/internal/story"
	"adaptivestory/internal/story/chapter"
	"adaptivestory/internal/story/narrator"
	"adaptivestory/internal/story/tree"
)

// Report names a read-only view of the running story.
type Report string

const (
	ReportSummary  Report = "summary"
	ReportProfile  Report = "profile"
	ReportGenre    Report = "genre"
	ReportChapters Report = "chapters"
)

// ErrNoReport is returned by players that cannot produce a report.
var ErrNoReport = errors.New("not available for this story")

// Turn is what the screen shows after one step of the story.
type Turn struct {
	Text   string
	Notice string
	Ended  bool
}

// Player is one way of playing a story from the terminal.
type Player interface {
	Start(ctx context.Context) (Turn, error)
	Act(ctx context.Context, input string) (Turn, error)
	Report(ctx context.Context, r Report) (string, error)
	Close() error
}

func isContinue(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "continue")
}

func breakNotice(b *chapter.Break) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("📖 %s (%s)", b.Title, b.Transition)
}

// EnginePlayer generates the story locally.
type EnginePlayer struct {
	engine *narrator.Engine
	genre  string
	prompt string

	session *story.Session
	book    *chapter.Book
}

func NewEnginePlayer(engine *narrator.Engine, genre, prompt string) *EnginePlayer {
	return &EnginePlayer{engine: engine, genre: genre, prompt: prompt}
}

func (p *EnginePlayer) Start(ctx context.Context) (Turn, error) {
	s, text, err := p.engine.StartStory(ctx, p.genre, p.prompt)
	if err != nil {
		return Turn{}, err
	}
	p.session = s
	p.book = chapter.NewBook(text)
	return Turn{Text: text, Notice: chapter.Title(p.book.Current)}, nil
}

func (p *EnginePlayer) Act(ctx context.Context, input string) (Turn, error) {
	if p.session == nil {
		return Turn{}, errors.New("story has not started")
	}
	if isContinue(input) {
		text, err := p.engine.Continue(ctx, p.session)
		if err != nil {
			return Turn{}, err
		}
		p.book.AddContinuation(text)
		return Turn{Text: text}, nil
	}

	out, err := p.engine.ProcessUserAction(ctx, p.session, input)
	if err != nil {
		return Turn{}, err
	}
	if out.Rejected() {
		return Turn{Notice: out.Message}, nil
	}
	br := p.book.AddTurn(input, out.Text, p.session.History.GetEntries())
	return Turn{Text: out.Text, Notice: breakNotice(br)}, nil
}

func (p *EnginePlayer) Report(_ context.Context, r Report) (string, error) {
	if p.session == nil {
		return "", errors.New("story has not started")
	}
	switch r {
	case ReportSummary:
		return narrator.Summary(p.session), nil
	case ReportProfile:
		return p.session.Profile.Summary(), nil
	case ReportGenre:
		if p.session.GenreState == nil {
			return "", ErrNoReport
		}
		st := p.session.GenreState.Status()
		return fmt.Sprintf("Genre: %s\nBeat: %s (%s)\nViolations: %d",
			st.Genre, st.CurrentBeat, st.BeatProgress, len(st.Violations)), nil
	case ReportChapters:
		lines := make([]string, 0, len(p.book.Chapters))
		for _, c := range p.book.Chapters {
			lines = append(lines, fmt.Sprintf("%s (%d segments)", c.Title, len(c.Content)))
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", ErrNoReport
}

func (p *EnginePlayer) Close() error { return nil }

// TreePlayer walks a pre-generated story tree.
type TreePlayer struct {
	player *tree.Player
}

func NewTreePlayer(p *tree.Player) *TreePlayer {
	return &TreePlayer{player: p}
}

func treeTurn(r tree.Response) Turn {
	var b strings.Builder
	b.WriteString(r.Text)
	if len(r.Choices) > 0 && r.Type != tree.ClarificationResponse {
		b.WriteString("\n")
		for i, c := range r.Choices {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c.Text)
		}
	}
	t := Turn{Text: b.String(), Ended: r.IsEnding}
	if r.IsEnding {
		t.Notice = "THE END. Type 'restart' to play again."
	}
	return t
}

func (p *TreePlayer) Start(context.Context) (Turn, error) {
	t := treeTurn(p.player.Start())
	st := p.player.State()
	t.Notice = st.StoryTitle
	return t, nil
}

func (p *TreePlayer) Act(ctx context.Context, input string) (Turn, error) {
	if strings.EqualFold(strings.TrimSpace(input), "restart") {
		return treeTurn(p.player.Restart()), nil
	}
	r, err := p.player.MakeChoice(ctx, input)
	if err != nil {
		return Turn{}, err
	}
	return treeTurn(r), nil
}

func (p *TreePlayer) Report(_ context.Context, r Report) (string, error) {
	if r != ReportSummary {
		return "", ErrNoReport
	}
	st := p.player.State()
	return fmt.Sprintf("%s (%s)\nNode: %s\nVisited: %s",
		st.StoryTitle, st.Genre, st.CurrentNodeID, strings.Join(st.History, " → ")), nil
}

func (p *TreePlayer) Close() error { return nil }

// RemotePlayer plays through the story tools of an MCP server.
type RemotePlayer struct {
	client    *mcp.StoryClient
	genre     string
	prompt    string
	sessionID string
}

func NewRemotePlayer(client *mcp.StoryClient, genre, prompt string) *RemotePlayer {
	return &RemotePlayer{client: client, genre: genre, prompt: prompt}
}

func remoteTurn(r mcp.TurnResult) Turn {
	if r.Rejected() {
		return Turn{Notice: r.Message}
	}
	return Turn{Text: r.Text, Notice: breakNotice(r.NewChapter)}
}

func (p *RemotePlayer) Start(ctx context.Context) (Turn, error) {
	r, err := p.client.StartStory(ctx, p.genre, p.prompt)
	if err != nil {
		return Turn{}, err
	}
	p.sessionID = r.SessionID
	return Turn{Text: r.Text, Notice: chapter.Title(r.Chapter)}, nil
}

func (p *RemotePlayer) Act(ctx context.Context, input string) (Turn, error) {
	var (
		r   mcp.TurnResult
		err error
	)
	if isContinue(input) {
		r, err = p.client.ContinueStory(ctx, p.sessionID)
	} else {
		r, err = p.client.TakeAction(ctx, p.sessionID, input)
	}
	if err != nil {
		return Turn{}, err
	}
	return remoteTurn(r), nil
}

func (p *RemotePlayer) Report(ctx context.Context, r Report) (string, error) {
	switch r {
	case ReportSummary:
		return p.client.StorySummary(ctx, p.sessionID)
	case ReportProfile:
		return p.client.PlayerProfile(ctx, p.sessionID)
	case ReportGenre:
		raw, err := p.client.GenreStatus(ctx, p.sessionID)
		if err != nil {
			return "", err
		}
		var st struct {
			Genre        string   `json:"genre"`
			CurrentBeat  string   `json:"current_beat"`
			BeatProgress string   `json:"beat_progress"`
			Violations   []string `json:"violations"`
		}
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return raw, nil
		}
		return fmt.Sprintf("Genre: %s\nBeat: %s (%s)\nViolations: %d",
			st.Genre, st.CurrentBeat, st.BeatProgress, len(st.Violations)), nil
	}
	return "", ErrNoReport
}

func (p *RemotePlayer) Close() error { return p.client.Close() }
