package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivestory/internal/llm"
	"adaptivestory/internal/story/narrator"
	"adaptivestory/internal/story/tree"
	"adaptivestory/internal/story/validate"
)

type scriptedPlayer struct {
	acts   []string
	closed bool
}

func (p *scriptedPlayer) Start(context.Context) (Turn, error) {
	return Turn{Text: "It begins."}, nil
}

func (p *scriptedPlayer) Act(_ context.Context, input string) (Turn, error) {
	p.acts = append(p.acts, input)
	return Turn{Text: "You did it."}, nil
}

func (p *scriptedPlayer) Report(context.Context, Report) (string, error) {
	return "", ErrNoReport
}

func (p *scriptedPlayer) Close() error {
	p.closed = true
	return nil
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModelTurnFlow(t *testing.T) {
	p := &scriptedPlayer{}
	m := NewModel(p, nil)
	require.True(t, m.loading)
	m.messages = append(m.messages, loadingMarker)

	m, _ = update(t, m, turnMsg{turn: Turn{Text: "line one\nline two", Notice: "Chapter 1: The Beginning"}})
	assert.False(t, m.loading)
	assert.NotContains(t, m.messages, loadingMarker)
	assert.Contains(t, m.messages, "[NOTE] Chapter 1: The Beginning")
	assert.Contains(t, m.messages, "line two")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("I run")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "I run ", m.input)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.loading)
	assert.Empty(t, m.input)
	assert.Contains(t, m.messages, "> I run")

	msg := m.actCmd("I run")()
	assert.Equal(t, []string{"I run"}, p.acts)
	m, _ = update(t, m, msg)
	assert.False(t, m.loading)
	assert.Contains(t, m.messages, "You did it.")

	m.Cleanup()
	assert.True(t, p.closed)
}

func TestModelCommands(t *testing.T) {
	m := NewModel(&scriptedPlayer{}, nil)
	m.loading = false

	m.input = "/help"
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.messages, helpLines[1])

	m.input = "/bogus"
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.messages, "[NOTE] Unknown command. Try /help")

	m.input = "/profile"
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, m.reportCmd("/profile", ReportProfile)())
	assert.Contains(t, m.messages, "[NOTE] /profile is "+ErrNoReport.Error())
	assert.False(t, m.loading)
}

func TestWrapAndIndent(t *testing.T) {
	assert.Equal(t, " short", wrapAndIndent("short", 20, " "))
	assert.Equal(t, " the quick\n brown fox", wrapAndIndent("the quick brown fox", 10, " "))
}

func TestEnginePlayer(t *testing.T) {
	o := llm.OracleFunc(func(context.Context, llm.Prompt, llm.Params) (string, error) {
		return "Rain hammers the window. What do you do?", nil
	})
	p := NewEnginePlayer(narrator.New(o), "detective", "")
	ctx := context.Background()

	start, err := p.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1: The Beginning", start.Notice)
	assert.Contains(t, start.Text, "Rain hammers the window.")

	turn, err := p.Act(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, validate.MsgTooShort, turn.Notice)
	assert.Empty(t, turn.Text)

	turn, err = p.Act(ctx, "I check the window latch")
	require.NoError(t, err)
	assert.Contains(t, turn.Text, narrator.DecisionMarker)

	turn, err = p.Act(ctx, "continue")
	require.NoError(t, err)
	assert.NotEmpty(t, turn.Text)

	summary, err := p.Report(ctx, ReportSummary)
	require.NoError(t, err)
	assert.Contains(t, summary, "Actions Taken: 1")

	chapters, err := p.Report(ctx, ReportChapters)
	require.NoError(t, err)
	assert.Contains(t, chapters, "Chapter 1: The Beginning")

	genreReport, err := p.Report(ctx, ReportGenre)
	require.NoError(t, err)
	assert.Contains(t, genreReport, "Genre: detective")
}

func TestTreePlayer(t *testing.T) {
	tr := &tree.Tree{
		Genre: "horror",
		Title: "The House",
		Nodes: map[string]*tree.Node{
			"start": {NodeID: "start", Text: "The house waits.", Choices: []tree.Choice{
				{Text: "Enter the house", LeadsTo: "start_0", Type: "action"},
				{Text: "Walk away", LeadsTo: "start_1", Type: "action"},
			}},
			"start_0": {NodeID: "start_0", Text: "Dust everywhere.", Depth: 1, IsEnding: true},
		},
		StartNode: "start",
	}
	p := NewTreePlayer(tree.NewPlayer(tr))
	ctx := context.Background()

	start, err := p.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The House", start.Notice)
	assert.Equal(t, "The house waits.\n\n1. Enter the house\n2. Walk away", start.Text)

	turn, err := p.Act(ctx, "enter the house")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.Equal(t, "Dust everywhere.", turn.Text)

	turn, err = p.Act(ctx, "restart")
	require.NoError(t, err)
	assert.False(t, turn.Ended)
	assert.Contains(t, turn.Text, "The house waits.")

	_, err = p.Report(ctx, ReportProfile)
	assert.ErrorIs(t, err, ErrNoReport)
}
