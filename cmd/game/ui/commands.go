package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func (m Model) startCmd() tea.Cmd {
	player, ctx := m.player, m.ctx
	return func() tea.Msg {
		turn, err := player.Start(ctx)
		return turnMsg{turn: turn, err: err}
	}
}

func (m Model) actCmd(input string) tea.Cmd {
	player, ctx := m.player, m.ctx
	return func() tea.Msg {
		turn, err := player.Act(ctx, input)
		return turnMsg{turn: turn, err: err, input: input}
	}
}

func (m Model) reportCmd(title string, r Report) tea.Cmd {
	player, ctx := m.player, m.ctx
	return func() tea.Msg {
		text, err := player.Report(ctx, r)
		return reportMsg{title: title, text: text, err: err}
	}
}

var slashCommands = map[string]Report{
	"/summary":  ReportSummary,
	"/state":    ReportSummary,
	"/profile":  ReportProfile,
	"/genre":    ReportGenre,
	"/chapters": ReportChapters,
}

var helpLines = []string{
	"Commands:",
	"  /summary   story state so far",
	"  /profile   what your choices say about you",
	"  /genre     genre beat and rule violations",
	"  /chapters  chapters written so far",
	"  /help      this help",
	"  continue   let the story move on by itself",
	"  restart    start a story tree over",
}
