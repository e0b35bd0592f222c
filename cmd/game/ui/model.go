package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"adaptivestory/internal/debug"
)

const loadingMarker = "LOADING_ANIMATION"

type Model struct {
	messages       []string
	input          string
	width          int
	height         int
	player         Player
	debug          *debug.Logger
	loading        bool
	ended          bool
	animationFrame int
	ctx            context.Context
	cancel         context.CancelFunc
}

func NewModel(player Player, logger *debug.Logger) Model {
	if logger == nil {
		logger = debug.Nop()
	}
	messages := []string{"Type your actions in the first person. 'continue' lets the story move on, /help lists commands.", ""}
	if logger.IsEnabled() {
		messages = append(messages, "[DEBUG] Debug logging active", "")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		messages: messages,
		player:   player,
		debug:    logger,
		loading:  true,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), animationTimer())
}

// Cleanup stops in-flight turns and closes the player.
func (m Model) Cleanup() {
	m.cancel()
	if err := m.player.Close(); err != nil {
		m.debug.Printf("failed to close player: %v", err)
	}
}

type animationTickMsg struct{}

type turnMsg struct {
	turn  Turn
	err   error
	input string
}

type reportMsg struct {
	title string
	text  string
	err   error
}
