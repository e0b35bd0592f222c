package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case turnMsg:
		return m.handleTurn(msg)
	case reportMsg:
		return m.handleReport(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case animationTickMsg:
		return m.handleAnimation(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

// appendText adds text one line per message so the view can wrap each line.
func (m *Model) appendText(text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		m.messages = append(m.messages, strings.TrimRight(line, " "))
	}
}

func (m *Model) stopLoading() {
	if n := len(m.messages); n > 0 && m.messages[n-1] == loadingMarker {
		m.messages = m.messages[:n-1]
	}
	m.loading = false
}

func (m Model) handleTurn(msg turnMsg) (tea.Model, tea.Cmd) {
	m.stopLoading()
	if msg.err != nil {
		m.debug.Printf("turn failed for %q: %v", msg.input, msg.err)
		m.messages = append(m.messages, "Error: "+msg.err.Error(), "")
		return m, nil
	}

	t := msg.turn
	if t.Notice != "" {
		m.messages = append(m.messages, "[NOTE] "+t.Notice)
	}
	if t.Text != "" {
		m.appendText(t.Text)
	}
	m.messages = append(m.messages, "")
	m.ended = t.Ended
	return m, nil
}

func (m Model) handleReport(msg reportMsg) (tea.Model, tea.Cmd) {
	m.stopLoading()
	switch {
	case errors.Is(msg.err, ErrNoReport):
		m.messages = append(m.messages, "[NOTE] "+msg.title+" is "+ErrNoReport.Error())
	case msg.err != nil:
		m.messages = append(m.messages, "Error: "+msg.err.Error())
	default:
		m.appendText(msg.text)
	}
	m.messages = append(m.messages, "")
	return m, nil
}

func (m Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	return m, nil
}

func (m Model) handleAnimation(msg animationTickMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		m.animationFrame++
		return m, animationTimer()
	}
	return m, nil
}

func (m Model) beginLoading() Model {
	m.loading = true
	m.animationFrame = 0
	m.messages = append(m.messages, loadingMarker)
	return m
}

func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	m.messages = append(m.messages, "> "+input)
	name := strings.ToLower(strings.Fields(input)[0])
	if name == "/help" {
		m.messages = append(m.messages, helpLines...)
		m.messages = append(m.messages, "")
		return m, nil
	}
	r, ok := slashCommands[name]
	if !ok {
		m.messages = append(m.messages, "[NOTE] Unknown command. Try /help", "")
		return m, nil
	}
	m = m.beginLoading()
	return m, tea.Batch(m.reportCmd(name, r), animationTimer())
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancel()
		return m, tea.Quit

	case "enter":
		userInput := strings.TrimSpace(m.input)
		if userInput == "" || m.loading {
			return m, nil
		}
		m.input = ""
		if strings.HasPrefix(userInput, "/") {
			return m.handleCommand(userInput)
		}

		m.messages = append(m.messages, "> "+userInput, "")
		m = m.beginLoading()
		return m, tea.Batch(m.actCmd(userInput), animationTimer())

	case "backspace":
		if len(m.input) > 0 && !m.loading {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	default:
		if msg.Type == tea.KeyRunes && !m.loading {
			m.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace && !m.loading {
			m.input += " "
		}
		return m, nil
	}
}
