package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Italic(true)
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func (m Model) View() string {
	inputHeight := 4
	chatHeight := m.height - inputHeight
	if chatHeight < 5 {
		chatHeight = 5
	}
	width := m.width
	if width < 20 {
		width = 80
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(width - 4)

	chatPanel := lipgloss.NewStyle().
		Width(width - 2).
		Height(chatHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1)

	contentWidth := width - 6
	maxLines := chatHeight - 2
	if maxLines < 1 {
		maxLines = 1
	}

	// Wrap first so the window is counted in screen lines.
	var lines []string
	for _, message := range m.messages {
		lines = append(lines, strings.Split(m.renderMessage(message, contentWidth), "\n")...)
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	for len(lines) < maxLines {
		lines = append([]string{""}, lines...)
	}

	chat := chatPanel.Render(strings.Join(lines, "\n"))
	input := inputStyle.Render(m.input + "│")
	hint := hintStyle.Render(" Ctrl+C or Esc to quit")
	if m.ended {
		hint = hintStyle.Render(" The story has ended. Type 'restart' or press Esc")
	}
	return chat + "\n" + input + "\n" + hint
}

func (m Model) renderMessage(message string, width int) string {
	switch {
	case message == "":
		return ""
	case message == loadingMarker:
		return loadingStyle.Render(wrapAndIndent(getLoadingAnimation(m.animationFrame), width, " "))
	case strings.HasPrefix(message, "> "):
		return userStyle.Render(wrapAndIndent(message, width, " "))
	case strings.HasPrefix(message, "[NOTE] "):
		return noteStyle.Render(wrapAndIndent(strings.TrimPrefix(message, "[NOTE] "), width, " "))
	case strings.HasPrefix(message, "[DEBUG] "):
		return debugStyle.Render(wrapAndIndent(message, width, " "))
	case strings.HasPrefix(message, "Error: "):
		return errorStyle.Render(wrapAndIndent(message, width, " "))
	}
	return messageStyle.Render(wrapAndIndent(message, width, " "))
}

func wrapAndIndent(text string, width int, indent string) string {
	if len(text) <= width {
		return indent + text
	}

	var result strings.Builder
	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	currentLine := indent + words[0]

	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}

	result.WriteString(currentLine)
	return result.String()
}

func getLoadingAnimation(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
