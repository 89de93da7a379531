package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	withinStyle = lipgloss.NewStyle().Background(lipgloss.Color("#1F6F35")).Foreground(lipgloss.Color("#FFFFFF"))
	aboveStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#A32623")).Foreground(lipgloss.Color("#FFFFFF"))
	cursorStyle = lipgloss.NewStyle().Reverse(true).Bold(true)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C21C")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E44"))
	promptStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	maxCellWidth        = 24
	maxDescriptionWidth = 40
)
