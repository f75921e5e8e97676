// ABOUTME: Defines lipgloss style constants for the chat TUI layout and message roles.
// ABOUTME: Keeps all color and border decisions in one place.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Chat history viewport border
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Header line
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Message roles
	UserStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	AssistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	SourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ThinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)
