// ABOUTME: Top-level Bubble Tea ChatModel rendering a scrollback viewport over a text input.
// ABOUTME: Implements tea.Model (Init, Update, View) with async answer generation and a stats command.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ChatModel is the Bubble Tea model for the interactive chat session.
type ChatModel struct {
	viewport  viewport.Model
	textInput textinput.Model

	bot Asker
	ctx context.Context

	lines    []string
	thinking bool
	width    int
	height   int
	ready    bool
}

// NewChatModel creates a ChatModel over the given chatbot.
func NewChatModel(ctx context.Context, bot Asker) ChatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your videos (stats, quit)..."
	ti.Focus()

	return ChatModel{
		textInput: ti,
		bot:       bot,
		ctx:       ctx,
		lines: []string{
			TitleStyle.Render("tubular") + " " + SourceStyle.Render("YouTube transcript chat"),
			SourceStyle.Render("Type a question, 'stats' for knowledge base info, 'quit' to exit."),
			"",
		},
	}
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case AnswerMsg:
		return m.handleAnswer(msg)
	case StatsMsg:
		return m.handleStats(msg)
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var status string
	if m.thinking {
		status = StatusBarStyle.Render(ThinkingStyle.Render("thinking..."))
	} else {
		status = StatusBarStyle.Render("enter to send, ctrl+c to quit")
	}

	var b strings.Builder
	b.WriteString(BorderStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	b.WriteString(status)
	return b.String()
}

func (m ChatModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// border (2) + input (1) + status (1)
	vpHeight := m.height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	vpWidth := m.width - 2
	if vpWidth < 10 {
		vpWidth = 10
	}

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
	}
	m.textInput.Width = m.width - 4
	m.refreshViewport()
	return m, nil
}

func (m ChatModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textInput.Value())
	if input == "" || m.thinking {
		return m, nil
	}
	m.textInput.Reset()

	switch strings.ToLower(input) {
	case "exit", "quit", "bye":
		return m, tea.Quit
	case "stats":
		m.thinking = true
		return m, StatsCmd(m.ctx, m.bot)
	}

	m.appendLine(UserStyle.Render("You: ") + input)
	m.appendLine("")
	m.thinking = true
	return m, AskCmd(m.ctx, m.bot, input)
}

func (m ChatModel) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	m.thinking = false
	if msg.Err != nil {
		m.appendLine(ErrorStyle.Render("Error: ") + msg.Err.Error())
		m.appendLine("")
		return m, nil
	}

	m.appendLine(AssistantStyle.Render("Assistant: ") + msg.Answer.Text)
	for _, s := range msg.Answer.Sources {
		m.appendLine(SourceStyle.Render(fmt.Sprintf("  [%d] %s (%.0f%%)", s.Number, s.VideoID, s.Similarity*100)))
	}
	m.appendLine("")
	return m, nil
}

func (m ChatModel) handleStats(msg StatsMsg) (tea.Model, tea.Cmd) {
	m.thinking = false
	if msg.Err != nil {
		m.appendLine(ErrorStyle.Render("Error: ") + msg.Err.Error())
		m.appendLine("")
		return m, nil
	}

	m.appendLine(TitleStyle.Render("Knowledge base"))
	m.appendLine(fmt.Sprintf("  Documents: %d", msg.Stats.TotalDocuments))
	m.appendLine(fmt.Sprintf("  Videos: %d", msg.Stats.UniqueVideos))
	if len(msg.Stats.VideoIDs) > 0 {
		m.appendLine("  IDs: " + strings.Join(msg.Stats.VideoIDs, ", "))
	}
	m.appendLine("")
	return m, nil
}

// appendLine adds a line to the scrollback and keeps the viewport pinned to
// the bottom.
func (m *ChatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshViewport()
}

func (m *ChatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// Run starts the chat TUI and blocks until the user quits.
func Run(ctx context.Context, bot Asker) error {
	p := tea.NewProgram(NewChatModel(ctx, bot), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
