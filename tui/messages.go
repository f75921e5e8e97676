// ABOUTME: Bubble Tea message types and async commands for the chat TUI.
// ABOUTME: Ask and stats requests run in tea.Cmd goroutines and report back as messages.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tubular-ai/tubular/index"
	"github.com/tubular-ai/tubular/rag"
)

// Asker is the slice of the chatbot the TUI needs.
type Asker interface {
	Ask(ctx context.Context, question string) (rag.Answer, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// AnswerMsg carries a completed answer back into the message loop.
type AnswerMsg struct {
	Question string
	Answer   rag.Answer
	Err      error
}

// StatsMsg carries knowledge base statistics.
type StatsMsg struct {
	Stats index.Stats
	Err   error
}

// AskCmd runs the question through the chatbot off the UI goroutine.
func AskCmd(ctx context.Context, bot Asker, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := bot.Ask(ctx, question)
		return AnswerMsg{Question: question, Answer: answer, Err: err}
	}
}

// StatsCmd fetches knowledge base statistics off the UI goroutine.
func StatsCmd(ctx context.Context, bot Asker) tea.Cmd {
	return func() tea.Msg {
		stats, err := bot.Stats(ctx)
		return StatsMsg{Stats: stats, Err: err}
	}
}
