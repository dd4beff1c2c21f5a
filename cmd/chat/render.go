package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"geminichat-backend/internal/transcript"
)

var (
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	historyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderer formats turns for the terminal.
type renderer struct {
	md *glamour.TermRenderer
}

// newRenderer builds a renderer; with markdown off replies are printed as-is.
func newRenderer(markdown bool) (*renderer, error) {
	if !markdown {
		return &renderer{}, nil
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, err
	}
	return &renderer{md: md}, nil
}

func (r *renderer) Turn(t transcript.Turn) string {
	switch {
	case t.Kind == transcript.KindNotice:
		return noticeStyle.Render(t.Content) + "\n"
	case t.Role == transcript.RoleUser:
		return userLabel.Render("you") + " " + t.Content + "\n"
	}

	body := t.Content
	if r.md != nil {
		if out, err := r.md.Render(t.Content); err == nil {
			body = strings.TrimRight(out, "\n")
		}
	}
	return assistantLabel.Render("gemini") + "\n" + body + "\n"
}

func (r *renderer) History(history []transcript.HistoryEntry) string {
	if len(history) == 0 {
		return historyStyle.Render("(history is empty)") + "\n"
	}
	var b strings.Builder
	for _, h := range history {
		b.WriteString(historyStyle.Render(h.APIRole + ": " + h.Text))
		b.WriteString("\n")
	}
	return b.String()
}
