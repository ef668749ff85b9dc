// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	t := m.deps.Theme

	title := t.Title.Render(m.deps.Printer.Sprintf(i18n.ChatTitle))
	if m.snap.ModelPath != "" {
		title += " " + t.Muted.Render(filepath.Base(m.snap.ModelPath))
	}

	var notice string
	switch {
	case m.snap.HasError:
		notice = t.ErrorStyle.Render(m.snap.LastError)
	case m.notice != "" && m.noticeErr:
		notice = t.ErrorStyle.Render(m.notice)
	case m.notice != "":
		notice = t.SuccessStyle.Render(m.notice)
	}

	input := t.InputBox.Width(m.width - 4).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		notice,
		input,
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

// renderMessages renders the conversation for the viewport.
func (m Model) renderMessages() string {
	if len(m.snap.Messages) == 0 {
		if m.spinner.Active() {
			return m.spinner.View()
		}
		return ""
	}
	parts := make([]string, 0, len(m.snap.Messages))
	for _, msg := range m.snap.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.ChatMessage) string {
	t := m.deps.Theme
	stamp := t.Muted.Render(msg.Time().Format("15:04"))

	if msg.IsUser {
		label := t.UserLabel.Render(msg.Role().PromptLabel())
		body := t.UserText.Width(m.width - 4).Render(msg.Content)
		return label + " " + stamp + "\n" + body
	}

	label := t.AssistantLabel.Render(msg.Role().PromptLabel())
	if msg.IsLoading {
		return label + "\n" + m.spinner.View()
	}
	return label + " " + stamp + "\n" + m.renderReply(msg.Content)
}

// renderReply renders assistant text as markdown when enabled, falling
// back to plain wrapped text.
func (m Model) renderReply(content string) string {
	if m.renderer != nil {
		out, err := m.renderer.Render(content)
		if err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return m.deps.Theme.AssistantText.Width(m.width - 4).Render(content)
}
