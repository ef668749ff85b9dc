// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/konsulton-tui/internal/offline"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line: badges on the left, help on the right.
type StatusBar struct {
	theme *styles.Theme
	width int

	// Left items, plain text, rendered in order and separated by " | ".
	Items []string

	// Help is the short key help.
	Help string
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{theme: theme}
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(w int) {
	s.width = w
}

// View renders the bar, truncating the left side first when narrow.
func (s StatusBar) View() string {
	items := make([]string, 0, len(s.Items)+1)
	if badge := offline.StatusBadge(); badge != "" {
		items = append(items, badge)
	}
	for _, it := range s.Items {
		if it != "" {
			items = append(items, it)
		}
	}
	left := strings.Join(items, " | ")

	if s.width <= 0 {
		return s.theme.StatusBar.Render(left + "  " + s.Help)
	}

	inner := s.width - 2
	helpW := lipgloss.Width(s.Help)
	leftW := inner - helpW - 2
	if leftW < 10 {
		return s.theme.StatusBar.Width(s.width).Render(util.TruncateWidth(left, inner))
	}
	if lipgloss.Width(left) > leftW {
		left = util.TruncateWidth(left, leftW)
	}
	gap := inner - lipgloss.Width(left) - helpW
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + s.Help)
}
