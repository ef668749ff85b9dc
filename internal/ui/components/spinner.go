// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner animates while a message is being generated or a model loads.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	active    bool
}

// NewSpinner creates an ASCII spinner with message next to it.
func NewSpinner(message string, style lipgloss.Style) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = style
	return Spinner{spinner: s, message: message}
}

// Start activates the spinner and returns the first tick.
func (s *Spinner) Start() tea.Cmd {
	if s.active {
		return nil
	}
	s.active = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner. Pending ticks are ignored.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s Spinner) Active() bool {
	return s.active
}

// SetMessage changes the text shown after the frame.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Update advances the animation. Ticks are dropped while inactive so the
// tick loop ends.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders "<frame> message (3s)".
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	out := s.spinner.View() + " " + s.message
	if elapsed := time.Since(s.startTime); elapsed >= time.Second {
		out += " (" + elapsed.Truncate(time.Second).String() + ")"
	}
	return out
}
