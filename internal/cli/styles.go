// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for konsulton commands.
//
// lipgloss styles render headings and labels; fatih/color renders the
// one-line status markers. Both are disabled for non-TTY output and
// when NO_COLOR is set.

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// init configures both color libraries from terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
	color.NoColor = !ColorsEnabled()
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(20)

	// ValueStyle is used for regular values and text
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// PromptStyle is the REPL prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// =============================================================================
// STATUS MARKERS
// =============================================================================

var (
	okMarker   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnMarker = color.New(color.FgYellow).SprintFunc()
	failMarker = color.New(color.FgRed, color.Bold).SprintFunc()
	nameColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// MarkerOK renders the installed/success marker.
func MarkerOK() string { return okMarker("[OK]") }

// MarkerMissing renders the not-installed marker.
func MarkerMissing() string { return warnMarker("[  ]") }

// MarkerFail renders the failure marker.
func MarkerFail() string { return failMarker("[X]") }
