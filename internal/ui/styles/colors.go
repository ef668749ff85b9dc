// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// All colors are AdaptiveColor so they follow the terminal background,
// unless a theme forces one side (see NewTheme).

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Merah - brand red, titles and the selection marker
var Merah = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

// Cyan - user messages, prompts
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple - assistant messages
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Emerald - installed models, completed downloads
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - downloads in flight, offline badge
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var SelectionBg = lipgloss.AdaptiveColor{Light: "#FEE2E2", Dark: "#3B1D25"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// PROGRESS BAR
// =============================================================================

// Gradient endpoints for the download bar. bubbles/progress wants hex
// strings, so these are fixed rather than adaptive.
const (
	ProgressStart = "#F87171"
	ProgressEnd   = "#FBBF24"
)

// =============================================================================
// ACCESSIBILITY
// =============================================================================

// StatusIndicatorSet contains text indicators shown next to colors.
type StatusIndicatorSet struct {
	Installed   string
	Missing     string
	Downloading string
	Error       string
}

// StatusIndicators are ASCII so they survive any terminal and NO_COLOR.
var StatusIndicators = StatusIndicatorSet{
	Installed:   "[OK]",
	Missing:     "[  ]",
	Downloading: "[..]",
	Error:       "[X]",
}
