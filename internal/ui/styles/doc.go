// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the TUI.
//
// Colors are lipgloss.AdaptiveColor values. NewTheme picks the background
// side from the config ("auto" asks termenv) and builds every style once.
package styles
