// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - What the attached terminal can show.
//
// The chat REPL wraps replies to the window and the pull progress bar
// redraws in place; both fall back to plain lines when stdout is a pipe.

package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/konsulton-tui/internal/util"
)

// Reply wrapping bounds, in columns.
const (
	fallbackWidth = 80
	narrowestWrap = 40
	wrapMargin    = 2
)

// IsStdoutTTY reports whether stdout is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the stdout width clamped to narrowestWrap, or
// fallbackWidth when stdout has no size.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || w <= 0:
		return fallbackWidth
	case w < narrowestWrap:
		return narrowestWrap
	}
	return w
}

// WrapText breaks each line of a reply at spaces so it fits width display
// columns minus a small margin. width <= 0 means the terminal width. Words
// longer than the line are left whole.
func WrapText(text string, width int) string {
	if width <= 0 {
		width = GetTerminalWidth()
	}
	if width > 10 {
		width -= wrapMargin
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if util.StringWidth(line) <= width {
			continue
		}
		lines[i] = wrapLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, width int) string {
	var b strings.Builder
	col := 0
	for _, word := range strings.Fields(line) {
		w := util.StringWidth(word)
		switch {
		case col == 0:
		case col+1+w > width:
			b.WriteByte('\n')
			col = 0
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(word)
		col += w
	}
	return b.String()
}

// =============================================================================
// COLOR
// =============================================================================

var (
	colorOnce sync.Once
	colorOn   bool
)

// ColorsEnabled reports whether status markers and styles use color. It is
// decided once per process.
func ColorsEnabled() bool {
	colorOnce.Do(func() {
		colorOn = wantColor(os.Getenv, IsStdoutTTY())
	})
	return colorOn
}

// wantColor applies NO_COLOR (any value turns color off), then
// FORCE_COLOR, then the terminal check.
func wantColor(getenv func(string) string, tty bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	return tty
}

// GetColorProfile returns the lipgloss profile for stdout: plain ASCII
// without color, otherwise whatever termenv detects.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
