// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
)

// =============================================================================
// DOWNLOAD PROGRESS BAR
// =============================================================================

// DownloadBar renders the latest download.State of one file.
type DownloadBar struct {
	bar   progress.Model
	state download.State
}

// NewDownloadBar creates a bar of the given width.
func NewDownloadBar(width int) DownloadBar {
	bar := progress.New(
		progress.WithGradient(styles.ProgressStart, styles.ProgressEnd),
		progress.WithoutPercentage(),
	)
	bar.Width = clampWidth(width)
	return DownloadBar{bar: bar, state: download.Idle()}
}

// SetState records s and reports whether the rendered output changed.
func (d *DownloadBar) SetState(s download.State) bool {
	changed := s != d.state
	d.state = s
	return changed
}

// State returns the last recorded state.
func (d DownloadBar) State() download.State {
	return d.state
}

// SetWidth resizes the bar.
func (d *DownloadBar) SetWidth(width int) {
	d.bar.Width = clampWidth(width)
}

// View renders the bar and a counter. An unknown length (percent 0 with
// bytes flowing) shows only the megabytes.
func (d DownloadBar) View() string {
	s := d.state
	switch s.Phase {
	case download.PhaseStarting:
		return d.bar.ViewAs(0) + " ..."
	case download.PhaseDownloading:
		counter := fmt.Sprintf(" %d/%d MB", s.DownloadedMB, s.TotalMB)
		if s.Percent == 0 && s.DownloadedMB > 0 {
			return d.bar.ViewAs(0) + counter
		}
		return d.bar.ViewAs(float64(s.Percent)/100) + fmt.Sprintf(" %3d%%", s.Percent) + counter
	case download.PhaseSuccess:
		return d.bar.ViewAs(1) + " 100%"
	default:
		return ""
	}
}

func clampWidth(w int) int {
	switch {
	case w < 10:
		return 10
	case w > 60:
		return 60
	default:
		return w
	}
}
