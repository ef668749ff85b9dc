// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/offline"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
)

func TestDownloadBar_View(t *testing.T) {
	bar := NewDownloadBar(20)
	assert.Empty(t, bar.View(), "idle renders nothing")

	assert.True(t, bar.SetState(download.Progress(42, 21, 50)))
	assert.False(t, bar.SetState(download.Progress(42, 21, 50)), "same state is not a change")
	assert.Contains(t, bar.View(), "42%")
	assert.Contains(t, bar.View(), "21/50 MB")

	bar.SetState(download.Progress(0, 3, 7))
	assert.NotContains(t, bar.View(), "%", "unknown length shows no percentage")
	assert.Contains(t, bar.View(), "3/7 MB")

	bar.SetState(download.Success())
	assert.Contains(t, bar.View(), "100%")

	bar.SetState(download.Failure(download.KindNetwork, "x"))
	assert.Empty(t, bar.View())
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, 10, clampWidth(1))
	assert.Equal(t, 30, clampWidth(30))
	assert.Equal(t, 60, clampWidth(500))
}

func TestSpinner_Lifecycle(t *testing.T) {
	s := NewSpinner("Memuat model...", lipgloss.NewStyle())
	assert.Empty(t, s.View())

	cmd := s.Start()
	assert.NotNil(t, cmd)
	assert.Nil(t, s.Start(), "already running")
	assert.Contains(t, s.View(), "Memuat model...")

	s.Stop()
	assert.False(t, s.Active())
	_, cmd = s.Update(nil)
	assert.Nil(t, cmd, "stopped spinner does not tick")
}

func TestStatusBar_View(t *testing.T) {
	offline.SetOfflineMode(true)
	defer offline.SetOfflineMode(false)

	sb := NewStatusBar(styles.NewTheme("dark"))
	sb.Items = []string{"gemma.gguf", "", "1024 MB"}
	sb.Help = "q quit"
	out := sb.View()
	assert.Contains(t, out, "[OFFLINE] | gemma.gguf | 1024 MB")
	assert.Contains(t, out, "q quit")

	sb.SetWidth(12)
	assert.LessOrEqual(t, lipgloss.Width(sb.View()), 12)
}
