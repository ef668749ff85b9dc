// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	assert.True(t, NewTheme("dark").IsDark)
	assert.True(t, NewTheme("DARK").IsDark)
	assert.False(t, NewTheme("light").IsDark)
}

func TestGlamourStyle(t *testing.T) {
	th := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	assert.Equal(t, "dark", th.GlamourStyle())

	th.IsDark = false
	assert.Equal(t, "light", th.GlamourStyle())

	th.ColorProfile = termenv.Ascii
	assert.Equal(t, "notty", th.GlamourStyle())
}

func TestStatusIndicatorsAreASCII(t *testing.T) {
	for _, s := range []string{
		StatusIndicators.Installed,
		StatusIndicators.Missing,
		StatusIndicators.Downloading,
		StatusIndicators.Error,
	} {
		for _, r := range s {
			assert.Less(t, r, rune(128), s)
		}
	}
}
