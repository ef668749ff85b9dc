// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"strings"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

const nameColumn = 34

// View renders the screen.
func (m Model) View() string {
	t := m.deps.Theme
	p := m.deps.Printer

	var b strings.Builder
	b.WriteString(t.Title.Render(p.Sprintf(i18n.ModelsTitle)))
	b.WriteString("\n")

	for i, d := range m.deps.Catalog {
		line := m.renderItem(d)
		if i == m.cursor {
			b.WriteString(t.ItemSelected.Render(line))
		} else {
			b.WriteString(t.Item.Render(line))
		}
		b.WriteString("\n")
		if bar, ok := m.bars[d.FileName]; ok {
			if v := bar.View(); v != "" {
				b.WriteString("    " + v + "\n")
			}
		}
	}

	b.WriteString("\n")
	if m.freeKnown {
		b.WriteString(t.Muted.Render(p.Sprintf(i18n.FreeSpace, i18n.Int(m.freeMB))))
		b.WriteString("\n")
	}
	if m.status != "" {
		if m.statusErr {
			b.WriteString(t.ErrorStyle.Render(m.status))
		} else {
			b.WriteString(t.SuccessStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	if m.help.ShowAll {
		b.WriteString("\n" + m.help.FullHelpView(m.keys.FullHelp()) + "\n")
	}
	return b.String()
}

func (m Model) renderItem(d catalog.Descriptor) string {
	t := m.deps.Theme
	p := m.deps.Printer

	name := util.PadRight(util.TruncateWidth(d.DisplayName, nameColumn), nameColumn)
	size := util.PadRight(util.FormatMB(d.ExpectedSizeMB), 9)

	var state string
	switch {
	case m.IsDownloading(d.FileName):
		state = t.Downloading.Render(styles.StatusIndicators.Downloading + " " + p.Sprintf(i18n.Downloading))
	case m.IsInstalled(d.FileName):
		state = t.Installed.Render(styles.StatusIndicators.Installed + " " + p.Sprintf(i18n.Installed))
	default:
		state = t.Missing.Render(styles.StatusIndicators.Missing + " " + p.Sprintf(i18n.NotInstalled))
	}
	return name + " " + size + " " + state
}
