// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"errors"
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/store"
	"github.com/jeranaias/konsulton-tui/internal/tasks"
	"github.com/jeranaias/konsulton-tui/internal/ui/components"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

// =============================================================================
// MODEL
// =============================================================================

// Deps are the collaborators of the models screen.
type Deps struct {
	Theme   *styles.Theme
	Printer *i18n.Printer
	Store   *store.Store
	Queue   *tasks.Queue
	Catalog []catalog.Descriptor
}

// Model is the models screen: the catalogue with install state, download
// progress and free space.
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model

	cursor int

	// installed maps file name to its size in MB.
	installed map[string]int
	freeMB    int
	freeKnown bool

	// active maps file name to the running task ID.
	active map[string]string
	bars   map[string]*components.DownloadBar

	status    string
	statusErr bool

	width  int
	height int
}

// New creates the screen and reads the directory once.
func New(deps Deps) Model {
	if deps.Catalog == nil {
		deps.Catalog = catalog.All()
	}
	if deps.Printer == nil {
		deps.Printer = i18n.Default()
	}
	m := Model{
		deps:      deps,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		installed: make(map[string]int),
		active:    make(map[string]string),
		bars:      make(map[string]*components.DownloadBar),
		width:     80,
	}
	m.refresh()
	return m
}

// SetSize sets the available area.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	for _, b := range m.bars {
		b.SetWidth(m.barWidth())
	}
}

func (m Model) barWidth() int {
	return m.width / 2
}

// Selected returns the descriptor under the cursor.
func (m Model) Selected() catalog.Descriptor {
	return m.deps.Catalog[m.cursor]
}

// IsInstalled reports whether fileName is on disk.
func (m Model) IsInstalled(fileName string) bool {
	_, ok := m.installed[fileName]
	return ok
}

// IsDownloading reports whether a task for fileName is queued or running.
func (m Model) IsDownloading(fileName string) bool {
	_, ok := m.active[fileName]
	return ok
}

// FreeMB returns the free space of the models directory.
func (m Model) FreeMB() (int, bool) {
	return m.freeMB, m.freeKnown
}

// Status returns the last status line and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// HelpView renders the short key help.
func (m Model) HelpView() string {
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// =============================================================================
// UPDATE
// =============================================================================

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles keys, download updates and directory changes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tasks.Update:
		m.handleDownloadUpdate(msg)
		return m, nil

	case RefreshMsg:
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.deps.Catalog)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		d := m.Selected()
		if m.IsInstalled(d.FileName) && !m.IsDownloading(d.FileName) {
			path := m.deps.Store.Path(d.FileName)
			return m, func() tea.Msg { return LoadRequestMsg{Descriptor: d, Path: path} }
		}
		m.startDownload(d)
	case key.Matches(msg, m.keys.Download):
		m.startDownload(m.Selected())
	case key.Matches(msg, m.keys.Cancel):
		m.cancelSelected()
	case key.Matches(msg, m.keys.Delete):
		m.deleteSelected()
	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
	case key.Matches(msg, m.keys.Chat):
		return m, func() tea.Msg { return OpenChatMsg{} }
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) startDownload(d catalog.Descriptor) {
	if m.IsDownloading(d.FileName) {
		return
	}
	if err := m.deps.Store.CheckAccess(); err != nil {
		log.Printf("STORE_ACCESS_DENIED | dir=%s err=%v", m.deps.Store.Dir(), err)
		m.setStatus(m.deps.Printer.Sprintf(i18n.NoStorageAccess), true)
		return
	}
	task, err := m.deps.Queue.Enqueue(d)
	if err != nil {
		if errors.Is(err, tasks.ErrDuplicate) {
			return
		}
		m.setStatus(err.Error(), true)
		return
	}
	m.active[d.FileName] = task.ID
	bar := components.NewDownloadBar(m.barWidth())
	m.bars[d.FileName] = &bar
	m.setStatus(m.deps.Printer.Sprintf(i18n.Downloading)+" "+d.DisplayName, false)
}

// cancelSelected cancels the download of the selected file. A task that
// never started produces no events, so it is cleared here.
func (m *Model) cancelSelected() {
	file := m.Selected().FileName
	id, ok := m.active[file]
	if !ok {
		return
	}
	m.deps.Queue.Cancel(id)
	if task := m.deps.Queue.Get(id); task != nil && task.IsComplete() && task.Last.Phase == download.PhaseIdle {
		delete(m.active, file)
		delete(m.bars, file)
		m.setStatus(m.deps.Printer.Sprintf(i18n.DownloadCanceled), false)
	}
}

// deleteSelected removes the selected file unless it is being written.
func (m *Model) deleteSelected() {
	d := m.Selected()
	if m.IsDownloading(d.FileName) {
		return
	}
	removed, err := m.deps.Store.Delete(d.FileName)
	switch {
	case err != nil:
		m.setStatus(err.Error(), true)
	case removed:
		m.setStatus(m.deps.Printer.Sprintf(i18n.Deleted, d.FileName), false)
	default:
		m.setStatus(m.deps.Printer.Sprintf(i18n.NothingToDelete), false)
	}
	m.refresh()
}

func (m *Model) handleDownloadUpdate(u tasks.Update) {
	file := u.Descriptor.FileName
	bar, ok := m.bars[file]
	if !ok {
		b := components.NewDownloadBar(m.barWidth())
		bar = &b
		m.bars[file] = bar
	}
	bar.SetState(u.State)
	if _, ok := m.active[file]; !ok && !u.State.IsTerminal() {
		m.active[file] = u.TaskID
	}

	if !u.State.IsTerminal() {
		return
	}
	delete(m.active, file)
	delete(m.bars, file)
	if u.State.Phase == download.PhaseSuccess {
		m.setStatus(m.deps.Printer.Sprintf(i18n.DownloadDone), false)
	} else {
		m.setStatus(u.State.Message, true)
	}
	m.refresh()
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

// refresh re-reads install state and free space from disk.
func (m *Model) refresh() {
	installed := make(map[string]int)
	for _, d := range m.deps.Store.ListInstalled(m.deps.Catalog) {
		size, _ := m.deps.Store.Size(d.FileName)
		installed[d.FileName] = util.BytesToMB(size)
	}
	m.installed = installed

	free, err := m.deps.Store.FreeSpace()
	m.freeKnown = err == nil
	if err == nil {
		m.freeMB = util.BytesToMB(free)
	}
}
