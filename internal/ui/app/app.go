// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/conversation"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/storage"
	"github.com/jeranaias/konsulton-tui/internal/store"
	"github.com/jeranaias/konsulton-tui/internal/tasks"
	"github.com/jeranaias/konsulton-tui/internal/ui/chat"
	"github.com/jeranaias/konsulton-tui/internal/ui/components"
	"github.com/jeranaias/konsulton-tui/internal/ui/models"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

// Screen identifies the visible screen.
type Screen int

const (
	ScreenModels Screen = iota
	ScreenChat
)

// Options wires the root model to the rest of the program.
type Options struct {
	Ctx         context.Context
	Theme       *styles.Theme
	Printer     *i18n.Printer
	Store       *store.Store
	Queue       *tasks.Queue
	Catalog     []catalog.Descriptor
	Engine      *conversation.Engine
	Transcripts *storage.TranscriptStore

	// Background sources. A nil channel is never waited on.
	Updates   <-chan tasks.Update
	Snapshots <-chan conversation.Snapshot
	Changes   <-chan struct{}

	RenderMarkdown bool

	// AutoLoad starts on the chat screen and loads the remembered model.
	AutoLoad bool
}

// =============================================================================
// BACKGROUND MESSAGES
// =============================================================================

type updateMsg tasks.Update

type snapshotMsg conversation.Snapshot

type dirChangedMsg struct{}

func waitForUpdate(ch <-chan tasks.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func waitForSnapshot(ch <-chan conversation.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return dirChangedMsg{}
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root model.
type Model struct {
	opts   Options
	screen Screen

	models models.Model
	chat   chat.Model
	status components.StatusBar

	width  int
	height int
}

// New creates the root model.
func New(opts Options) Model {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.Printer == nil {
		opts.Printer = i18n.Default()
	}
	m := Model{
		opts: opts,
		models: models.New(models.Deps{
			Theme:   opts.Theme,
			Printer: opts.Printer,
			Store:   opts.Store,
			Queue:   opts.Queue,
			Catalog: opts.Catalog,
		}),
		chat: chat.New(chat.Deps{
			Ctx:            opts.Ctx,
			Theme:          opts.Theme,
			Printer:        opts.Printer,
			Engine:         opts.Engine,
			Transcripts:    opts.Transcripts,
			RenderMarkdown: opts.RenderMarkdown,
		}),
		status: components.NewStatusBar(opts.Theme),
	}
	if opts.AutoLoad {
		m.screen = ScreenChat
	}
	return m
}

// Screen returns the visible screen.
func (m Model) Screen() Screen {
	return m.screen
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.chat.Init(),
		waitForUpdate(m.opts.Updates),
		waitForSnapshot(m.opts.Snapshots),
		waitForChange(m.opts.Changes),
	}
	if m.opts.AutoLoad {
		cmds = append(cmds, m.chat.Load(""))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.models.SetSize(msg.Width, msg.Height-1)
		m.chat.SetSize(msg.Width, msg.Height-1)
		m.status.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen == ScreenModels && msg.String() == "q" {
			return m, tea.Quit
		}

	case updateMsg:
		m.models, cmd = m.models.Update(tasks.Update(msg))
		return m, tea.Batch(cmd, waitForUpdate(m.opts.Updates))

	case snapshotMsg:
		m.chat, cmd = m.chat.Update(chat.SnapshotMsg{Snapshot: conversation.Snapshot(msg)})
		return m, tea.Batch(cmd, waitForSnapshot(m.opts.Snapshots))

	case dirChangedMsg:
		m.models, cmd = m.models.Update(models.RefreshMsg{})
		return m, tea.Batch(cmd, waitForChange(m.opts.Changes))

	case models.LoadRequestMsg:
		m.screen = ScreenChat
		return m, m.chat.Load(msg.Path)

	case models.OpenChatMsg:
		m.screen = ScreenChat
		return m, nil

	case chat.BackMsg:
		m.screen = ScreenModels
		m.models, cmd = m.models.Update(models.RefreshMsg{})
		return m, cmd

	case chat.LoadDoneMsg, chat.SendDoneMsg, chat.TranscriptSavedMsg:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	if _, isKey := msg.(tea.KeyMsg); isKey && m.screen == ScreenModels {
		m.models, cmd = m.models.Update(msg)
		return m, cmd
	}
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var content string
	switch m.screen {
	case ScreenChat:
		content = m.chat.View()
		m.status.Help = ""
	default:
		content = m.models.View()
		m.status.Help = m.models.HelpView()
	}
	m.status.Items = m.statusItems()
	return lipgloss.JoinVertical(lipgloss.Left, content, m.status.View())
}

func (m Model) statusItems() []string {
	items := make([]string, 0, 3)
	if snap := m.chat.Snapshot(); snap.ModelLoaded {
		items = append(items, filepath.Base(snap.ModelPath))
	} else {
		items = append(items, "-")
	}
	if free, ok := m.models.FreeMB(); ok {
		items = append(items, util.FormatMB(free))
	}
	if n := m.opts.Queue.RunningCount(); n > 0 {
		items = append(items, m.opts.Printer.Sprintf(i18n.Downloading)+" ("+i18n.Int(n)+")")
	}
	return items
}
