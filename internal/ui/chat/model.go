// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/konsulton-tui/internal/conversation"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/storage"
	"github.com/jeranaias/konsulton-tui/internal/ui/components"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
)

// Layout rows outside the viewport: title, notice, input box and help.
const reservedRows = 7

// =============================================================================
// MODEL
// =============================================================================

// Deps are the collaborators of the chat screen.
type Deps struct {
	Ctx         context.Context
	Theme       *styles.Theme
	Printer     *i18n.Printer
	Engine      *conversation.Engine
	Transcripts *storage.TranscriptStore

	// RenderMarkdown renders assistant replies with glamour.
	RenderMarkdown bool
}

// Model is the chat screen.
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model

	snap     conversation.Snapshot
	viewport viewport.Model
	input    textinput.Model
	spinner  components.Spinner
	renderer *glamour.TermRenderer

	// sending is set between submit and SendDoneMsg so a second Enter
	// cannot race the first snapshot.
	sending bool

	notice    string
	noticeErr bool

	width  int
	height int
}

// New creates the screen showing the engine's current state.
func New(deps Deps) Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Printer == nil {
		deps.Printer = i18n.Default()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = deps.Printer.Sprintf(i18n.InputHint)
	ti.CharLimit = 4096
	ti.Focus()

	m := Model{
		deps:     deps,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		input:    ti,
		spinner:  components.NewSpinner("", deps.Theme.Thinking),
	}
	m.snap = deps.Engine.Snapshot()
	m.SetSize(80, 24)
	return m
}

// SetSize sets the available area and re-wraps the conversation.
func (m *Model) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	m.width, m.height = width, height
	m.help.Width = width

	vh := height - reservedRows
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.input.Width = width - 8

	if m.deps.RenderMarkdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.deps.Theme.GlamourStyle()),
			glamour.WithWordWrap(width-4),
		)
		if err != nil {
			log.Printf("CHAT_RENDERER_ERROR | err=%v", err)
			r = nil
		}
		m.renderer = r
	}
	m.syncViewport()
}

// Snapshot returns the state being displayed.
func (m Model) Snapshot() conversation.Snapshot {
	return m.snap
}

// Input returns the current input line.
func (m Model) Input() string {
	return m.input.Value()
}

// Notice returns the last notice and whether it is an error.
func (m Model) Notice() (string, bool) {
	return m.notice, m.noticeErr
}

// =============================================================================
// COMMANDS
// =============================================================================

// Load returns a command that loads the model at path, or the remembered
// model when path is empty.
func (m Model) Load(path string) tea.Cmd {
	eng, ctx := m.deps.Engine, m.deps.Ctx
	return func() tea.Msg {
		return LoadDoneMsg{Path: path, Err: <-eng.LoadModelAsync(ctx, path)}
	}
}

func (m Model) send(text string) tea.Cmd {
	eng, ctx := m.deps.Engine, m.deps.Ctx
	return func() tea.Msg {
		return SendDoneMsg{Err: <-eng.SendMessageAsync(ctx, text)}
	}
}

func (m Model) save() tea.Cmd {
	eng, store := m.deps.Engine, m.deps.Transcripts
	modelFile := filepath.Base(m.snap.ModelPath)
	return func() tea.Msg {
		id, err := store.Save(eng.Transcript(), modelFile)
		if err != nil {
			return TranscriptSavedMsg{Err: err}
		}
		return TranscriptSavedMsg{Path: store.Path(id)}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles keys and engine results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		return m, m.applySnapshot(msg.Snapshot)

	case LoadDoneMsg:
		if msg.Err != nil {
			log.Printf("CHAT_LOAD_FAILED | path=%s err=%v", msg.Path, msg.Err)
		}
		return m, nil

	case SendDoneMsg:
		m.sending = false
		switch {
		case errors.Is(msg.Err, conversation.ErrBusy):
			m.setNotice(m.deps.Printer.Sprintf(i18n.StillThinking), true)
		case errors.Is(msg.Err, conversation.ErrNotLoaded):
			m.setNotice(m.deps.Printer.Sprintf(i18n.ModelNotReady), true)
		}
		return m, m.applySnapshot(m.deps.Engine.Snapshot())

	case TranscriptSavedMsg:
		if msg.Err != nil {
			m.setNotice(msg.Err.Error(), true)
		} else {
			m.setNotice(m.deps.Printer.Sprintf(i18n.TranscriptSaved, msg.Path), false)
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
		m.syncViewport()
	}
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.sending || m.snap.Busy {
			m.setNotice(m.deps.Printer.Sprintf(i18n.StillThinking), true)
			return m, nil
		}
		if !m.snap.ModelLoaded {
			m.setNotice(m.deps.Printer.Sprintf(i18n.ModelNotSelected), true)
			return m, nil
		}
		if !m.snap.Ready {
			m.setNotice(m.deps.Printer.Sprintf(i18n.ModelNotReady), true)
			return m, nil
		}
		m.input.Reset()
		m.sending = true
		m.setNotice("", false)
		return m, m.send(text)

	case key.Matches(msg, m.keys.Clear):
		if m.sending || m.snap.Busy {
			return m, nil
		}
		m.deps.Engine.ClearChat()
		m.setNotice("", false)
		return m, m.applySnapshot(m.deps.Engine.Snapshot())

	case key.Matches(msg, m.keys.Save):
		if m.deps.Transcripts == nil {
			return m, nil
		}
		return m, m.save()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.snap.Busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applySnapshot shows s and starts or stops the spinner to match.
func (m *Model) applySnapshot(s conversation.Snapshot) tea.Cmd {
	m.snap = s

	var cmd tea.Cmd
	if s.Busy {
		m.input.Blur()
		if s.ModelLoaded {
			m.spinner.SetMessage("")
		} else {
			m.spinner.SetMessage(m.deps.Printer.Sprintf(i18n.LoadingModel))
		}
		cmd = m.spinner.Start()
	} else {
		m.spinner.Stop()
		cmd = m.input.Focus()
	}
	m.syncViewport()
	return cmd
}

func (m *Model) setNotice(s string, isErr bool) {
	m.notice, m.noticeErr = s, isErr
}

func (m *Model) syncViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if atBottom || m.snap.Busy {
		m.viewport.GotoBottom()
	}
}
