// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/konsulton-tui/internal/conversation"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/inference"
	"github.com/jeranaias/konsulton-tui/internal/storage"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
)

type echoAdapter struct {
	reply string
}

func (a *echoAdapter) Generate(context.Context, string) (string, error) { return a.reply, nil }
func (a *echoAdapter) Release() error                                  { return nil }

func newScreen(t *testing.T, reply string) (Model, *conversation.Engine) {
	t.Helper()
	factory := inference.FactoryFunc(func(context.Context, string) (inference.Adapter, error) {
		return &echoAdapter{reply: reply}, nil
	})
	eng := conversation.New(conversation.Options{Factory: factory, Printer: i18n.NewPrinter("en")})
	t.Cleanup(func() { eng.Dispose() })

	transcripts, err := storage.NewTranscriptStore(t.TempDir(), 0)
	require.NoError(t, err)

	m := New(Deps{
		Theme:       styles.NewTheme("dark"),
		Printer:     i18n.NewPrinter("en"),
		Engine:      eng,
		Transcripts: transcripts,
	})
	return m, eng
}

// loaded runs a load through the screen the way the root model does.
func loaded(t *testing.T, m Model, eng *conversation.Engine) Model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gemma.task")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	done, ok := m.Load(path)().(LoadDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	m, _ = m.Update(done)
	m, _ = m.Update(SnapshotMsg{Snapshot: eng.Snapshot()})
	return m
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestSubmitWithoutModel(t *testing.T) {
	m, _ := newScreen(t, "")
	m = typeText(m, "halo")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	notice, isErr := m.Notice()
	assert.True(t, isErr)
	assert.Equal(t, "No model selected or the model file is missing.", notice)
	assert.Equal(t, "halo", m.Input())
}

func TestLoadShowsGreeting(t *testing.T) {
	m, eng := newScreen(t, "")
	m = loaded(t, m, eng)

	assert.True(t, m.Snapshot().ModelLoaded)
	assert.Contains(t, m.View(), "gemma.task")
	snap := m.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Contains(t, snap.Messages[0].Content, "How can I help you today?")
}

func TestSubmitSendsMessage(t *testing.T) {
	m, eng := newScreen(t, "Merdeka!")
	m = loaded(t, m, eng)
	m = typeText(m, "Apa kabar?")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.Input())

	m, _ = m.Update(cmd())
	snap := m.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "Apa kabar?", snap.Messages[1].Content)
	assert.Equal(t, "Merdeka!", snap.Messages[2].Content)
	assert.Contains(t, m.renderMessages(), "Merdeka!")
}

func TestEmptyInputIgnored(t *testing.T) {
	m, eng := newScreen(t, "x")
	m = loaded(t, m, eng)
	m = typeText(m, "   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestSubmitAfterFailedReload(t *testing.T) {
	m, _ := newScreen(t, "")
	m, _ = m.Update(SnapshotMsg{Snapshot: conversation.Snapshot{ModelLoaded: true, Ready: false, HasError: true}})
	m.input.SetValue("halo")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	notice, isErr := m.Notice()
	assert.True(t, isErr)
	assert.Equal(t, "The model failed to load. Pick or reload a model.", notice)
	assert.Equal(t, "halo", m.Input())
}

func TestSubmitWhileBusy(t *testing.T) {
	m, _ := newScreen(t, "")
	m, _ = m.Update(SnapshotMsg{Snapshot: conversation.Snapshot{ModelLoaded: true, Ready: true, Busy: true}})
	m.input.SetValue("lagi")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	notice, _ := m.Notice()
	assert.Equal(t, "Still waiting for the previous answer.", notice)
	assert.Equal(t, "lagi", m.Input())
}

func TestClear(t *testing.T) {
	m, eng := newScreen(t, "jawab")
	m = loaded(t, m, eng)
	m = typeText(m, "tanya")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(cmd())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	snap := m.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Hello, fellow citizen!", snap.Messages[0].Content)
}

func TestSaveTranscript(t *testing.T) {
	m, eng := newScreen(t, "jawab")
	m = loaded(t, m, eng)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	saved, ok := cmd().(TranscriptSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)
	assert.FileExists(t, saved.Path)

	m, _ = m.Update(saved)
	notice, isErr := m.Notice()
	assert.False(t, isErr)
	assert.Contains(t, notice, "Conversation saved to")
}

func TestSaveEmptyTranscriptFails(t *testing.T) {
	m, _ := newScreen(t, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	saved := cmd().(TranscriptSavedMsg)
	assert.ErrorIs(t, saved.Err, storage.ErrEmptyTranscript)
}

func TestBack(t *testing.T) {
	m, _ := newScreen(t, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, BackMsg{}, cmd())
}

func TestEngineErrorShown(t *testing.T) {
	m, _ := newScreen(t, "")
	m, _ = m.Update(SnapshotMsg{Snapshot: conversation.Snapshot{
		LastError: "Model file not found at the selected path.",
		HasError:  true,
	}})
	assert.Contains(t, m.View(), "Model file not found at the selected path.")
}

func TestBusySnapshotStartsSpinner(t *testing.T) {
	m, _ := newScreen(t, "")
	m, cmd := m.Update(SnapshotMsg{Snapshot: conversation.Snapshot{Busy: true}})
	assert.NotNil(t, cmd)
	assert.True(t, m.spinner.Active())
	assert.Contains(t, m.renderMessages(), "Loading model...")

	m, _ = m.Update(SnapshotMsg{Snapshot: conversation.Snapshot{}})
	assert.False(t, m.spinner.Active())
}
