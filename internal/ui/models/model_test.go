// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/store"
	"github.com/jeranaias/konsulton-tui/internal/tasks"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
)

var testCatalog = []catalog.Descriptor{
	{ID: "a", DisplayName: "Alpha", FileName: "alpha.task", DownloadURL: "http://127.0.0.1/a", ExpectedSizeMB: 10},
	{ID: "b", DisplayName: "Beta", FileName: "beta.task", DownloadURL: "http://127.0.0.1/b", ExpectedSizeMB: 2048},
}

func newScreen(t *testing.T) (Model, *store.Store, *tasks.Queue) {
	t.Helper()
	st := store.New(t.TempDir())
	q := tasks.NewQueue(10)
	m := New(Deps{
		Theme:   styles.NewTheme("dark"),
		Printer: i18n.NewPrinter("en"),
		Store:   st,
		Queue:   q,
		Catalog: testCatalog,
	})
	return m, st, q
}

func writeModel(t *testing.T, st *store.Store, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(st.Path(name), []byte("weights"), 0644))
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSelectMissingModelStartsDownload(t *testing.T) {
	m, _, q := newScreen(t)

	m, cmd := m.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.True(t, m.IsDownloading("alpha.task"))
	require.NotNil(t, q.ActiveFor("alpha.task"))

	m, _ = m.Update(keyMsg("d"))
	assert.Len(t, q.All(), 1, "second request for the same file is ignored")
}

func TestSelectInstalledModelRequestsLoad(t *testing.T) {
	m, st, _ := newScreen(t)
	writeModel(t, st, "alpha.task")
	m, _ = m.Update(RefreshMsg{})
	require.True(t, m.IsInstalled("alpha.task"))

	_, cmd := m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(LoadRequestMsg)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(st.Dir(), "alpha.task"), msg.Path)
	assert.Equal(t, "a", msg.Descriptor.ID)
}

func TestCursorMovement(t *testing.T) {
	m, _, _ := newScreen(t)
	m, _ = m.Update(keyMsg("k"))
	assert.Equal(t, "a", m.Selected().ID, "stays at top")
	m, _ = m.Update(keyMsg("down"))
	m, _ = m.Update(keyMsg("j"))
	assert.Equal(t, "b", m.Selected().ID, "stays at bottom")
}

func TestDelete(t *testing.T) {
	m, st, _ := newScreen(t)
	writeModel(t, st, "alpha.task")
	m, _ = m.Update(RefreshMsg{})

	m, _ = m.Update(keyMsg("x"))
	assert.False(t, m.IsInstalled("alpha.task"))
	status, isErr := m.Status()
	assert.Equal(t, "alpha.task deleted.", status)
	assert.False(t, isErr)

	m, _ = m.Update(keyMsg("x"))
	status, _ = m.Status()
	assert.Equal(t, "Nothing to delete.", status)
}

func TestDeleteDisabledWhileDownloading(t *testing.T) {
	m, st, _ := newScreen(t)
	writeModel(t, st, "alpha.task")
	m, _ = m.Update(keyMsg("d"))
	require.True(t, m.IsDownloading("alpha.task"))

	m, _ = m.Update(keyMsg("x"))
	assert.True(t, st.Exists("alpha.task"))
}

func TestDownloadUpdates(t *testing.T) {
	m, st, _ := newScreen(t)
	d := testCatalog[0]

	m, _ = m.Update(tasks.Update{TaskID: "t1", Descriptor: d, State: download.Progress(50, 5, 10)})
	assert.True(t, m.IsDownloading(d.FileName))
	assert.Contains(t, m.View(), "5/10 MB")

	writeModel(t, st, d.FileName)
	m, _ = m.Update(tasks.Update{TaskID: "t1", Descriptor: d, State: download.Success()})
	assert.False(t, m.IsDownloading(d.FileName))
	assert.True(t, m.IsInstalled(d.FileName))
	status, isErr := m.Status()
	assert.Equal(t, "Download complete.", status)
	assert.False(t, isErr)
}

func TestDownloadFailureShowsMessage(t *testing.T) {
	m, _, _ := newScreen(t)
	d := testCatalog[1]
	m, _ = m.Update(tasks.Update{TaskID: "t1", Descriptor: d, State: download.Starting()})
	m, _ = m.Update(tasks.Update{TaskID: "t1", Descriptor: d,
		State: download.Failure(download.KindInsufficientSpace, "Not enough storage space.")})

	status, isErr := m.Status()
	assert.Equal(t, "Not enough storage space.", status)
	assert.True(t, isErr)
	assert.False(t, m.IsInstalled(d.FileName))
	assert.False(t, m.IsDownloading(d.FileName))
}

func TestCancelQueuedDownload(t *testing.T) {
	m, _, q := newScreen(t)
	m, _ = m.Update(keyMsg("d"))
	m, _ = m.Update(keyMsg("c"))

	assert.False(t, m.IsDownloading("alpha.task"))
	assert.Nil(t, q.ActiveFor("alpha.task"))
	status, _ := m.Status()
	assert.Equal(t, "Download canceled.", status)
}

func TestNoStorageAccess(t *testing.T) {
	m, _, q := newScreen(t)
	m.deps.Store = store.New(filepath.Join(t.TempDir(), "missing", "dir"))

	m, _ = m.Update(keyMsg("d"))
	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Equal(t, "No write access to the models folder.", status)
	assert.Zero(t, q.Count())
}

func TestOpenChat(t *testing.T) {
	m, _, _ := newScreen(t)
	_, cmd := m.Update(keyMsg("tab"))
	require.NotNil(t, cmd)
	assert.IsType(t, OpenChatMsg{}, cmd())
}

func TestView(t *testing.T) {
	m, st, _ := newScreen(t)
	writeModel(t, st, "beta.task")
	m, _ = m.Update(RefreshMsg{})

	v := m.View()
	assert.Contains(t, v, "Choose a Model")
	assert.Contains(t, v, "Alpha")
	assert.Contains(t, v, "2.0 GB")
	assert.Contains(t, v, "installed")
	assert.Contains(t, v, "not downloaded")
	assert.Contains(t, v, "Free space:")
}
