// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/konsulton-tui/internal/model"
)

func newStore(t *testing.T, max int) *TranscriptStore {
	t.Helper()
	s, err := NewTranscriptStore(filepath.Join(t.TempDir(), "transcripts"), max)
	require.NoError(t, err)
	return s
}

func sampleMessages() []model.ChatMessage {
	return []model.ChatMessage{
		model.NewAssistantMessage("Halo saudara!"),
		model.NewUserMessage("Apa itu\nGGUF?"),
		model.NewAssistantMessage("Format file model."),
		model.NewLoadingMessage(),
	}
}

func TestNewTranscriptStore(t *testing.T) {
	s := newStore(t, -1)
	assert.Equal(t, DefaultMaxTranscripts, s.MaxTranscripts)
	info, err := os.Stat(s.BaseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore(t, 10)

	id, err := s.Save(sampleMessages(), "gemma.gguf")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, "gemma.gguf", loaded.Model)
	assert.Equal(t, "Apa itu GGUF?", loaded.Summary)
	require.Len(t, loaded.Messages, 3, "loading placeholder is not saved")
	for _, m := range loaded.Messages {
		assert.False(t, m.IsLoading)
	}
	assert.Equal(t, sampleMessages()[1].Content, loaded.Messages[1].Content)
	assert.True(t, loaded.Messages[1].IsUser)
}

func TestSaveEmpty(t *testing.T) {
	s := newStore(t, 10)
	_, err := s.Save([]model.ChatMessage{model.NewLoadingMessage()}, "x.gguf")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestLoadNotFound(t *testing.T) {
	s := newStore(t, 10)
	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
	assert.ErrorIs(t, s.Delete("missing"), ErrTranscriptNotFound)
}

func TestListNewestFirstAndPrune(t *testing.T) {
	s := newStore(t, 2)

	var ids []string
	for _, text := range []string{"satu", "dua", "tiga"} {
		id, err := s.SaveTranscript(&Transcript{
			Messages: []model.ChatMessage{model.NewUserMessage(text)},
		})
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, ids[2], metas[0].ID)
	assert.Equal(t, ids[1], metas[1].ID)
	assert.Equal(t, "tiga", metas[0].Preview)
	assert.Equal(t, 1, metas[0].MessageCount)

	_, err = s.Load(ids[0])
	assert.ErrorIs(t, err, ErrTranscriptNotFound)

	first, err := s.LoadByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, ids[2], first.ID)
	_, err = s.LoadByIndex(5)
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestListSkipsCorruptFiles(t *testing.T) {
	s := newStore(t, 10)
	require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir, "bad.json"), []byte("{"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir, "notes.txt"), []byte("x"), 0600))
	_, err := s.Save(sampleMessages(), "")
	require.NoError(t, err)

	metas, err := s.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestSearch(t *testing.T) {
	s := newStore(t, 10)
	_, err := s.Save(sampleMessages(), "")
	require.NoError(t, err)
	_, err = s.Save([]model.ChatMessage{model.NewUserMessage("resep nasi goreng")}, "")
	require.NoError(t, err)

	res, err := s.Search("format FILE")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Apa itu GGUF?", res[0].Summary)

	res, err = s.Search("")
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestClear(t *testing.T) {
	s := newStore(t, 10)
	_, err := s.Save(sampleMessages(), "")
	require.NoError(t, err)
	require.NoError(t, s.Clear())
	metas, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestFilePathStaysInBaseDir(t *testing.T) {
	s := newStore(t, 10)
	assert.Equal(t, filepath.Join(s.BaseDir, "passwd.json"), s.filePath("../../etc/passwd"))
}

func TestExportMarkdown(t *testing.T) {
	tr := &Transcript{
		Summary:   "Apa itu GGUF?",
		Model:     "gemma.gguf",
		CreatedAt: time.Now(),
		Messages:  sampleMessages()[:3],
	}
	md := tr.ExportMarkdown()
	assert.True(t, strings.HasPrefix(md, "# Apa itu GGUF?"))
	assert.Contains(t, md, "`gemma.gguf`")
	assert.Contains(t, md, "**User**")
	assert.Contains(t, md, "**Assistant**")
	assert.Contains(t, md, "Format file model.")
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "No transcripts found.", FormatList(nil))
	out := FormatList([]TranscriptMeta{{ID: "abc", MessageCount: 3, Preview: "halo", UpdatedAt: time.Now()}})
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "halo")
}
