// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/inference"
	"github.com/jeranaias/konsulton-tui/internal/model"
)

// =============================================================================
// FAKES
// =============================================================================

type memPrefs struct {
	mu   sync.Mutex
	path string
	set  bool
}

func (p *memPrefs) ModelPath(context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path, p.set, nil
}

func (p *memPrefs) SetModelPath(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path, p.set = path, true
	return nil
}

type fakeAdapter struct {
	mu       sync.Mutex
	reply    string
	err      error
	prompts  []string
	block    chan struct{}
	entered  chan struct{}
	released int
}

func (a *fakeAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	block, entered := a.block, a.entered
	a.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return a.reply, a.err
}

func (a *fakeAdapter) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released++
	return nil
}

func (a *fakeAdapter) lastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prompts[len(a.prompts)-1]
}

type fakeFactory struct {
	mu      sync.Mutex
	adapter *fakeAdapter
	err     error
	paths   []string
}

func (f *fakeFactory) Create(_ context.Context, path string) (inference.Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, &inference.InitializationError{ModelPath: path, Err: f.err}
	}
	return f.adapter, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qwen.task")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0644))
	return path
}

func newEngine(t *testing.T, adapter *fakeAdapter) (*Engine, *fakeFactory, *memPrefs) {
	t.Helper()
	factory := &fakeFactory{adapter: adapter}
	prefs := &memPrefs{}
	e := New(Options{Factory: factory, Prefs: prefs, Printer: i18n.NewPrinter("id")})
	t.Cleanup(func() { e.Dispose() })
	return e, factory, prefs
}

func loadedEngine(t *testing.T, adapter *fakeAdapter) *Engine {
	t.Helper()
	e, _, _ := newEngine(t, adapter)
	require.NoError(t, e.LoadModel(context.Background(), modelFile(t)))
	return e
}

func contents(msgs []model.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

// =============================================================================
// LOAD MODEL
// =============================================================================

func TestLoadModel_ExplicitPath(t *testing.T) {
	e, factory, prefs := newEngine(t, &fakeAdapter{})
	path := modelFile(t)

	require.NoError(t, e.LoadModel(context.Background(), path))

	snap := e.Snapshot()
	assert.True(t, snap.ModelLoaded)
	assert.False(t, snap.Busy)
	assert.False(t, snap.HasError)
	assert.Equal(t, path, snap.ModelPath)
	require.Len(t, snap.Messages, 1)
	assert.False(t, snap.Messages[0].IsUser)
	assert.Equal(t, "Halo! Aku adalah Presiden Republik Indonesia. Bagaimana saya bisa membantu Anda hari ini?", snap.Messages[0].Content)

	assert.Equal(t, []string{path}, factory.paths)
	assert.Equal(t, path, prefs.path)
}

func TestLoadModel_FromPreferencesDoesNotRewrite(t *testing.T) {
	e, _, prefs := newEngine(t, &fakeAdapter{})
	path := modelFile(t)
	prefs.path, prefs.set = path, true

	var writes int
	e.prefs = countingPrefs{memPrefs: prefs, writes: &writes}

	require.NoError(t, e.LoadModel(context.Background(), ""))
	assert.True(t, e.Snapshot().ModelLoaded)
	assert.Zero(t, writes)
}

type countingPrefs struct {
	*memPrefs
	writes *int
}

func (c countingPrefs) SetModelPath(ctx context.Context, path string) error {
	*c.writes++
	return c.memPrefs.SetModelPath(ctx, path)
}

func TestLoadModel_MissingExplicitPath(t *testing.T) {
	e, factory, prefs := newEngine(t, &fakeAdapter{})

	err := e.LoadModel(context.Background(), filepath.Join(t.TempDir(), "gone.task"))

	assert.ErrorIs(t, err, ErrModelNotFound)
	snap := e.Snapshot()
	assert.False(t, snap.ModelLoaded)
	assert.False(t, snap.Busy)
	assert.Equal(t, "Model file tidak ditemukan di path yang dipilih.", snap.LastError)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, factory.paths)
	assert.False(t, prefs.set)
}

func TestLoadModel_NothingRemembered(t *testing.T) {
	e, _, _ := newEngine(t, &fakeAdapter{})

	err := e.LoadModel(context.Background(), "")

	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.Equal(t, "Model belum dipilih atau tidak ditemukan.", e.Snapshot().LastError)
}

func TestLoadModel_MissingKeepsPreviousModel(t *testing.T) {
	adapter := &fakeAdapter{reply: "Merdeka"}
	e := loadedEngine(t, adapter)

	err := e.LoadModel(context.Background(), "/nope/missing.task")
	require.ErrorIs(t, err, ErrModelNotFound)

	snap := e.Snapshot()
	assert.True(t, snap.ModelLoaded)
	assert.Zero(t, adapter.released)
	require.NoError(t, e.SendMessage(context.Background(), "Halo"))
}

func TestLoadModel_InitializationError(t *testing.T) {
	e, factory, _ := newEngine(t, &fakeAdapter{})
	factory.err = errors.New("unsupported model format")

	err := e.LoadModel(context.Background(), modelFile(t))

	var ie *inference.InitializationError
	require.ErrorAs(t, err, &ie)
	snap := e.Snapshot()
	assert.False(t, snap.ModelLoaded)
	assert.False(t, snap.Busy)
	assert.Equal(t, "Error loading model: unsupported model format", snap.LastError)
}

func TestLoadModel_BackendDown(t *testing.T) {
	e, factory, _ := newEngine(t, &fakeAdapter{})
	factory.err = fmt.Errorf("%w: dial tcp 127.0.0.1:11434: connection refused", inference.ErrBackendDown)

	err := e.LoadModel(context.Background(), modelFile(t))

	require.ErrorIs(t, err, inference.ErrBackendDown)
	assert.Equal(t, "Server inferensi tidak berjalan. Jalankan ollama lalu muat ulang model.", e.Snapshot().LastError)
}

func TestLoadModel_FailedReloadIsNotReady(t *testing.T) {
	first := &fakeAdapter{reply: "ok"}
	e, factory, _ := newEngine(t, first)
	require.NoError(t, e.LoadModel(context.Background(), modelFile(t)))
	require.True(t, e.Snapshot().Ready)

	factory.err = errors.New("corrupt weights")
	require.Error(t, e.LoadModel(context.Background(), modelFile(t)))

	snap := e.Snapshot()
	assert.True(t, snap.ModelLoaded)
	assert.False(t, snap.Ready)
	assert.True(t, snap.HasError)
	assert.ErrorIs(t, e.SendMessage(context.Background(), "Halo"), ErrNotLoaded)
	assert.Equal(t, 1, first.released)
}

func TestLoadModel_ReleasesPreviousAdapter(t *testing.T) {
	first := &fakeAdapter{}
	e, factory, _ := newEngine(t, first)
	require.NoError(t, e.LoadModel(context.Background(), modelFile(t)))

	second := &fakeAdapter{}
	factory.adapter = second
	require.NoError(t, e.LoadModel(context.Background(), modelFile(t)))

	assert.Equal(t, 1, first.released)
	assert.Zero(t, second.released)
}

func TestLoadModel_ClearsConversation(t *testing.T) {
	e := loadedEngine(t, &fakeAdapter{reply: "ok"})
	require.NoError(t, e.SendMessage(context.Background(), "satu"))
	require.Len(t, e.Snapshot().Messages, 3)

	require.NoError(t, e.LoadModel(context.Background(), e.Snapshot().ModelPath))
	assert.Len(t, e.Snapshot().Messages, 1)
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

func TestSendMessage_BlankIsNoop(t *testing.T) {
	adapter := &fakeAdapter{reply: "x"}
	e := loadedEngine(t, adapter)
	before := e.Snapshot()

	for _, text := range []string{"", "   ", "\t\n"} {
		require.NoError(t, e.SendMessage(context.Background(), text))
	}

	assert.Equal(t, before, e.Snapshot())
	assert.Empty(t, adapter.prompts)
}

func TestSendMessage_NotLoadedIsNoop(t *testing.T) {
	adapter := &fakeAdapter{reply: "x"}
	e, _, _ := newEngine(t, adapter)
	before := e.Snapshot()

	err := e.SendMessage(context.Background(), "Hi")

	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, before, e.Snapshot())
	assert.Empty(t, adapter.prompts)
}

func TestSendMessage_Success(t *testing.T) {
	e := loadedEngine(t, &fakeAdapter{reply: "  Hello \n"})

	require.NoError(t, e.SendMessage(context.Background(), "Hi"))

	msgs := e.Snapshot().Messages
	require.GreaterOrEqual(t, len(msgs), 2)
	tail := msgs[len(msgs)-2:]
	assert.Equal(t, "Hi", tail[0].Content)
	assert.True(t, tail[0].IsUser)
	assert.Equal(t, "Hello", tail[1].Content)
	assert.False(t, tail[1].IsUser)
	for _, m := range msgs {
		assert.False(t, m.IsLoading)
	}
}

func TestSendMessage_EmptyReplyFallback(t *testing.T) {
	e := loadedEngine(t, &fakeAdapter{reply: "   "})

	require.NoError(t, e.SendMessage(context.Background(), "Hi"))

	msgs := e.Snapshot().Messages
	assert.Equal(t, "Maaf bro, gagal generate response.", msgs[len(msgs)-1].Content)
}

func TestSendMessage_FailureRemovesOnlyPlaceholder(t *testing.T) {
	adapter := &fakeAdapter{reply: "first"}
	e := loadedEngine(t, adapter)
	require.NoError(t, e.SendMessage(context.Background(), "satu"))

	adapter.err = errors.New("engine crashed")
	err := e.SendMessage(context.Background(), "dua")
	require.Error(t, err)

	snap := e.Snapshot()
	assert.Equal(t, []string{snap.Messages[0].Content, "satu", "first", "dua"}, contents(snap.Messages))
	assert.True(t, snap.HasError)
	assert.Equal(t, "Error: engine crashed", snap.LastError)
	assert.False(t, snap.Busy)
	assert.True(t, snap.ModelLoaded)
}

func TestSendMessage_PromptShape(t *testing.T) {
	adapter := &fakeAdapter{reply: "jawab"}
	e := loadedEngine(t, adapter)

	require.NoError(t, e.SendMessage(context.Background(), "Apa kabar?"))

	prompt := adapter.lastPrompt()
	greeting := e.Snapshot().Messages[0].Content
	// The window already holds the new user message, so it is replayed
	// once in the history and once as the open turn.
	want := strings.TrimSpace(DefaultSystemPrompt) + "\n\n" +
		"Assistant: " + greeting + "\n" +
		"User: Apa kabar?\n" +
		"User: Apa kabar?\nAssistant:"
	assert.Equal(t, want, prompt)
}

func TestSendMessage_HistoryWindow(t *testing.T) {
	adapter := &fakeAdapter{reply: "r"}
	e := loadedEngine(t, adapter)
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		require.NoError(t, e.SendMessage(context.Background(), q))
	}

	require.NoError(t, e.SendMessage(context.Background(), "q5"))
	prompt := adapter.lastPrompt()

	// greeting + 4 exchanges + q5 = 10 messages; the last 6 are replayed.
	assert.NotContains(t, prompt, "User: q1")
	assert.NotContains(t, prompt, "User: q2")
	assert.Contains(t, prompt, "\n\nAssistant: r\nUser: q3\nAssistant: r\n")
	assert.True(t, strings.HasSuffix(prompt, "User: q4\nAssistant: r\nUser: q5\nUser: q5\nAssistant:"))
	assert.Equal(t, 2, strings.Count(prompt, "User: q5"))
}

func TestSendMessage_PlaceholderNotInPrompt(t *testing.T) {
	adapter := &fakeAdapter{reply: "ok"}
	e := loadedEngine(t, adapter)

	require.NoError(t, e.SendMessage(context.Background(), "Hi"))

	assert.NotContains(t, adapter.lastPrompt(), "Assistant: ...")
}

func TestSendMessage_BusyGuard(t *testing.T) {
	adapter := &fakeAdapter{reply: "ok", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := loadedEngine(t, adapter)

	done := e.SendMessageAsync(context.Background(), "first")
	<-adapter.entered

	snap := e.Snapshot()
	assert.True(t, snap.Busy)
	last := snap.Messages[len(snap.Messages)-1]
	assert.True(t, last.IsLoading)
	assert.Equal(t, "...", last.Content)

	assert.ErrorIs(t, e.SendMessage(context.Background(), "second"), ErrBusy)
	assert.ErrorIs(t, e.LoadModel(context.Background(), ""), ErrBusy)

	close(adapter.block)
	require.NoError(t, <-done)

	msgs := e.Snapshot().Messages
	assert.Equal(t, []string{"first", "ok"}, contents(msgs[len(msgs)-2:]))
	assert.Len(t, msgs, 3)
}

func TestSendMessage_Canceled(t *testing.T) {
	adapter := &fakeAdapter{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := loadedEngine(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	done := e.SendMessageAsync(ctx, "Hi")
	<-adapter.entered
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	snap := e.Snapshot()
	assert.False(t, snap.Busy)
	assert.Equal(t, "Hi", snap.Messages[len(snap.Messages)-1].Content)
}

func TestSendMessage_ReplyAfterClearIsDropped(t *testing.T) {
	adapter := &fakeAdapter{reply: "late", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := loadedEngine(t, adapter)

	done := e.SendMessageAsync(context.Background(), "Hi")
	<-adapter.entered
	e.ClearChat()
	close(adapter.block)
	require.NoError(t, <-done)

	snap := e.Snapshot()
	assert.Equal(t, []string{"Halo saudara!"}, contents(snap.Messages))
	assert.False(t, snap.Busy)
	assert.False(t, snap.HasError)
}

func TestSendMessage_ErrorAfterClearLeavesChatClean(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("boom"), block: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := loadedEngine(t, adapter)

	done := e.SendMessageAsync(context.Background(), "Hi")
	<-adapter.entered
	e.ClearChat()
	close(adapter.block)
	require.Error(t, <-done)

	snap := e.Snapshot()
	assert.Equal(t, []string{"Halo saudara!"}, contents(snap.Messages))
	assert.False(t, snap.HasError)
}

// =============================================================================
// CLEAR / DISPOSE
// =============================================================================

func TestClearChat(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("boom")}
	e := loadedEngine(t, adapter)
	e.SendMessage(context.Background(), "Hi")
	require.True(t, e.Snapshot().HasError)

	e.ClearChat()

	snap := e.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Halo saudara!", snap.Messages[0].Content)
	assert.False(t, snap.HasError)
	assert.Empty(t, snap.LastError)
	assert.True(t, snap.ModelLoaded)
}

func TestDispose_Idempotent(t *testing.T) {
	adapter := &fakeAdapter{}
	e := loadedEngine(t, adapter)

	require.NoError(t, e.Dispose())
	require.NoError(t, e.Dispose())

	assert.Equal(t, 1, adapter.released)
	assert.ErrorIs(t, e.SendMessage(context.Background(), "Hi"), ErrDisposed)
	assert.ErrorIs(t, e.LoadModel(context.Background(), ""), ErrDisposed)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

func TestSubscribe_ReceivesCurrentAndUpdates(t *testing.T) {
	e := loadedEngine(t, &fakeAdapter{reply: "ok"})

	ch, cancel := e.Subscribe()
	defer cancel()

	first := <-ch
	assert.True(t, first.ModelLoaded)

	e.ClearChat()
	select {
	case snap := <-ch:
		assert.Equal(t, "Halo saudara!", snap.Messages[0].Content)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after ClearChat")
	}
}

func TestSubscribe_SlowSubscriberGetsNewest(t *testing.T) {
	e := loadedEngine(t, &fakeAdapter{reply: "ok"})
	ch, cancel := e.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		require.NoError(t, e.SendMessage(context.Background(), "q"))
	}

	snap := <-ch
	assert.Len(t, snap.Messages, 7)
	assert.False(t, snap.Busy)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued snapshot: %+v", extra)
	default:
	}
}

func TestSubscribe_ClosedOnCancelAndDispose(t *testing.T) {
	e, _, _ := newEngine(t, &fakeAdapter{})

	a, cancelA := e.Subscribe()
	b, _ := e.Subscribe()
	<-a
	<-b

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok)

	e.Dispose()
	_, ok = <-b
	assert.False(t, ok)

	c, _ := e.Subscribe()
	_, ok = <-c
	assert.False(t, ok)
}

func TestTranscriptExcludesPlaceholder(t *testing.T) {
	adapter := &fakeAdapter{reply: "ok", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := loadedEngine(t, adapter)

	done := e.SendMessageAsync(context.Background(), "Hi")
	<-adapter.entered
	for _, m := range e.Transcript() {
		assert.False(t, m.IsLoading)
	}
	close(adapter.block)
	<-done
}
