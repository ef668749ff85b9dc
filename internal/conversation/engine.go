// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/inference"
	"github.com/jeranaias/konsulton-tui/internal/model"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrModelNotFound means the model file to load is missing.
	ErrModelNotFound = errors.New("model file not found")

	// ErrBusy means a load or a turn is already in flight.
	ErrBusy = errors.New("engine busy")

	// ErrNotLoaded means no model has been loaded yet.
	ErrNotLoaded = errors.New("model not loaded")

	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("engine disposed")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Preferences is the subset of the preferences store the engine needs.
type Preferences interface {
	ModelPath(ctx context.Context) (string, bool, error)
	SetModelPath(ctx context.Context, path string) error
}

// Options configures an Engine.
type Options struct {
	Factory inference.Factory
	Prefs   Preferences
	Printer *i18n.Printer

	// SystemPrompt defaults to DefaultSystemPrompt.
	SystemPrompt string

	// HistoryWindow defaults to DefaultHistoryWindow.
	HistoryWindow int
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable copy of the engine state.
type Snapshot struct {
	Messages    []model.ChatMessage
	ModelLoaded bool
	// Ready reports whether an adapter is attached. It can be false while
	// ModelLoaded is true after a failed reload.
	Ready       bool
	Busy        bool
	LastError   string
	HasError    bool
	ModelPath   string
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns one conversation and the adapter serving it. All state
// changes happen under mu and are published to subscribers as Snapshots.
type Engine struct {
	mu sync.Mutex

	factory       inference.Factory
	prefs         Preferences
	msg           *i18n.Printer
	systemPrompt  string
	historyWindow int

	conv        *model.Conversation
	modelLoaded bool
	busy        bool
	lastError   string
	hasError    bool
	modelPath   string
	adapter     inference.Adapter
	disposed    bool

	subs    map[int]chan Snapshot
	nextSub int
}

// New creates an engine with no model loaded.
func New(opts Options) *Engine {
	if opts.Printer == nil {
		opts.Printer = i18n.Default()
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	return &Engine{
		factory:       opts.Factory,
		prefs:         opts.Prefs,
		msg:           opts.Printer,
		systemPrompt:  opts.SystemPrompt,
		historyWindow: opts.HistoryWindow,
		conv:          model.NewConversation(),
		subs:          make(map[int]chan Snapshot),
	}
}

// =============================================================================
// MODEL LIFECYCLE
// =============================================================================

// LoadModel loads the model at override, or the one remembered in the
// preferences when override is empty. The conversation is cleared first;
// on success it holds a single greeting.
func (e *Engine) LoadModel(ctx context.Context, override string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	e.busy = true
	e.conv.Reset()
	e.publishLocked()
	e.mu.Unlock()

	path, explicit := e.resolvePath(ctx, override)
	if !fileExists(path) {
		key := i18n.ModelNotSelected
		if explicit {
			key = i18n.ModelNotFoundAtPath
		}
		e.fail(e.msg.Sprintf(key))
		log.Printf("MODEL_NOT_FOUND | path=%q explicit=%t", path, explicit)
		return fmt.Errorf("%w: %q", ErrModelNotFound, path)
	}

	if explicit && e.prefs != nil {
		if err := e.prefs.SetModelPath(ctx, path); err != nil {
			log.Printf("PREFS_WRITE_FAILED | key=model_path err=%v", err)
		}
	}

	e.mu.Lock()
	previous := e.adapter
	e.adapter = nil
	e.mu.Unlock()
	if previous != nil {
		if err := previous.Release(); err != nil {
			log.Printf("MODEL_RELEASE_FAILED | err=%v", err)
		}
	}

	if e.factory == nil {
		err := &inference.InitializationError{ModelPath: path, Err: errors.New("no inference backend configured")}
		e.fail(e.msg.Sprintf(i18n.LoadError, inference.Cause(err)))
		return err
	}

	adapter, err := e.factory.Create(ctx, path)
	if err != nil {
		if errors.Is(err, inference.ErrBackendDown) {
			e.fail(e.msg.Sprintf(i18n.BackendDown))
		} else {
			e.fail(e.msg.Sprintf(i18n.LoadError, inference.Cause(err)))
		}
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		adapter.Release()
		return ErrDisposed
	}
	e.adapter = adapter
	e.modelPath = path
	e.modelLoaded = true
	e.busy = false
	e.lastError, e.hasError = "", false
	e.conv.Reset(model.NewAssistantMessage(e.msg.Sprintf(i18n.Greeting)))
	e.publishLocked()
	return nil
}

// resolvePath returns the path to load and whether it was given explicitly.
func (e *Engine) resolvePath(ctx context.Context, override string) (string, bool) {
	if override != "" {
		return override, true
	}
	if e.prefs == nil {
		return "", false
	}
	path, ok, err := e.prefs.ModelPath(ctx)
	if err != nil {
		log.Printf("PREFS_READ_FAILED | key=model_path err=%v", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	return path, false
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// fail records msg as the last error and ends the busy phase.
func (e *Engine) fail(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.lastError, e.hasError = msg, true
	e.busy = false
	e.publishLocked()
}

// =============================================================================
// TURNS
// =============================================================================

// SendMessage runs one turn. Blank input is ignored. The user message and a
// placeholder are visible while the adapter runs; afterwards the
// placeholder is replaced by the reply, or just removed if the adapter
// failed. The prompt window includes the new user message. A reply whose
// placeholder is gone (ClearChat ran meanwhile) is discarded.
func (e *Engine) SendMessage(ctx context.Context, text string) error {
	if util.IsBlank(text) {
		return nil
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if !e.modelLoaded || e.adapter == nil {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}

	placeholder := model.NewLoadingMessage()
	e.conv.Append(model.NewUserMessage(text))
	e.conv.Append(placeholder)
	prompt := BuildPrompt(e.systemPrompt, e.conv.Tail(e.historyWindow), text)
	e.busy = true
	adapter := e.adapter
	e.publishLocked()
	e.mu.Unlock()

	reply, err := adapter.Generate(ctx, prompt)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	e.busy = false
	if !e.conv.Remove(placeholder.ID) {
		// ClearChat ran while the adapter was busy.
		log.Printf("TURN_DROPPED | reason=conversation_reset err=%v", err)
		e.publishLocked()
		return err
	}

	if err != nil {
		e.lastError, e.hasError = e.msg.Sprintf(i18n.SendError, inference.Cause(err)), true
		e.publishLocked()
		return err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = e.msg.Sprintf(i18n.EmptyResponse)
	}
	e.conv.Append(model.NewAssistantMessage(reply))
	e.lastError, e.hasError = "", false
	e.publishLocked()
	return nil
}

// ClearChat replaces the conversation with the short greeting and clears
// the last error. The loaded model is kept.
func (e *Engine) ClearChat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.conv.Reset(model.NewAssistantMessage(e.msg.Sprintf(i18n.ClearGreeting)))
	e.lastError, e.hasError = "", false
	e.publishLocked()
}

// Dispose releases the adapter and closes every subscription. Later calls
// do nothing.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	e.disposed = true
	adapter := e.adapter
	e.adapter = nil
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.mu.Unlock()

	if adapter != nil {
		return adapter.Release()
	}
	return nil
}

// =============================================================================
// ASYNC WRAPPERS
// =============================================================================

// LoadModelAsync runs LoadModel in the background. The returned channel
// receives its result and is then closed.
func (e *Engine) LoadModelAsync(ctx context.Context, override string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- e.LoadModel(ctx, override)
	}()
	return done
}

// SendMessageAsync runs SendMessage in the background.
func (e *Engine) SendMessageAsync(ctx context.Context, text string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- e.SendMessage(ctx, text)
	}()
	return done
}

// =============================================================================
// OBSERVATION
// =============================================================================

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Transcript returns the conversation without placeholders.
func (e *Engine) Transcript() []model.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.Persistable()
}

// Subscribe returns a channel that receives the current state immediately
// and again after every change. A subscriber that falls behind only sees
// the newest state. The returned func cancels the subscription.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshotLocked()
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				close(c)
				delete(e.subs, id)
			}
		})
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Messages:    e.conv.Messages(),
		ModelLoaded: e.modelLoaded,
		Ready:       e.modelLoaded && e.adapter != nil,
		Busy:        e.busy,
		LastError:   e.lastError,
		HasError:    e.hasError,
		ModelPath:   e.modelPath,
	}
}

// publishLocked delivers the current state to every subscriber, replacing
// any snapshot still waiting in a channel.
func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshotLocked()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
