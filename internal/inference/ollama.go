// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/ollama"
)

// ModelNamePrefix starts every model konsulton registers with ollama.
const ModelNamePrefix = "konsulton-"

// releaseTimeout bounds the unload call made on Release.
const releaseTimeout = 5 * time.Second

// OllamaFactory registers model files with an ollama server.
type OllamaFactory struct {
	client *ollama.Client
}

// NewOllamaFactory creates a factory that talks to client.
func NewOllamaFactory(client *ollama.Client) *OllamaFactory {
	return &OllamaFactory{client: client}
}

// Create registers modelPath under a name derived from its file name and
// returns an adapter for it.
func (f *OllamaFactory) Create(ctx context.Context, modelPath string) (Adapter, error) {
	if err := f.client.CheckRunning(ctx); err != nil {
		return nil, &InitializationError{ModelPath: modelPath, Err: classify(err)}
	}

	name := ModelName(modelPath)
	if err := f.client.Create(ctx, name, "FROM "+modelPath); err != nil {
		return nil, &InitializationError{ModelPath: modelPath, Err: classify(err)}
	}
	return &ollamaAdapter{client: f.client, model: name}, nil
}

// Forget deletes the ollama model registered for modelPath. A model ollama
// does not list is not an error.
func (f *OllamaFactory) Forget(ctx context.Context, modelPath string) error {
	name := ModelName(modelPath)
	models, err := f.client.ListModels(ctx)
	if err != nil {
		return classify(err)
	}
	for _, m := range models {
		if strings.TrimSuffix(m.Name, ":latest") == name {
			return f.client.Delete(ctx, name)
		}
	}
	return nil
}

// ModelName derives the ollama model name for a file: the prefix plus the
// lowercased file stem with anything outside [a-z0-9._-] replaced by '-'.
func ModelName(modelPath string) string {
	base := filepath.Base(modelPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-._")
	if name == "" {
		name = "model"
	}
	return ModelNamePrefix + name
}

// classify tags ollama client errors with the backend-neutral sentinels.
func classify(err error) error {
	switch {
	case ollama.IsNotRunning(err):
		return fmt.Errorf("%w: %w", ErrBackendDown, err)
	case ollama.IsTimeout(err):
		return fmt.Errorf("%w: %w", ErrBackendTimeout, err)
	case ollama.IsModelNotFound(err):
		return fmt.Errorf("%w: %w", ErrModelNotServed, err)
	}
	return err
}

type ollamaAdapter struct {
	client *ollama.Client
	model  string

	once sync.Once
}

func (a *ollamaAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Generate(ctx, a.model, prompt, &ollama.Options{Stop: stopSequences})
	if err != nil {
		return "", &InferenceError{Backend: "ollama", Err: classify(err)}
	}
	return resp.Response, nil
}

func (a *ollamaAdapter) Release() error {
	var err error
	a.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		err = a.client.Unload(ctx, a.model)
	})
	return err
}
