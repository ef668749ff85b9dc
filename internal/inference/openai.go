// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIFactory binds model files to models served by an OpenAI-compatible
// server such as llama-server or LM Studio. The server loads the file
// itself; the factory only checks that it is being served.
type OpenAIFactory struct {
	client *openai.Client
}

// NewOpenAIFactory creates a factory for the server at baseURL (including
// the /v1 suffix).
func NewOpenAIFactory(baseURL, apiKey string, timeout time.Duration) *OpenAIFactory {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIFactory{client: openai.NewClientWithConfig(cfg)}
}

// Create picks the served model whose id matches the file name or stem.
// A server listing exactly one model is assumed to serve the file.
func (f *OpenAIFactory) Create(ctx context.Context, modelPath string) (Adapter, error) {
	list, err := f.client.ListModels(ctx)
	if err != nil {
		return nil, &InitializationError{ModelPath: modelPath, Err: err}
	}

	id, err := matchModel(list.Models, modelPath)
	if err != nil {
		return nil, &InitializationError{ModelPath: modelPath, Err: err}
	}
	return &openaiAdapter{client: f.client, model: id}, nil
}

func matchModel(models []openai.Model, modelPath string) (string, error) {
	base := filepath.Base(modelPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, m := range models {
		id := filepath.Base(m.ID)
		if strings.EqualFold(id, base) || strings.EqualFold(id, stem) {
			return m.ID, nil
		}
	}
	if len(models) == 1 {
		return models[0].ID, nil
	}
	return "", fmt.Errorf("%w: %s (server lists %d models)", ErrModelNotServed, base, len(models))
}

type openaiAdapter struct {
	client *openai.Client
	model  string
}

func (a *openaiAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:  a.model,
		Prompt: prompt,
		Stop:   stopSequences,
	})
	if err != nil {
		return "", &InferenceError{Backend: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &InferenceError{Backend: "openai", Err: errors.New("server returned no choices")}
	}
	return resp.Choices[0].Text, nil
}

func (a *openaiAdapter) Release() error {
	return nil
}
