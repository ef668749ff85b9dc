// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/config"
	"github.com/jeranaias/konsulton-tui/internal/offline"
	"github.com/jeranaias/konsulton-tui/internal/ollama"
)

// NewFactory builds the instrumented factory for the configured backend.
// In offline mode the backend URL must be loopback.
func NewFactory(cfg *config.Config) (Factory, error) {
	inf := cfg.Inference
	timeout := time.Duration(inf.RequestTimeout) * time.Second

	switch inf.Backend {
	case config.BackendOllama, "":
		if err := offline.ValidateURL(inf.OllamaURL); err != nil {
			return nil, fmt.Errorf("ollama_url: %w", err)
		}
		return Instrument(config.BackendOllama, NewOllamaFactory(ollamaClient(inf, timeout))), nil

	case config.BackendOpenAI:
		if err := offline.ValidateURL(inf.OpenAIURL); err != nil {
			return nil, fmt.Errorf("openai_url: %w", err)
		}
		return Instrument(config.BackendOpenAI, NewOpenAIFactory(inf.OpenAIURL, inf.OpenAIKey, timeout)), nil

	default:
		return nil, fmt.Errorf("unknown inference backend %q", inf.Backend)
	}
}

func ollamaClient(inf config.InferenceConfig, timeout time.Duration) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:         inf.OllamaURL,
		GenerateTimeout: timeout,
		KeepAlive:       inf.KeepAlive,
	})
}

// Forget drops the backend's own copy of a deleted model file. Only the
// ollama backend keeps one; other backends do nothing.
func Forget(ctx context.Context, cfg *config.Config, modelPath string) error {
	inf := cfg.Inference
	if inf.Backend != config.BackendOllama && inf.Backend != "" {
		return nil
	}
	if err := offline.ValidateURL(inf.OllamaURL); err != nil {
		return fmt.Errorf("ollama_url: %w", err)
	}
	client := ollamaClient(inf, time.Duration(inf.RequestTimeout)*time.Second)
	return NewOllamaFactory(client).Forget(ctx, modelPath)
}
