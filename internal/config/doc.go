// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for konsulton.
//
// Configuration lives in a single TOML file with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ModelsConfig: models directory and download HTTP settings
//   - InferenceConfig: backend selection (ollama or OpenAI-compatible)
//   - ChatConfig: prompt history window and persona override
//   - UIConfig: locale, theme, markdown rendering
//
// # Configuration Precedence
//
//   - Environment variables (KONSULTON_*)
//   - ~/.konsulton/config.toml (KONSULTON_HOME moves the directory)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	window := cfg.Chat.HistoryWindow
package config
