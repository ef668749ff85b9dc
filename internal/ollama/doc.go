// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the
// Ollama API.
//
// Only the calls needed to serve a downloaded model file are implemented:
// registering it with a Modelfile, raw completion, unloading and removal.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - ClientError: typed error with an ErrorType for errors.Is checks
//   - GenerateRequest, GenerateResponse: /api/generate bodies
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
//	if err := client.Create(ctx, "konsulton-qwen", "FROM /models/qwen.task"); err != nil {
//	    return err
//	}
//	resp, err := client.Generate(ctx, "konsulton-qwen", prompt, nil)
package ollama
