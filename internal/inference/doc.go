// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inference is the boundary between the conversation engine and
// whatever runs the model.
//
// A Factory turns a model file path into an Adapter; the Adapter turns a
// prompt into a completion. Two backends exist: a local ollama server
// (the file is registered with a "FROM <path>" Modelfile) and any
// OpenAI-compatible completions server.
//
// # Errors
//
// Factory failures are *InitializationError, completion failures are
// *InferenceError. Both unwrap to the backend's error.
package inference
