// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/metrics"
)

// =============================================================================
// BOUNDARY
// =============================================================================

// Adapter runs completions against one loaded model.
type Adapter interface {
	// Generate returns the raw completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Release frees the model. Calling it twice is harmless.
	Release() error
}

// Factory creates an Adapter for a model file on disk.
type Factory interface {
	Create(ctx context.Context, modelPath string) (Adapter, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, modelPath string) (Adapter, error)

// Create calls f.
func (f FactoryFunc) Create(ctx context.Context, modelPath string) (Adapter, error) {
	return f(ctx, modelPath)
}

// stopSequences end a raw completion before the model starts writing the
// next user turn itself.
var stopSequences = []string{"\nUser:", "\nuser:"}

// =============================================================================
// ERRORS
// =============================================================================

// ErrModelNotServed is returned when an OpenAI-compatible server does not
// list the requested model.
var ErrModelNotServed = errors.New("model not served")

var (
	// ErrBackendDown means the inference server could not be reached.
	ErrBackendDown = errors.New("inference server not reachable")

	// ErrBackendTimeout means the inference server did not answer in time.
	ErrBackendTimeout = errors.New("inference server timed out")
)

// InitializationError reports that a model could not be loaded.
type InitializationError struct {
	ModelPath string
	Err       error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.ModelPath, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// InferenceError reports a failed completion.
type InferenceError struct {
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference: %v", e.Backend, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Cause returns the innermost message of an InitializationError or
// InferenceError, for display.
func Cause(err error) string {
	var ie *InitializationError
	if errors.As(err, &ie) && ie.Err != nil {
		return ie.Err.Error()
	}
	var fe *InferenceError
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// =============================================================================
// INSTRUMENTATION
// =============================================================================

// Instrument wraps f so every load and completion is logged and counted
// under backend.
func Instrument(backend string, f Factory) Factory {
	return FactoryFunc(func(ctx context.Context, modelPath string) (Adapter, error) {
		start := time.Now()
		a, err := f.Create(ctx, modelPath)
		if err != nil {
			metrics.ObserveModelLoad("error")
			log.Printf("MODEL_LOAD_FAILED | backend=%s path=%s err=%v", backend, modelPath, err)
			return nil, err
		}
		metrics.ObserveModelLoad("success")
		log.Printf("MODEL_LOADED | backend=%s path=%s elapsed=%s", backend, modelPath, time.Since(start).Round(time.Millisecond))
		return &instrumented{backend: backend, Adapter: a}, nil
	})
}

type instrumented struct {
	Adapter
	backend string
}

func (a *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := a.Adapter.Generate(ctx, prompt)
	result := "success"
	if err != nil {
		result = "error"
		log.Printf("INFERENCE_FAILED | backend=%s err=%v", a.backend, err)
	}
	metrics.ObserveInference(a.backend, result, time.Since(start))
	return out, err
}
