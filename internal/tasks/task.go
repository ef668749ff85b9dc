// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/download"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// TaskStatus represents the current state of a download job.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting to be executed
	TaskStatusQueued TaskStatus = "Queued"

	// TaskStatusRunning indicates the download is in progress
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusComplete indicates the file was written successfully
	TaskStatusComplete TaskStatus = "Complete"

	// TaskStatusFailed indicates the download ended with an error
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusCanceled indicates the task was canceled by the user
	TaskStatusCanceled TaskStatus = "Canceled"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed || s == TaskStatusCanceled
}

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is one download of a catalogue model.
type Task struct {
	ID         string
	Descriptor catalog.Descriptor
	Status     TaskStatus

	// Last is the most recent download event.
	Last download.State

	CreatedAt time.Time
	StartTime time.Time
	EndTime   time.Time

	// Error is the failure message if the task failed.
	Error string

	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewTask creates a queued task for d.
func NewTask(d catalog.Descriptor) *Task {
	return &Task{
		ID:         uuid.New().String(),
		Descriptor: d,
		Status:     TaskStatusQueued,
		Last:       download.Idle(),
		CreatedAt:  time.Now(),
	}
}

// =============================================================================
// TASK METHODS
// =============================================================================

// SetStatus updates the task status (thread-safe).
// Valid transitions: Queued -> Running -> Complete/Failed/Canceled
func (t *Task) SetStatus(status TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isValidTransition(t.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, status)
	}
	t.Status = status
	return nil
}

func isValidTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case TaskStatusQueued:
		return to == TaskStatusRunning || to == TaskStatusCanceled
	case TaskStatusRunning:
		return to == TaskStatusComplete || to == TaskStatusFailed || to == TaskStatusCanceled
	default:
		return false
	}
}

// GetStatus returns the current task status (thread-safe).
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// SetState records the latest download event.
func (t *Task) SetState(s download.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Last = s
}

// State returns the latest download event.
func (t *Task) State() download.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Last
}

// GetError returns the error message (thread-safe).
func (t *Task) GetError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// markStarted moves a queued task to running and stores its cancel func.
func (t *Task) markStarted(cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != TaskStatusQueued {
		return false
	}
	t.Status = TaskStatusRunning
	t.StartTime = time.Now()
	t.cancel = cancel
	return true
}

// finish moves the task to a terminal status. A task already canceled
// stays canceled.
func (t *Task) finish(status TaskStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status == TaskStatusCanceled {
		return
	}
	t.Status = status
	t.Error = errMsg
	t.EndTime = time.Now()
	t.cancel = nil
}

// Cancel cancels a queued or running task.
// Returns true if the task was canceled, false if it had already finished.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != TaskStatusRunning && t.Status != TaskStatusQueued {
		return false
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.Status = TaskStatusCanceled
	t.EndTime = time.Now()
	return true
}

// Duration returns how long the task has been running or took to complete.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// IsRunning returns true if the download is in progress.
func (t *Task) IsRunning() bool {
	return t.GetStatus() == TaskStatusRunning
}

// IsComplete returns true if the task has finished (success, failure, or canceled).
func (t *Task) IsComplete() bool {
	return t.GetStatus().IsTerminal()
}

// Summary returns a one-line summary of the task.
func (t *Task) Summary() string {
	t.mu.RLock()
	status, last := t.Status, t.Last
	t.mu.RUnlock()

	summary := fmt.Sprintf("[%s] %s - %s", t.ID[:8], t.Descriptor.DisplayName, status)
	if status == TaskStatusRunning && last.Phase == download.PhaseDownloading {
		summary += fmt.Sprintf(" %d%%", last.Percent)
	}
	if d := t.Duration(); d > 0 {
		summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return summary
}

// Clone creates a copy of the task for reading.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return &Task{
		ID:         t.ID,
		Descriptor: t.Descriptor,
		Status:     t.Status,
		Last:       t.Last,
		CreatedAt:  t.CreatedAt,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime,
		Error:      t.Error,
	}
}
