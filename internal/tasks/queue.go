// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
)

var (
	// ErrDuplicate is returned when a file is already queued or downloading.
	ErrDuplicate = errors.New("download already queued")

	// ErrQueueFull is returned when the queue has reached its size limit.
	ErrQueueFull = errors.New("queue is full")
)

// =============================================================================
// TASK QUEUE
// =============================================================================

// Queue manages download tasks with thread-safe operations.
type Queue struct {
	// tasks is the list of all tasks (both queued and completed)
	tasks []*Task

	// running tracks currently running tasks by ID
	running map[string]*Task

	// maxHistory is the maximum number of completed tasks to keep
	maxHistory int

	// maxQueueSize is the maximum number of queued tasks allowed (0 = unlimited)
	maxQueueSize int

	mu sync.RWMutex

	// wake signals the runner that a task was added
	wake chan struct{}

	// notifyChan sends notifications when tasks finish
	notifyChan chan TaskNotification
}

// TaskNotification represents a notification about a finished task.
type TaskNotification struct {
	TaskID   string
	FileName string
	Status   TaskStatus
	Error    string
	Duration time.Duration
}

// =============================================================================
// QUEUE CREATION
// =============================================================================

// NewQueue creates a new task queue.
// maxHistory sets the maximum number of finished tasks to keep (0 = unlimited).
func NewQueue(maxHistory int) *Queue {
	return NewQueueWithOptions(maxHistory, 0)
}

// NewQueueWithOptions creates a new task queue with custom settings.
func NewQueueWithOptions(maxHistory, maxQueueSize int) *Queue {
	return &Queue{
		tasks:        make([]*Task, 0),
		running:      make(map[string]*Task),
		maxHistory:   maxHistory,
		maxQueueSize: maxQueueSize,
		wake:         make(chan struct{}, 1),
		notifyChan:   make(chan TaskNotification, 100),
	}
}

// =============================================================================
// TASK MANAGEMENT
// =============================================================================

// Enqueue creates and adds a task for d.
func (q *Queue) Enqueue(d catalog.Descriptor) (*Task, error) {
	task := NewTask(d)
	if err := q.Add(task); err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// Add adds a queued task. A file name can only have one active task.
func (q *Queue) Add(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	queuedCount := 0
	for _, t := range q.tasks {
		if t.IsComplete() {
			continue
		}
		if t.Descriptor.FileName == task.Descriptor.FileName {
			return fmt.Errorf("%w: %s", ErrDuplicate, task.Descriptor.FileName)
		}
		if t.GetStatus() == TaskStatusQueued {
			queuedCount++
		}
	}
	if q.maxQueueSize > 0 && queuedCount >= q.maxQueueSize {
		return fmt.Errorf("%w: %d queued tasks (max: %d)", ErrQueueFull, queuedCount, q.maxQueueSize)
	}

	if err := task.SetStatus(TaskStatusQueued); err != nil {
		return err
	}
	q.tasks = append(q.tasks, task)
	q.poke()
	return nil
}

// poke wakes the runner without blocking.
func (q *Queue) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get retrieves a task by ID.
// Returns nil if the task is not found.
func (q *Queue) Get(id string) *Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, task := range q.tasks {
		if task.ID == id {
			return task.Clone()
		}
	}
	return nil
}

// ActiveFor returns the queued or running task for fileName, if any.
func (q *Queue) ActiveFor(fileName string) *Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, task := range q.tasks {
		if task.Descriptor.FileName == fileName && !task.IsComplete() {
			return task.Clone()
		}
	}
	return nil
}

// Cancel cancels a task by ID.
// Returns true if the task was successfully canceled.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, task := range q.tasks {
		if task.ID == id {
			return task.Cancel()
		}
	}
	return false
}

// claimNext atomically moves the oldest queued task to running. cancel
// becomes the task's cancel func.
func (q *Queue) claimNext(cancel context.CancelFunc) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, task := range q.tasks {
		if task.GetStatus() != TaskStatusQueued {
			continue
		}
		if task.markStarted(cancel) {
			q.running[task.ID] = task
			return task
		}
	}
	return nil
}

// finish records the terminal status of a running task.
func (q *Queue) finish(task *Task, status TaskStatus, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task.finish(status, errMsg)
	delete(q.running, task.ID)

	q.notify(TaskNotification{
		TaskID:   task.ID,
		FileName: task.Descriptor.FileName,
		Status:   task.GetStatus(),
		Error:    task.GetError(),
		Duration: task.Duration(),
	})
	q.cleanupLocked()
}

// =============================================================================
// QUEUE QUERIES
// =============================================================================

// All returns a copy of all tasks.
func (q *Queue) All() []*Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*Task, len(q.tasks))
	for i, task := range q.tasks {
		result[i] = task.Clone()
	}
	return result
}

// Running returns a copy of all running tasks.
func (q *Queue) Running() []*Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*Task, 0, len(q.running))
	for _, task := range q.running {
		result = append(result, task.Clone())
	}
	return result
}

// Queued returns copies of the tasks not yet started.
func (q *Queue) Queued() []*Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*Task, 0)
	for _, task := range q.tasks {
		if task.GetStatus() == TaskStatusQueued {
			result = append(result, task.Clone())
		}
	}
	return result
}

// Count returns the total number of tasks.
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

// RunningCount returns the number of running tasks.
func (q *Queue) RunningCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.running)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notifications returns the notification channel.
func (q *Queue) Notifications() <-chan TaskNotification {
	return q.notifyChan
}

// notify sends a notification (must be called with lock held).
func (q *Queue) notify(n TaskNotification) {
	select {
	case q.notifyChan <- n:
	default:
		log.Printf("WARNING: Notification channel full, dropped notification for task %s (status: %s)",
			n.TaskID, n.Status)
	}
}

// =============================================================================
// CLEANUP
// =============================================================================

// cleanupLocked removes the oldest finished tasks beyond maxHistory.
// Must be called with lock held.
func (q *Queue) cleanupLocked() {
	if q.maxHistory <= 0 {
		return
	}

	completed := 0
	for _, task := range q.tasks {
		if task.IsComplete() {
			completed++
		}
	}
	if completed <= q.maxHistory {
		return
	}

	toRemove := completed - q.maxHistory
	kept := make([]*Task, 0, len(q.tasks)-toRemove)
	for _, task := range q.tasks {
		if task.IsComplete() && toRemove > 0 {
			toRemove--
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
}

// Clear removes all finished tasks from the history.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]*Task, 0)
	for _, task := range q.tasks {
		if !task.IsComplete() {
			kept = append(kept, task)
		}
	}
	q.tasks = kept
}

// Summary returns a formatted summary of the queue.
func (q *Queue) Summary() string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var queued, completed, failed int
	for _, task := range q.tasks {
		switch task.GetStatus() {
		case TaskStatusQueued:
			queued++
		case TaskStatusComplete:
			completed++
		case TaskStatusFailed:
			failed++
		}
	}
	return fmt.Sprintf("Running: %d | Queued: %d | Completed: %d | Failed: %d",
		len(q.running), queued, completed, failed)
}
