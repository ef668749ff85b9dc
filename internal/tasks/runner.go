// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/download"
)

// =============================================================================
// TASK RUNNER
// =============================================================================

// Downloader produces the event sequence of one download. The channel must
// end with a terminal state and then be closed.
type Downloader interface {
	Download(ctx context.Context, d catalog.Descriptor) <-chan download.State
}

// Update is one download event of a task, as seen by a listener.
type Update struct {
	TaskID     string
	Descriptor catalog.Descriptor
	State      download.State
}

// Listener receives every event of every task. It runs on the task's
// goroutine and must not block for long.
type Listener func(Update)

// Runner executes download tasks from a queue.
type Runner struct {
	queue      *Queue
	downloader Downloader
	listener   Listener

	wg      sync.WaitGroup
	stop    chan struct{}
	stopped atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	maxConcurrent int
	semaphore     chan struct{}
	pollInterval  time.Duration
}

// NewRunner creates a runner that downloads one file at a time.
func NewRunner(queue *Queue, downloader Downloader, listener Listener) *Runner {
	return NewRunnerWithOptions(queue, downloader, listener, 1)
}

// NewRunnerWithOptions creates a runner with a custom concurrency limit.
func NewRunnerWithOptions(queue *Queue, downloader Downloader, listener Listener, maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Runner{
		queue:         queue,
		downloader:    downloader,
		listener:      listener,
		stop:          make(chan struct{}),
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
		pollInterval:  100 * time.Millisecond,
	}
}

// =============================================================================
// RUNNER LIFECYCLE
// =============================================================================

// Start begins processing tasks from the queue. Cancelling ctx cancels
// every running download.
func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	go r.processLoop()
}

// Stop cancels running downloads and waits for them to finish.
func (r *Runner) Stop() {
	if !r.stopped.CompareAndSwap(false, true) {
		return
	}
	close(r.stop)
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// =============================================================================
// TASK PROCESSING
// =============================================================================

// processLoop starts queued tasks whenever a slot is free.
func (r *Runner) processLoop() {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-r.ctx.Done():
			return
		case <-r.queue.wake:
		case <-ticker.C:
		}
		r.startAvailable()
	}
}

func (r *Runner) startAvailable() {
	for !r.stopped.Load() {
		select {
		case r.semaphore <- struct{}{}:
		default:
			return
		}

		ctx, cancel := context.WithCancel(r.ctx)
		task := r.queue.claimNext(cancel)
		if task == nil {
			cancel()
			<-r.semaphore
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer func() { <-r.semaphore }()
			defer cancel()
			r.executeTask(ctx, task)
			r.queue.poke()
		}()
	}
}

// executeTask drains the task's download and records the outcome.
func (r *Runner) executeTask(ctx context.Context, task *Task) {
	log.Printf("TASK_START | id=%s model=%s", task.ID[:8], task.Descriptor.ID)

	last := download.Failure(download.KindGeneric, "")
	for s := range r.downloader.Download(ctx, task.Descriptor) {
		last = s
		task.SetState(s)
		if r.listener != nil {
			r.listener(Update{TaskID: task.ID, Descriptor: task.Descriptor, State: s})
		}
	}

	switch {
	case last.Phase == download.PhaseSuccess:
		r.queue.finish(task, TaskStatusComplete, "")
	case last.Kind == download.KindCanceled:
		r.queue.finish(task, TaskStatusCanceled, last.Message)
	default:
		r.queue.finish(task, TaskStatusFailed, last.Message)
	}
	log.Printf("TASK_DONE | id=%s status=%s elapsed=%s",
		task.ID[:8], task.GetStatus(), task.Duration().Round(time.Millisecond))
}
