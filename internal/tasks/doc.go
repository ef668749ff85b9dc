// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks queues model downloads and runs them in the background.
//
// # Key Types
//
//   - Task: one download with its status and latest event
//   - Queue: thread-safe list of tasks; a file can only be queued once
//   - Runner: executes queued tasks through a Downloader
//
// # Usage
//
//	queue := tasks.NewQueue(20)
//	runner := tasks.NewRunner(queue, pipeline, func(u tasks.Update) {
//	    program.Send(u)
//	})
//	runner.Start(ctx)
//	defer runner.Stop()
//
//	task, err := queue.Enqueue(descriptor)
//	if errors.Is(err, tasks.ErrDuplicate) {
//	    // already downloading
//	}
//	queue.Cancel(task.ID)
package tasks
