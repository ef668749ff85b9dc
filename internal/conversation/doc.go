// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation runs a single chat against a loaded model.
//
// The Engine holds the message log, the loaded/busy flags and the last
// error, and publishes a Snapshot to subscribers after every change. Only
// one load or turn can be in flight; overlapping calls get ErrBusy.
//
// # Usage
//
//	eng := conversation.New(conversation.Options{Factory: f, Prefs: p})
//	defer eng.Dispose()
//	updates, cancel := eng.Subscribe()
//	defer cancel()
//	if err := eng.LoadModel(ctx, path); err != nil {
//	    return err
//	}
//	err := eng.SendMessage(ctx, "Apa kabar?")
package conversation
