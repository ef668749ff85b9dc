// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models is the model picker screen of the TUI.
//
// It lists the catalogue with install markers, starts and cancels
// downloads through a tasks.Queue, deletes files and asks the parent to
// load the selected model with a LoadRequestMsg. Download progress arrives
// as tasks.Update messages; directory changes as RefreshMsg.
package models
