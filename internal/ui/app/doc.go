// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model. It switches between the model
// list and the chat screen and turns background channels (download
// updates, engine snapshots, directory changes) into messages.
package app
