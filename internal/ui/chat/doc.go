// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the conversation screen of the TUI.
//
// The screen never mutates the conversation itself. It renders the latest
// conversation.Snapshot forwarded by the root model as SnapshotMsg, and
// turns key presses into engine calls that run as tea.Cmds:
//
//	Enter    send the input line
//	Ctrl+L   clear the chat
//	Ctrl+S   save a transcript
//	Esc      back to the model list
//
// The input is blurred while the engine is busy and a spinner stands in
// for the pending answer.
package chat
