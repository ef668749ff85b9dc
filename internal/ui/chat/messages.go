// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/konsulton-tui/internal/conversation"
)

// SnapshotMsg carries a new engine state.
type SnapshotMsg struct {
	Snapshot conversation.Snapshot
}

// LoadDoneMsg reports the end of a model load.
type LoadDoneMsg struct {
	Path string
	Err  error
}

// SendDoneMsg reports the end of a turn.
type SendDoneMsg struct {
	Err error
}

// TranscriptSavedMsg reports the result of Ctrl+S.
type TranscriptSavedMsg struct {
	Path string
	Err  error
}

// BackMsg asks the root model to show the model list.
type BackMsg struct{}
