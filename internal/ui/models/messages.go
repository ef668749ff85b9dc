// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "github.com/jeranaias/konsulton-tui/internal/catalog"

// RefreshMsg asks the screen to re-read the models directory.
type RefreshMsg struct{}

// LoadRequestMsg is emitted when the user picks an installed model.
type LoadRequestMsg struct {
	Descriptor catalog.Descriptor
	Path       string
}

// OpenChatMsg is emitted when the user switches to the chat screen.
type OpenChatMsg struct{}
