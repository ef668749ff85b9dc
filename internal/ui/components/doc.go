// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides small reusable pieces of the TUI: the
// download progress bar, the thinking spinner and the status bar.
package components
