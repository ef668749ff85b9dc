// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// # Key Types
//
//   - ChatMessage: one message with a UUIDv7 id and unix-millis timestamp
//   - Conversation: ordered message log with placeholder handling
//   - Role: prompt speaker (user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Halo"))
//	conv.Append(model.NewLoadingMessage())
//	history := conv.Tail(6)
package model
