// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// MaxMessages is the maximum number of messages kept in a conversation.
// When exceeded, the oldest messages are pruned to prevent unbounded
// memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an ordered message log. It is not safe for concurrent
// use; the conversation engine serializes access.
type Conversation struct {
	messages []ChatMessage
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: make([]ChatMessage, 0, 16)}
}

// Append adds msg at the end.
func (c *Conversation) Append(msg ChatMessage) {
	c.messages = append(c.messages, msg)
	c.pruneOldMessages()
}

// Reset replaces the log with msgs.
func (c *Conversation) Reset(msgs ...ChatMessage) {
	c.messages = append(c.messages[:0:0], msgs...)
}

// Remove deletes the message with id and reports whether it was found.
func (c *Conversation) Remove(id string) bool {
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Tail returns up to n of the newest non-placeholder messages in
// chronological order.
func (c *Conversation) Tail(n int) []ChatMessage {
	out := make([]ChatMessage, 0, n)
	for i := len(c.messages) - 1; i >= 0 && len(out) < n; i-- {
		if c.messages[i].IsLoading {
			continue
		}
		out = append(out, c.messages[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Messages returns a copy of the log in insertion order.
func (c *Conversation) Messages() []ChatMessage {
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Persistable returns the messages without placeholders.
func (c *Conversation) Persistable() []ChatMessage {
	out := make([]ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if !m.IsLoading {
			out = append(out, m)
		}
	}
	return out
}

// pruneOldMessages keeps the most recent MaxMessages messages.
func (c *Conversation) pruneOldMessages() {
	if len(c.messages) <= MaxMessages {
		return
	}
	drop := len(c.messages) - MaxMessages
	c.messages = append(c.messages[:0:0], c.messages[drop:]...)
}
