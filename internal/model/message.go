// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoadingContent is the text of the placeholder shown while a reply is
// being generated.
const LoadingContent = "..."

// =============================================================================
// ROLE
// =============================================================================

// Role names the speaker of a message in prompts and transcripts.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// PromptLabel is the speaker prefix used when a message is rendered into
// a completion prompt.
func (r Role) PromptLabel() string {
	if r == RoleUser {
		return "User"
	}
	return "Assistant"
}

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// ChatMessage is one entry of a conversation.
type ChatMessage struct {
	// ID is unique and time ordered (UUIDv7).
	ID string `json:"id"`

	Content string `json:"content"`
	IsUser  bool   `json:"is_user"`

	// Timestamp is unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// IsLoading marks the placeholder. Never persisted.
	IsLoading bool `json:"-"`
}

// NewChatMessage creates a message stamped with the current time.
func NewChatMessage(content string, isUser bool) ChatMessage {
	return ChatMessage{
		ID:        generateID(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewUserMessage creates a message from the user.
func NewUserMessage(content string) ChatMessage {
	return NewChatMessage(content, true)
}

// NewAssistantMessage creates a reply from the assistant.
func NewAssistantMessage(content string) ChatMessage {
	return NewChatMessage(content, false)
}

// NewLoadingMessage creates the assistant placeholder.
func NewLoadingMessage() ChatMessage {
	m := NewChatMessage(LoadingContent, false)
	m.IsLoading = true
	return m
}

// Role returns RoleUser or RoleAssistant.
func (m ChatMessage) Role() Role {
	if m.IsUser {
		return RoleUser
	}
	return RoleAssistant
}

// Time returns Timestamp as a time.Time.
func (m ChatMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// PromptLine renders the message as "User: ..." or "Assistant: ...".
func (m ChatMessage) PromptLine() string {
	return m.Role().PromptLabel() + ": " + m.Content
}

// Preview returns the first line of the content, truncated to maxLen runes.
func (m ChatMessage) Preview(maxLen int) string {
	content := m.Content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	runes := []rune(content)
	if maxLen > 3 && len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return content
}

// generateID returns a UUIDv7, falling back to v4 if the clock source fails.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
