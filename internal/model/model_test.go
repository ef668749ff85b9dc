// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewChatMessage(t *testing.T) {
	before := time.Now().UnixMilli()
	m := NewUserMessage("Halo")
	after := time.Now().UnixMilli()

	assert.True(t, m.IsUser)
	assert.False(t, m.IsLoading)
	assert.Equal(t, "Halo", m.Content)
	assert.GreaterOrEqual(t, m.Timestamp, before)
	assert.LessOrEqual(t, m.Timestamp, after)
	assert.Len(t, m.ID, 36)
}

func TestNewChatMessage_IDsUniqueAndOrdered(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 200; i++ {
		id := NewAssistantMessage("x").ID
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNewLoadingMessage(t *testing.T) {
	m := NewLoadingMessage()
	assert.True(t, m.IsLoading)
	assert.False(t, m.IsUser)
	assert.Equal(t, "...", m.Content)
}

func TestPromptLine(t *testing.T) {
	assert.Equal(t, "User: Hi", NewUserMessage("Hi").PromptLine())
	assert.Equal(t, "Assistant: Hello", NewAssistantMessage("Hello").PromptLine())
}

func TestPreview(t *testing.T) {
	m := NewUserMessage("first line\nsecond line")
	assert.Equal(t, "first line", m.Preview(50))
	assert.Equal(t, "firs...", m.Preview(7))
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AppendAndMessagesCopy(t *testing.T) {
	c := NewConversation()
	c.Append(NewUserMessage("a"))
	c.Append(NewAssistantMessage("b"))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	msgs[0].Content = "mutated"

	assert.Equal(t, "a", c.Messages()[0].Content)
}

func TestConversation_Remove(t *testing.T) {
	c := NewConversation()
	m := NewUserMessage("q")
	c.Append(m)

	assert.True(t, c.Remove(m.ID))
	assert.False(t, c.Remove(m.ID))
	assert.Empty(t, c.Messages())
}

func TestConversation_Tail(t *testing.T) {
	c := NewConversation()
	for i := 0; i < 8; i++ {
		c.Append(NewChatMessage(fmt.Sprint(i), i%2 == 0))
	}
	c.Append(NewUserMessage("new"))
	c.Append(NewLoadingMessage())

	tail := c.Tail(6)
	require.Len(t, tail, 6)
	assert.Equal(t, "3", tail[0].Content)
	assert.Equal(t, "new", tail[5].Content)
}

func TestConversation_TailSkipsPlaceholders(t *testing.T) {
	c := NewConversation()
	c.Append(NewUserMessage("a"))
	c.Append(NewLoadingMessage())
	c.Append(NewAssistantMessage("b"))

	tail := c.Tail(6)
	require.Len(t, tail, 2)
	assert.Equal(t, "a", tail[0].Content)
	assert.Equal(t, "b", tail[1].Content)
}

func TestConversation_TailShort(t *testing.T) {
	c := NewConversation()
	assert.Empty(t, c.Tail(6))

	c.Append(NewLoadingMessage())
	assert.Empty(t, c.Tail(6))

	c.Append(NewUserMessage("only"))
	assert.Len(t, c.Tail(6), 1)
}

func TestConversation_Reset(t *testing.T) {
	c := NewConversation()
	c.Append(NewUserMessage("a"))
	c.Reset(NewAssistantMessage("greeting"))

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "greeting", msgs[0].Content)
}

func TestConversation_Prune(t *testing.T) {
	c := NewConversation()
	for i := 0; i < MaxMessages+10; i++ {
		c.Append(NewUserMessage(fmt.Sprint(i)))
	}
	msgs := c.Messages()
	assert.Len(t, msgs, MaxMessages)
	assert.Equal(t, "10", msgs[0].Content)
}

func TestConversation_Persistable(t *testing.T) {
	c := NewConversation()
	c.Append(NewUserMessage("a"))
	c.Append(NewLoadingMessage())

	assert.Len(t, c.Persistable(), 1)
	assert.Len(t, c.Messages(), 2)
}
