// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/transport"
)

func next(content string) transport.ChatMessage {
	return transport.ChatMessage{Role: "user", Content: content}
}

func TestAssembleOrderedHistory(t *testing.T) {
	a := Assembler{SendChatHistory: true}
	history := []*model.Message{
		model.NewUserMessage("q1", ""),
		model.NewMessage(model.RoleAssistant, "a1"),
		model.NewUserMessage("q2", ""),
	}

	got := a.Assemble(history, next("q3"))

	assert.Equal(t, []transport.ChatMessage{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
		{Role: "user", Content: "q3"},
	}, got)
}

func TestAssembleWithoutHistory(t *testing.T) {
	a := Assembler{SendChatHistory: false, SystemPrompt: "be brief"}
	history := []*model.Message{
		model.NewUserMessage("earlier", ""),
	}

	got := a.Assemble(history, next("only this"))

	// History off means the new message alone, without the system prompt.
	assert.Equal(t, []transport.ChatMessage{{Role: "user", Content: "only this"}}, got)
}

func TestAssemblePrependsSystemPrompt(t *testing.T) {
	a := Assembler{SendChatHistory: true, SystemPrompt: "be brief"}

	got := a.Assemble(nil, next("hi"))

	assert.Len(t, got, 2)
	assert.Equal(t, transport.ChatMessage{Role: "system", Content: "be brief"}, got[0])
	assert.Equal(t, "hi", got[1].Content)
}

func TestAssembleSkipsLoadingAndLocalMessages(t *testing.T) {
	a := Assembler{SendChatHistory: true}

	loading := model.NewAssistantMessage()
	loading.Content = "half an answer"

	history := []*model.Message{
		model.NewBackendSystemMessage("context for the model"),
		model.NewSystemMessage("ui notice"),
		model.NewErrorMessage("something failed"),
		model.NewUserMessage("q1", ""),
		loading,
		model.NewMessage(model.RoleAssistant, ""), // empty content
	}

	got := a.Assemble(history, next("q2"))

	assert.Equal(t, []transport.ChatMessage{
		{Role: "system", Content: "context for the model"},
		{Role: "user", Content: "q1"},
		{Role: "user", Content: "q2"},
	}, got)
}

func TestAssembleDeterministic(t *testing.T) {
	a := Assembler{SendChatHistory: true, SystemPrompt: "sys"}
	history := []*model.Message{
		model.NewUserMessage("q", ""),
		model.NewMessage(model.RoleAssistant, "a"),
	}

	first := a.Assemble(history, next("again"))
	second := a.Assemble(history, next("again"))
	assert.Equal(t, first, second)
}
