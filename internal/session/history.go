// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/transport"
)

// =============================================================================
// HISTORY ASSEMBLER
// =============================================================================

// Assembler derives the exact message list to submit to the backend from a
// transcript snapshot plus the session configuration.
//
// Assembly is deterministic: the same snapshot and flags always produce the
// same payload, independent of call time.
type Assembler struct {
	// SendChatHistory controls whether prior transcript messages are
	// included. When false the payload is the new message alone.
	SendChatHistory bool

	// SystemPrompt, when set and history is enabled, is prepended as a
	// system message.
	SystemPrompt string
}

// Assemble builds the ordered payload for one generation: prior messages in
// transcript order (excluding any loading placeholder and local-only
// notices), followed by the new outgoing message.
func (a Assembler) Assemble(history []*model.Message, next transport.ChatMessage) []transport.ChatMessage {
	if !a.SendChatHistory {
		return []transport.ChatMessage{next}
	}

	out := make([]transport.ChatMessage, 0, len(history)+2)

	if a.SystemPrompt != "" {
		out = append(out, transport.ChatMessage{
			Role:    "system",
			Content: a.SystemPrompt,
		})
	}

	for _, msg := range history {
		if msg.Loading {
			continue
		}

		var role string
		switch msg.Role {
		case model.RoleUser:
			role = "user"
		case model.RoleAssistant:
			role = "assistant"
		case model.RoleSystem:
			// Local UI notices stay local.
			if !msg.BackendVisible {
				continue
			}
			role = "system"
		default:
			// Error notices never leave the client.
			continue
		}

		if msg.Content == "" {
			continue
		}

		out = append(out, transport.ChatMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return append(out, next)
}
