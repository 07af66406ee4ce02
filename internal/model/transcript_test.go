// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"testing"
)

func seedTranscript(t *testing.T) (*Transcript, []string) {
	t.Helper()
	tr := NewTranscript("chat_test")

	var ids []string
	for _, m := range []*Message{
		NewUserMessage("first question", ""),
		NewMessage(RoleAssistant, "first answer"),
		NewUserMessage("second question", ""),
		NewMessage(RoleAssistant, "second answer"),
	} {
		id, err := tr.Append(m)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}
	return tr, ids
}

// =============================================================================
// APPEND / ORDER
// =============================================================================

func TestAppendPreservesOrder(t *testing.T) {
	tr, ids := seedTranscript(t)

	msgs := tr.Messages()
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
	for i, msg := range msgs {
		if msg.ID != ids[i] {
			t.Errorf("position %d: id %s, want %s", i, msg.ID, ids[i])
		}
	}
}

func TestAppendRejectsInvalidRole(t *testing.T) {
	tr := NewTranscript("chat_test")

	_, err := tr.Append(&Message{ID: "msg_x", Role: Role("bogus")})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
	if tr.Len() != 0 {
		t.Error("rejected append must not change the transcript")
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdatePatchesFields(t *testing.T) {
	tr, ids := seedTranscript(t)

	if !tr.Update(ids[1], PatchFinished("final text", FinishStop, false)) {
		t.Fatal("update reported failure")
	}

	msg, ok := tr.Get(ids[1])
	if !ok {
		t.Fatal("message gone")
	}
	if msg.Content != "final text" {
		t.Errorf("content = %q", msg.Content)
	}
	if msg.Loading {
		t.Error("loading should be cleared")
	}
	if msg.FinishReason != FinishStop {
		t.Errorf("finish reason = %q", msg.FinishReason)
	}
}

func TestUpdateAbsentIsNoOp(t *testing.T) {
	tr, _ := seedTranscript(t)
	before := tr.Messages()

	if tr.Update("msg_absent", PatchContent("x")) {
		t.Error("update of absent id reported success")
	}

	after := tr.Messages()
	if len(before) != len(after) {
		t.Fatal("absent update changed transcript length")
	}
	for i := range before {
		if before[i].Content != after[i].Content {
			t.Error("absent update changed message content")
		}
	}
}

func TestUpdateLeavesUnpatchedFieldsAlone(t *testing.T) {
	tr := NewTranscript("chat_test")
	msg := NewUserMessage("shown", "raw form")
	id, _ := tr.Append(msg)

	tr.Update(id, PatchContent("edited"))

	got, _ := tr.Get(id)
	if got.RawContent != "raw form" {
		t.Errorf("raw content = %q, want untouched", got.RawContent)
	}
}

// =============================================================================
// REMOVE
// =============================================================================

func TestRemoveSingle(t *testing.T) {
	tr, ids := seedTranscript(t)

	if !tr.Remove(ids[1]) {
		t.Fatal("remove reported failure")
	}
	if tr.Len() != 3 {
		t.Errorf("len = %d, want 3", tr.Len())
	}
	if _, ok := tr.Get(ids[1]); ok {
		t.Error("removed message still present")
	}
	// Neighbors survive: no cascade.
	if _, ok := tr.Get(ids[0]); !ok {
		t.Error("preceding message removed")
	}
	if _, ok := tr.Get(ids[2]); !ok {
		t.Error("following message removed")
	}

	if tr.Remove("msg_absent") {
		t.Error("remove of absent id reported success")
	}
}

func TestRemoveFromCascades(t *testing.T) {
	tr, ids := seedTranscript(t)

	removed := tr.RemoveFrom(ids[2])
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	msgs := tr.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].ID != ids[0] || msgs[1].ID != ids[1] {
		t.Error("prefix messages changed")
	}
}

func TestRemoveFuncCountsMatches(t *testing.T) {
	tr, _ := seedTranscript(t)

	removed := tr.RemoveFunc(func(m *Message) bool {
		return m.Role == RoleAssistant
	})
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	for _, msg := range tr.Messages() {
		if msg.Role == RoleAssistant {
			t.Error("assistant message survived RemoveFunc")
		}
	}
}

func TestClear(t *testing.T) {
	tr, _ := seedTranscript(t)

	tr.Clear()
	if !tr.IsEmpty() {
		t.Error("transcript not empty after clear")
	}
	if tr.EstimateTokens() != 0 {
		t.Error("token estimate not reset")
	}
}

// =============================================================================
// READ ACCESS
// =============================================================================

func TestMessagesReturnsCopies(t *testing.T) {
	tr, ids := seedTranscript(t)

	snapshot := tr.Messages()
	snapshot[0].Content = "mutated"

	orig, _ := tr.Get(ids[0])
	if orig.Content == "mutated" {
		t.Error("snapshot mutation leaked into transcript")
	}
}

func TestAllIsRestartable(t *testing.T) {
	tr, ids := seedTranscript(t)
	seq := tr.All()

	collect := func() []string {
		var got []string
		for msg := range seq {
			got = append(got, msg.ID)
		}
		return got
	}

	first := collect()
	second := collect()
	if len(first) != len(ids) || len(second) != len(ids) {
		t.Fatalf("lens = %d, %d, want %d", len(first), len(second), len(ids))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Error("second pass differs from first")
		}
	}
}

func TestLoading(t *testing.T) {
	tr, _ := seedTranscript(t)

	if _, ok := tr.Loading(); ok {
		t.Error("no message should be loading")
	}

	id, _ := tr.Append(NewAssistantMessage())
	loading, ok := tr.Loading()
	if !ok || loading.ID != id {
		t.Error("loading placeholder not found")
	}
}

func TestPrecedingUser(t *testing.T) {
	tr, ids := seedTranscript(t)

	user, ok := tr.PrecedingUser(ids[3])
	if !ok || user.ID != ids[2] {
		t.Errorf("preceding user of last answer = %v, want %s", user, ids[2])
	}

	if _, ok := tr.PrecedingUser(ids[0]); ok {
		t.Error("first message has no preceding user")
	}
	if _, ok := tr.PrecedingUser("msg_absent"); ok {
		t.Error("absent id should not resolve")
	}
}

// =============================================================================
// TITLE / TOKENS
// =============================================================================

func TestTitleFromFirstUserMessage(t *testing.T) {
	tr := NewTranscript("chat_test")
	if got := tr.Title(); got != "New Conversation" {
		t.Errorf("empty title = %q", got)
	}

	tr.Append(NewSystemMessage("notice"))
	tr.Append(NewUserMessage("How do goroutines work?", ""))
	if got := tr.Title(); got != "How do goroutines work?" {
		t.Errorf("title = %q", got)
	}

	// The title sticks to the first user message.
	tr.Append(NewUserMessage("Another topic entirely", ""))
	if got := tr.Title(); got != "How do goroutines work?" {
		t.Errorf("title changed to %q", got)
	}
}

func TestContextPercent(t *testing.T) {
	tr := NewTranscript("chat_test")
	tr.SetMaxTokens(100)
	tr.Append(NewUserMessage("aaaaaaaaaaaaaaaa", "")) // 16 chars -> 4 tokens + 4 overhead

	pct := tr.ContextPercent()
	if pct < 7 || pct > 9 {
		t.Errorf("context percent = %v, want ~8", pct)
	}

	tr.SetMaxTokens(0)
	if tr.ContextPercent() != 0 {
		t.Error("unknown window should report 0")
	}
}

// =============================================================================
// PRUNING
// =============================================================================

func TestPruneKeepsSystemMessages(t *testing.T) {
	tr := NewTranscript("chat_test")
	sysID, _ := tr.Append(NewBackendSystemMessage("prompt"))

	for i := 0; i < MaxMessages+50; i++ {
		tr.Append(NewUserMessage(fmt.Sprintf("msg %d", i), ""))
	}

	if tr.Len() > MaxMessages+1 {
		t.Errorf("len = %d, want pruned to at most %d plus system", tr.Len(), MaxMessages)
	}
	if _, ok := tr.Get(sysID); !ok {
		t.Error("system message pruned")
	}

	// The newest messages survive.
	msgs := tr.Messages()
	last := msgs[len(msgs)-1]
	if last.Content != fmt.Sprintf("msg %d", MaxMessages+49) {
		t.Errorf("newest message = %q", last.Content)
	}
}
