// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

func msg(role Role, content string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:        role.String() + "-" + content,
		SessionID: "s1",
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
}

func TestTurnsFromMessagesPairing(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	messages := []ChatMessage{
		msg(RoleSystem, "You are nyl.", base),
		msg(RoleUser, "hello", base.Add(1*time.Minute)),
		msg(RoleAssistant, "hi there", base.Add(2*time.Minute)),
		msg(RoleUser, "what's next?", base.Add(3*time.Minute)),
		msg(RoleAssistant, "planning", base.Add(4*time.Minute)),
	}

	turns := TurnsFromMessages(messages)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}

	if turns[0].User != "hello" || turns[0].Assistant != "hi there" {
		t.Errorf("first turn mismatch: %+v", turns[0])
	}
	if turns[0].AssistantAt == nil {
		t.Error("first turn should have AssistantAt stamped")
	}
	if turns[1].User != "what's next?" || turns[1].Assistant != "planning" {
		t.Errorf("second turn mismatch: %+v", turns[1])
	}
}

func TestTurnsFromMessagesOrphanedAssistant(t *testing.T) {
	base := time.Now()

	// Assistant with no preceding user message
	turns := TurnsFromMessages([]ChatMessage{
		msg(RoleAssistant, "unprompted", base),
	})
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].User != "" || turns[0].Assistant != "unprompted" {
		t.Errorf("orphaned assistant should open its own turn: %+v", turns[0])
	}
}

func TestTurnsFromMessagesDoubledAssistant(t *testing.T) {
	base := time.Now()

	turns := TurnsFromMessages([]ChatMessage{
		msg(RoleUser, "q", base),
		msg(RoleAssistant, "a1", base.Add(time.Second)),
		msg(RoleAssistant, "a2", base.Add(2*time.Second)),
	})
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Assistant != "a1" {
		t.Errorf("first assistant should close the user turn, got %q", turns[0].Assistant)
	}
	if turns[1].User != "" || turns[1].Assistant != "a2" {
		t.Errorf("second assistant should open its own turn: %+v", turns[1])
	}
}

func TestTurnsFromMessagesUserOnly(t *testing.T) {
	turns := TurnsFromMessages([]ChatMessage{
		msg(RoleUser, "still waiting", time.Now()),
	})
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if !turns[0].Open() {
		t.Error("turn without assistant content should be open")
	}
}

func TestTitleFromMessage(t *testing.T) {
	if got := TitleFromMessage("  Remind me to call the bank tomorrow  "); got != "Remind me to call the bank tomorrow" {
		t.Errorf("unexpected title: %q", got)
	}
	if got := TitleFromMessage("   \n  "); got != "" {
		t.Errorf("blank message should produce empty title, got %q", got)
	}

	long := strings.Repeat("x", 200)
	if got := TitleFromMessage(long); len([]rune(got)) != TitlePrefixLen {
		t.Errorf("expected %d-rune prefix, got %d runes", TitlePrefixLen, len([]rune(got)))
	}
}

func TestIsPlaceholderTitle(t *testing.T) {
	for _, title := range []string{"New chat", "new chat", " new chat ", "NEW CHAT"} {
		if !IsPlaceholderTitle(title) {
			t.Errorf("%q should match the placeholder", title)
		}
	}
	for _, title := range []string{"", "New chat!", "Plan my week"} {
		if IsPlaceholderTitle(title) {
			t.Errorf("%q should not match the placeholder", title)
		}
	}
}

func TestSessionStatusValid(t *testing.T) {
	for _, s := range []SessionStatus{StatusActive, StatusArchived, StatusDeleted} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if SessionStatus("purged").Valid() {
		t.Error("unknown status should be invalid")
	}
}
