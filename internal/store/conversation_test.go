package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/coach-context/internal/model"
)

func TestConversationMessages(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	conv, err := s.CreateConversation(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.Title != "New conversation" {
		t.Errorf("expected default title, got %q", conv.Title)
	}

	action := model.ActionBreathing
	s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "rough day"})
	clock.Advance(time.Second)
	_, err = s.AppendMessage(ctx, MessageParams{
		ConversationID:  conv.ID,
		Sender:          model.SenderAssistant,
		Content:         "Try a breathing exercise.",
		Citations:       []string{"checkin:2026-10-13", "streak"},
		SuggestedAction: &action,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Sender != model.SenderUser {
		t.Errorf("expected user first, got %s", msgs[0].Sender)
	}
	reply := msgs[1]
	if len(reply.Citations) != 2 || reply.Citations[0] != "checkin:2026-10-13" {
		t.Errorf("citations not round-tripped: %v", reply.Citations)
	}
	if reply.SuggestedAction == nil || *reply.SuggestedAction != model.ActionBreathing {
		t.Errorf("action not round-tripped: %v", reply.SuggestedAction)
	}

	got, _ := s.GetConversation(ctx, conv.ID)
	if !got.UpdatedAt.After(conv.UpdatedAt) {
		t.Error("expected updated_at to advance on append")
	}
}

func TestAppendMessageRejectsBadSender(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	conv, _ := s.CreateConversation(ctx, "x")
	if _, err := s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: "system", Content: "x"}); err == nil {
		t.Error("expected error for invalid sender")
	}
}

func TestMessageErrorFlag(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	conv, _ := s.CreateConversation(ctx, "x")
	m, _ := s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "hello"})

	if err := s.MarkMessageFailed(ctx, m.ID, "network error"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, _ := s.GetMessage(ctx, m.ID)
	if !got.IsError || got.ErrorText != "network error" {
		t.Errorf("expected errored message, got %+v", got)
	}

	if err := s.ClearMessageError(ctx, m.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = s.GetMessage(ctx, m.ID)
	if got.IsError || got.ErrorText != "" {
		t.Errorf("expected cleared message, got %+v", got)
	}

	if err := s.MarkMessageFailed(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	conv, _ := s.CreateConversation(ctx, "x")
	m, _ := s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "hello"})

	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMessage(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected message to be deleted with conversation, got %v", err)
	}
	if err := s.DeleteConversation(ctx, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListConversationsByRecency(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	a, _ := s.CreateConversation(ctx, "a")
	clock.Advance(time.Minute)
	s.CreateConversation(ctx, "b")
	clock.Advance(time.Minute)
	s.AppendMessage(ctx, MessageParams{ConversationID: a.ID, Sender: model.SenderUser, Content: "bump"})

	convs, err := s.ListConversations(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 || convs[0].Title != "a" {
		t.Errorf("expected 'a' first after bump, got %+v", convs)
	}
}

func TestExportConversation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	conv, _ := s.CreateConversation(ctx, "export me")

	e, err := s.ExportConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if e.Title != "export me" || e.Messages == nil || len(e.Messages) != 0 {
		t.Errorf("unexpected export %+v", e)
	}

	s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "hi"})
	all, err := s.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export all: %v", err)
	}
	if len(all) != 1 || len(all[0].Messages) != 1 {
		t.Errorf("unexpected export all %+v", all)
	}
}

func TestAppendMessageAfter(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	conv, _ := s.CreateConversation(ctx, "order")

	a, _ := s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "A"})
	s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "B"})
	s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderAssistant, Content: "reply B"})

	if _, err := s.AppendMessage(ctx, MessageParams{
		ConversationID: conv.ID, Sender: model.SenderAssistant, Content: "reply A", After: a.ID,
	}); err != nil {
		t.Fatalf("append after: %v", err)
	}
	s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "C"})

	msgs, err := s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	want := []string{"A", "reply A", "B", "reply B", "C"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Errorf("message %d: got %q, want %q", i, m.Content, want[i])
		}
	}

	_, err = s.AppendMessage(ctx, MessageParams{ConversationID: conv.ID, Sender: model.SenderUser, Content: "x", After: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown anchor, got %v", err)
	}
}

func TestCorruptCitationsSurface(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	conv, _ := s.CreateConversation(ctx, "corrupt")
	m, _ := s.AppendMessage(ctx, MessageParams{
		ConversationID: conv.ID, Sender: model.SenderAssistant, Content: "hi", Citations: []string{"streak"},
	})

	if _, err := s.db.ExecContext(ctx, `UPDATE messages SET citations = 'not json' WHERE id = ?`, m.ID); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}
	if _, err := s.GetMessage(ctx, m.ID); err == nil {
		t.Error("expected decode error for corrupt citations")
	}
	if _, err := s.Messages(ctx, conv.ID); err == nil {
		t.Error("expected Messages to surface the decode error")
	}
}
