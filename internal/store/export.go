package store

import (
	"context"

	"github.com/rcliao/coach-context/internal/model"
)

// ConversationExport is a conversation with its full transcript.
type ConversationExport struct {
	model.Conversation
	Messages []model.ChatMessage `json:"messages"`
}

// ExportConversation returns a conversation and all of its messages.
func (s *SQLiteStore) ExportConversation(ctx context.Context, id string) (*ConversationExport, error) {
	c, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return &ConversationExport{Conversation: *c, Messages: msgs}, nil
}

// ExportAll returns every conversation with its messages.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]ConversationExport, error) {
	convs, err := s.ListConversations(ctx, 100000) // effectively unlimited
	if err != nil {
		return nil, err
	}
	out := []ConversationExport{}
	for _, c := range convs {
		e, err := s.ExportConversation(ctx, c.ID)
		if err != nil {
			return out, err
		}
		out = append(out, *e)
	}
	return out, nil
}
