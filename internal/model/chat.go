package model

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// SuggestedAction names a follow-up in-app action attached to a reply.
type SuggestedAction string

const (
	ActionBreathing SuggestedAction = "breathing"
	ActionJournal   SuggestedAction = "journal"
	ActionCheckIn   SuggestedAction = "checkin"
	ActionPanic     SuggestedAction = "panic"
	ActionDua       SuggestedAction = "dua"
)

// ValidActions are the allowed suggested actions.
var ValidActions = map[SuggestedAction]bool{
	ActionBreathing: true,
	ActionJournal:   true,
	ActionCheckIn:   true,
	ActionPanic:     true,
	ActionDua:       true,
}

// ParseAction returns the action for s, or nil when s is empty or unknown.
func ParseAction(s string) *SuggestedAction {
	a := SuggestedAction(s)
	if !ValidActions[a] {
		return nil
	}
	return &a
}

// Conversation owns an ordered list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	ID              string           `json:"id"`
	ConversationID  string           `json:"conversation_id"`
	Sender          Sender           `json:"sender"`
	Content         string           `json:"content"`
	Citations       []string         `json:"citations,omitempty"`
	SuggestedAction *SuggestedAction `json:"suggested_action,omitempty"`
	IsError         bool             `json:"is_error,omitempty"`
	ErrorText       string           `json:"error_text,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
