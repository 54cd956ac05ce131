// Package store provides the record, quota and conversation storage
// interfaces and their SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/coach-context/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// CheckInParams holds parameters for recording a check-in.
type CheckInParams struct {
	Date               string // YYYY-MM-DD; empty means today
	Mood               int
	Energy             int
	Focus              int
	Urges              int
	Faith              int
	ProgressReflection string
	JourneyReflection  string
}

// JournalParams holds parameters for writing a journal entry.
type JournalParams struct {
	Content string
}

// WhyParams holds parameters for adding a why entry.
type WhyParams struct {
	Category string
	Content  string
}

// MessageParams holds parameters for appending a chat message.
type MessageParams struct {
	ConversationID  string
	Sender          model.Sender
	Content         string
	Citations       []string
	SuggestedAction *model.SuggestedAction
	IsError         bool
	ErrorText       string
	// After places the message directly behind this message id instead of
	// at the end of the conversation.
	After string
}

// RecordSource is the read-only view of the user's records consumed by the
// context packer.
type RecordSource interface {
	// RecentCheckIns returns up to limit check-ins, newest first.
	RecentCheckIns(ctx context.Context, limit int) ([]model.CheckIn, error)

	// RecentJournalEntries returns up to limit journal entries, newest first.
	RecentJournalEntries(ctx context.Context, limit int) ([]model.JournalEntry, error)

	// AllWhyEntries returns every why entry in creation order.
	AllWhyEntries(ctx context.Context) ([]model.WhyEntry, error)

	// CurrentStreakStats returns the aggregate streak view.
	CurrentStreakStats(ctx context.Context) (model.StreakStats, error)

	// NextMilestone returns the first milestone strictly after afterDay.
	NextMilestone(afterDay int) *model.Milestone
}

// QuotaStore persists the single daily quota record.
type QuotaStore interface {
	// LoadQuota returns the record and whether one has been saved yet.
	LoadQuota(ctx context.Context) (model.QuotaRecord, bool, error)
	SaveQuota(ctx context.Context, rec model.QuotaRecord) error
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
	GetMessage(ctx context.Context, id string) (*model.ChatMessage, error)
	AppendMessage(ctx context.Context, p MessageParams) (*model.ChatMessage, error)
	MarkMessageFailed(ctx context.Context, id, errText string) error
	ClearMessageError(ctx context.Context, id string) error
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the store's notion of now.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}
