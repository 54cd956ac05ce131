package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/coach-context/internal/model"
)

const messageColumns = `id, conversation_id, sender, content, citations, suggested_action, is_error, error_text, created_at`

// CreateConversation starts a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New conversation"
	}
	now := s.now().UTC()
	c := &model.Conversation{ID: s.newID(), Title: title, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// ListConversations returns conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.Title, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and, by cascade, its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, p MessageParams) (*model.ChatMessage, error) {
	if p.Sender != model.SenderUser && p.Sender != model.SenderAssistant {
		return nil, fmt.Errorf("invalid sender %q", p.Sender)
	}
	now := s.now().UTC()
	m := &model.ChatMessage{
		ID:              s.newID(),
		ConversationID:  p.ConversationID,
		Sender:          p.Sender,
		Content:         p.Content,
		Citations:       p.Citations,
		SuggestedAction: p.SuggestedAction,
		IsError:         p.IsError,
		ErrorText:       p.ErrorText,
		CreatedAt:       now,
	}

	var action, errText *string
	if p.SuggestedAction != nil {
		a := string(*p.SuggestedAction)
		action = &a
	}
	if p.ErrorText != "" {
		errText = &p.ErrorText
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, p.ConversationID, p.After)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, string(m.Sender), m.Content, encodeStrings(m.Citations),
		action, m.IsError, errText, formatTime(now), seq)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, formatTime(now), m.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// nextSeq returns the position for a new message. With after set, later
// messages are shifted down by one to open the slot behind it.
func nextSeq(ctx context.Context, tx *sql.Tx, conversationID, after string) (int64, error) {
	if after == "" {
		var seq int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`, conversationID).Scan(&seq)
		return seq, err
	}

	var afterSeq int64
	err := tx.QueryRowContext(ctx,
		`SELECT seq FROM messages WHERE id = ? AND conversation_id = ?`, after, conversationID).Scan(&afterSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("message %s: %w", after, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET seq = seq + 1 WHERE conversation_id = ? AND seq > ?`, conversationID, afterSeq); err != nil {
		return 0, fmt.Errorf("shift messages: %w", err)
	}
	return afterSeq + 1, nil
}

// Messages returns a conversation's messages in transcript order.
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ?
		 ORDER BY seq`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*model.ChatMessage, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageFailed flags a message as errored with the given text.
func (s *SQLiteStore) MarkMessageFailed(ctx context.Context, id, errText string) error {
	return s.setMessageError(ctx, id, true, &errText)
}

// ClearMessageError removes the error flag after a successful retry.
func (s *SQLiteStore) ClearMessageError(ctx context.Context, id string) error {
	return s.setMessageError(ctx, id, false, nil)
}

func (s *SQLiteStore) setMessageError(ctx context.Context, id string, failed bool, errText *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_error = ?, error_text = ? WHERE id = ?`, failed, errText, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanMessage(row scanner) (model.ChatMessage, error) {
	var m model.ChatMessage
	var sender, createdAt string
	var citations, action, errText sql.NullString

	err := row.Scan(&m.ID, &m.ConversationID, &sender, &m.Content, &citations,
		&action, &m.IsError, &errText, &createdAt)
	if err != nil {
		return m, err
	}

	m.Sender = model.Sender(sender)
	m.CreatedAt = parseTime(createdAt)
	if citations.Valid && citations.String != "" {
		if err := json.Unmarshal([]byte(citations.String), &m.Citations); err != nil {
			return m, fmt.Errorf("message %s: decode citations: %w", m.ID, err)
		}
	}
	if action.Valid {
		m.SuggestedAction = model.ParseAction(action.String)
	}
	if errText.Valid {
		m.ErrorText = errText.String
	}
	return m, nil
}
