package store

import (
	"context"

	"github.com/rcliao/coach-context/internal/model"
)

// SearchParams holds parameters for searching chat messages.
type SearchParams struct {
	Query          string
	ConversationID string
	Limit          int
}

// SearchResult pairs a matching message with its conversation title.
type SearchResult struct {
	model.ChatMessage
	ConversationTitle string `json:"conversation_title"`
}

// SearchMessages finds messages whose content contains the query substring.
func (s *SQLiteStore) SearchMessages(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT m.id, m.conversation_id, m.sender, m.content, m.citations, m.suggested_action,
		       m.is_error, m.error_text, m.created_at, c.title
		FROM messages m
		INNER JOIN conversations c ON c.id = m.conversation_id
		WHERE m.content LIKE ?`
	args := []interface{}{"%" + p.Query + "%"}
	if p.ConversationID != "" {
		query += ` AND m.conversation_id = ?`
		args = append(args, p.ConversationID)
	}
	query += ` ORDER BY m.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var title string
		m, err := scanMessage(titleScanner{rows, &title})
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{ChatMessage: m, ConversationTitle: title})
	}
	return results, rows.Err()
}

// titleScanner appends the joined conversation title to a message scan.
type titleScanner struct {
	row   scanner
	title *string
}

func (t titleScanner) Scan(dest ...interface{}) error {
	return t.row.Scan(append(dest, t.title)...)
}
