package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string `json:"db_path"`
	DBSizeBytes    int64  `json:"db_size_bytes"`
	CheckIns       int    `json:"checkins"`
	JournalEntries int    `json:"journal_entries"`
	WhyEntries     int    `json:"why_entries"`
	Conversations  int    `json:"conversations"`
	Messages       int    `json:"messages"`
	FailedMessages int    `json:"failed_messages"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM checkins`, &st.CheckIns},
		{`SELECT COUNT(*) FROM journal_entries`, &st.JournalEntries},
		{`SELECT COUNT(*) FROM why_entries`, &st.WhyEntries},
		{`SELECT COUNT(*) FROM conversations`, &st.Conversations},
		{`SELECT COUNT(*) FROM messages`, &st.Messages},
		{`SELECT COUNT(*) FROM messages WHERE is_error = 1`, &st.FailedMessages},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, err
		}
	}
	return st, nil
}
