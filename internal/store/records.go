package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/coach-context/internal/model"
)

// AddCheckIn records a daily check-in.
func (s *SQLiteStore) AddCheckIn(ctx context.Context, p CheckInParams) (*model.CheckIn, error) {
	now := s.now()
	date := p.Date
	if date == "" {
		date = now.Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", date)
	}
	for name, v := range map[string]int{"mood": p.Mood, "energy": p.Energy, "focus": p.Focus, "urges": p.Urges, "faith": p.Faith} {
		if v < 1 || v > 5 {
			return nil, fmt.Errorf("%s rating must be 1-5, got %d", name, v)
		}
	}

	c := &model.CheckIn{
		ID:                 s.newID(),
		Date:               date,
		Mood:               p.Mood,
		Energy:             p.Energy,
		Focus:              p.Focus,
		Urges:              p.Urges,
		Faith:              p.Faith,
		ProgressReflection: strings.TrimSpace(p.ProgressReflection),
		JourneyReflection:  strings.TrimSpace(p.JourneyReflection),
		CreatedAt:          now.UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (id, date, mood, energy, focus, urges, faith, progress_reflection, journey_reflection, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Date, c.Mood, c.Energy, c.Focus, c.Urges, c.Faith,
		c.ProgressReflection, c.JourneyReflection, formatTime(c.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert checkin: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) RecentCheckIns(ctx context.Context, limit int) ([]model.CheckIn, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, mood, energy, focus, urges, faith, progress_reflection, journey_reflection, created_at
		 FROM checkins ORDER BY date DESC, created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CheckIn
	for rows.Next() {
		var c model.CheckIn
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Date, &c.Mood, &c.Energy, &c.Focus, &c.Urges, &c.Faith,
			&c.ProgressReflection, &c.JourneyReflection, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddJournalEntry writes a journal entry.
func (s *SQLiteStore) AddJournalEntry(ctx context.Context, p JournalParams) (*model.JournalEntry, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, fmt.Errorf("journal content is required")
	}
	e := &model.JournalEntry{ID: s.newID(), Content: content, CreatedAt: s.now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (id, content, created_at) VALUES (?, ?, ?)`,
		e.ID, e.Content, formatTime(e.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) RecentJournalEntries(ctx context.Context, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at FROM journal_entries
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Content, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddWhyEntry adds one of the user's reasons for change.
func (s *SQLiteStore) AddWhyEntry(ctx context.Context, p WhyParams) (*model.WhyEntry, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, fmt.Errorf("why content is required")
	}
	w := &model.WhyEntry{
		ID:        s.newID(),
		Category:  strings.TrimSpace(p.Category),
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO why_entries (id, category, content, created_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.Category, w.Content, formatTime(w.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert why entry: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) AllWhyEntries(ctx context.Context) ([]model.WhyEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, content, created_at FROM why_entries ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WhyEntry
	for rows.Next() {
		var w model.WhyEntry
		var createdAt string
		if err := rows.Scan(&w.ID, &w.Category, &w.Content, &createdAt); err != nil {
			return nil, err
		}
		w.CreatedAt = parseTime(createdAt)
		out = append(out, w)
	}
	return out, rows.Err()
}
