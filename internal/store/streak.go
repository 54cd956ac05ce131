package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/coach-context/internal/model"
)

// StartStreak begins a new run at start. Any current run is folded into the
// totals first.
func (s *SQLiteStore) StartStreak(ctx context.Context, start time.Time) (*model.StreakStats, error) {
	if err := s.foldCurrentRun(ctx, start); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE streak SET started_at = ? WHERE id = 1`, formatTime(start))
	if err != nil {
		return nil, fmt.Errorf("start streak: %w", err)
	}
	st, err := s.CurrentStreakStats(ctx)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ResetStreak records a relapse at the given time and restarts the run.
func (s *SQLiteStore) ResetStreak(ctx context.Context, at time.Time) (*model.StreakStats, error) {
	return s.StartStreak(ctx, at)
}

// SetCommitment sets or clears the user's commitment date.
func (s *SQLiteStore) SetCommitment(ctx context.Context, date *time.Time) error {
	if err := s.ensureStreakRow(ctx); err != nil {
		return err
	}
	var v *string
	if date != nil {
		f := formatTime(*date)
		v = &f
	}
	_, err := s.db.ExecContext(ctx, `UPDATE streak SET commitment_date = ? WHERE id = 1`, v)
	return err
}

func (s *SQLiteStore) CurrentStreakStats(ctx context.Context) (model.StreakStats, error) {
	var st model.StreakStats
	var startedAt, commitment sql.NullString
	var longest, prior int

	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, longest_days, prior_days, commitment_date FROM streak WHERE id = 1`).
		Scan(&startedAt, &longest, &prior, &commitment)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("query streak: %w", err)
	}

	st.StartedAt = nullTime(startedAt)
	st.CommitmentDate = nullTime(commitment)
	if st.StartedAt != nil {
		st.CurrentDays = DaysBetween(*st.StartedAt, s.now())
	}
	st.LongestDays = max(longest, st.CurrentDays)
	st.TotalCleanDays = prior + st.CurrentDays
	return st, nil
}

func (s *SQLiteStore) NextMilestone(afterDay int) *model.Milestone {
	return model.NextMilestone(afterDay)
}

func (s *SQLiteStore) ensureStreakRow(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO streak (id) VALUES (1)`)
	return err
}

func (s *SQLiteStore) foldCurrentRun(ctx context.Context, end time.Time) error {
	if err := s.ensureStreakRow(ctx); err != nil {
		return err
	}
	var startedAt sql.NullString
	var longest, prior int
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, longest_days, prior_days FROM streak WHERE id = 1`).
		Scan(&startedAt, &longest, &prior)
	if err != nil {
		return fmt.Errorf("query streak: %w", err)
	}
	if !startedAt.Valid {
		return nil
	}
	run := DaysBetween(parseTime(startedAt.String), end)
	_, err = s.db.ExecContext(ctx,
		`UPDATE streak SET longest_days = ?, prior_days = ? WHERE id = 1`,
		max(longest, run), prior+run)
	return err
}

// DaysBetween counts calendar-day boundaries from a to b in b's location.
// It never returns a negative value.
func DaysBetween(a, b time.Time) int {
	loc := b.Location()
	a = a.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	n := int(db.Sub(da).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}
