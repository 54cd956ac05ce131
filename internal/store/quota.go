package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rcliao/coach-context/internal/model"
)

func (s *SQLiteStore) LoadQuota(ctx context.Context) (model.QuotaRecord, bool, error) {
	var rec model.QuotaRecord
	var resetDate string
	err := s.db.QueryRowContext(ctx,
		`SELECT message_count, reset_date FROM quota WHERE id = 1`).Scan(&rec.MessageCount, &resetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	rec.ResetDate = parseTime(resetDate)
	return rec, true, nil
}

func (s *SQLiteStore) SaveQuota(ctx context.Context, rec model.QuotaRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quota (id, message_count, reset_date) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET message_count = excluded.message_count, reset_date = excluded.reset_date`,
		rec.MessageCount, formatTime(rec.ResetDate))
	return err
}
