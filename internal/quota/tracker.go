// Package quota enforces the daily cap on outgoing coach messages.
//
// The counter resets lazily: every accessor first checks whether the stored
// reset date falls on an earlier calendar day and, if so, zeroes the count
// before answering. No background timer is involved.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/coach-context/internal/model"
	"github.com/rcliao/coach-context/internal/store"
)

const (
	DefaultDailyLimit         = 30
	DefaultNearLimitThreshold = 5
)

// Config holds quota policy.
type Config struct {
	DailyLimit         int
	NearLimitThreshold int
	// Location decides where calendar days begin. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

// Tracker is the daily message counter. It is not safe against two
// near-simultaneous sends both observing capacity; the cap may be exceeded
// by one in that case.
type Tracker struct {
	store     store.QuotaStore
	limit     int
	nearLimit int
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewTracker creates a tracker over st.
func NewTracker(st store.QuotaStore, cfg Config, logger *zap.Logger) *Tracker {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	if cfg.NearLimitThreshold <= 0 {
		cfg.NearLimitThreshold = DefaultNearLimitThreshold
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:     st,
		limit:     cfg.DailyLimit,
		nearLimit: cfg.NearLimitThreshold,
		loc:       cfg.Location,
		now:       cfg.Now,
		logger:    logger,
	}
}

// Limit returns the daily ceiling.
func (t *Tracker) Limit() int { return t.limit }

// Used returns the number of messages counted today.
func (t *Tracker) Used(ctx context.Context) int {
	return t.current(ctx).MessageCount
}

// Remaining returns how many messages may still be sent today, floored at 0.
func (t *Tracker) Remaining(ctx context.Context) int {
	return max(t.limit-t.Used(ctx), 0)
}

// CanSend reports whether another message may be sent today.
func (t *Tracker) CanSend(ctx context.Context) bool {
	return t.Remaining(ctx) > 0
}

// IsNearLimit is true when some, but at most the threshold of, messages remain.
func (t *Tracker) IsNearLimit(ctx context.Context) bool {
	r := t.Remaining(ctx)
	return r > 0 && r <= t.nearLimit
}

// IsAtLimit is true when nothing remains.
func (t *Tracker) IsAtLimit(ctx context.Context) bool {
	return t.Remaining(ctx) == 0
}

// Record counts one sent message. When the stored record cannot be read the
// count is not written, so a transient failure never clobbers stored usage.
func (t *Tracker) Record(ctx context.Context) error {
	rec, err := t.load(ctx)
	if err != nil {
		return fmt.Errorf("quota not recorded: %w", err)
	}
	rec.MessageCount++
	return t.store.SaveQuota(ctx, rec)
}

// current loads the record for today. Storage failures read as "no usage
// yet" so the user is never blocked by them.
func (t *Tracker) current(ctx context.Context) model.QuotaRecord {
	rec, err := t.load(ctx)
	if err != nil {
		t.logger.Warn("quota load failed, assuming no usage", zap.Error(err))
		return model.QuotaRecord{ResetDate: t.now()}
	}
	return rec
}

// load reads the record, creating or resetting it as needed.
func (t *Tracker) load(ctx context.Context) (model.QuotaRecord, error) {
	now := t.now()
	rec, found, err := t.store.LoadQuota(ctx)
	if err != nil {
		return model.QuotaRecord{}, err
	}
	if !found {
		rec = model.QuotaRecord{ResetDate: now}
		t.save(ctx, rec)
		return rec, nil
	}
	if !t.sameDay(rec.ResetDate, now) {
		t.logger.Debug("quota reset",
			zap.Int("previous_count", rec.MessageCount),
			zap.Time("previous_reset", rec.ResetDate))
		rec = model.QuotaRecord{ResetDate: now}
		t.save(ctx, rec)
	}
	return rec, nil
}

func (t *Tracker) save(ctx context.Context, rec model.QuotaRecord) {
	if err := t.store.SaveQuota(ctx, rec); err != nil {
		t.logger.Warn("quota save failed", zap.Error(err))
	}
}

func (t *Tracker) sameDay(a, b time.Time) bool {
	a, b = a.In(t.loc), b.In(t.loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
