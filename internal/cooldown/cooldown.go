// Package cooldown implements time-gated suppression of repeated action
// against the same key. Two independent trackers exist in the system: one
// for topic reuse and one for engaging the same external author. They share
// this contract but never a table.
package cooldown

import (
	"time"

	"github.com/porkreport/porkbot/internal/database"
)

// Tracker throttles repeated use of keys in one cooldown table.
type Tracker struct {
	db    *database.DB
	table string
	now   func() time.Time
}

// NewTopicTracker returns the tracker for topic-reuse cooldowns.
func NewTopicTracker(db *database.DB) *Tracker {
	return &Tracker{db: db, table: database.CooldownTopicsTable, now: time.Now}
}

// NewAuthorTracker returns the tracker for per-author engagement cooldowns.
func NewAuthorTracker(db *database.DB) *Tracker {
	return &Tracker{db: db, table: database.CooldownAuthorsTable, now: time.Now}
}

// SetClock overrides the tracker's clock. Test use only.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// CanAct reports whether key is off cooldown: no record exists with a
// last-used timestamp within window of now.
func (t *Tracker) CanAct(key string, window time.Duration) (bool, error) {
	rec, err := t.db.GetCooldown(t.table, key)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return true, nil
	}
	cutoff := database.FormatTime(t.now().Add(-window))
	return rec.LastUsed < cutoff, nil
}

// Record marks key as used now: a fresh record with count 1, or a refreshed
// timestamp and incremented count. Single atomic upsert.
func (t *Tracker) Record(key string) error {
	return t.db.TouchCooldown(t.table, key, database.FormatTime(t.now()))
}

// UseCount returns how many times key has been recorded.
func (t *Tracker) UseCount(key string) (int, error) {
	rec, err := t.db.GetCooldown(t.table, key)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}
	return rec.UseCount, nil
}

// ClearExpired removes records whose last use is older than window and
// returns how many were removed.
func (t *Tracker) ClearExpired(window time.Duration) (int, error) {
	cutoff := database.FormatTime(t.now().Add(-window))
	return t.db.DeleteCooldownsBefore(t.table, cutoff)
}
