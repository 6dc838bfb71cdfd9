package database

import (
	"database/sql"
	"fmt"
)

// Cooldown table names. Topic reuse and per-author engagement throttling are
// independent domains with independent tables; they share the row shape only.
const (
	CooldownTopicsTable  = "cooldowns"
	CooldownAuthorsTable = "engagement_cooldowns"
)

func cooldownKeyColumn(table string) (string, error) {
	switch table {
	case CooldownTopicsTable:
		return "topic", nil
	case CooldownAuthorsTable:
		return "author", nil
	default:
		return "", fmt.Errorf("unknown cooldown table %q", table)
	}
}

// TouchCooldown records a use of key: insert with count 1, or refresh
// last_used and increment the count. One statement, so concurrent cycle
// firings cannot lose updates.
func (db *DB) TouchCooldown(table, key, now string) error {
	col, err := cooldownKeyColumn(table)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		fmt.Sprintf(`INSERT INTO %s (%s, last_used, use_count) VALUES (?, ?, 1)
		ON CONFLICT(%s) DO UPDATE SET last_used = excluded.last_used, use_count = use_count + 1`,
			table, col, col),
		key, now,
	)
	return err
}

// GetCooldown returns the cooldown record for key, or nil if absent.
func (db *DB) GetCooldown(table, key string) (*CooldownRecord, error) {
	col, err := cooldownKeyColumn(table)
	if err != nil {
		return nil, err
	}
	row := db.conn.QueryRow(
		fmt.Sprintf("SELECT %s, last_used, use_count FROM %s WHERE %s = ?", col, table, col),
		key,
	)
	var rec CooldownRecord
	if err := row.Scan(&rec.Key, &rec.LastUsed, &rec.UseCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// DeleteCooldownsBefore removes records last used before cutoff. Returns the
// number of rows removed.
func (db *DB) DeleteCooldownsBefore(table, cutoff string) (int, error) {
	if _, err := cooldownKeyColumn(table); err != nil {
		return 0, err
	}
	result, err := db.conn.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE last_used < ?", table), cutoff,
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
