package database

import (
	"database/sql"
	"time"
)

// OpenCycle inserts a new daemon cycle row with zeroed counts and returns
// its ID.
func (db *DB) OpenCycle(cycleType string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO daemon_cycles (cycle_type) VALUES (?)", cycleType,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CloseCycle writes the final counts, optional topic and error, and the
// wall-clock duration for a cycle. The WHERE clause guards against closing
// the same cycle twice.
func (db *DB) CloseCycle(id int64, counts CycleCounts, topic *string, cycleErr error, duration time.Duration) error {
	var errText *string
	if cycleErr != nil {
		s := cycleErr.Error()
		errText = &s
	}
	_, err := db.conn.Exec(
		`UPDATE daemon_cycles
		SET scanned = ?, engaged = ?, tracked = ?, expired = ?, posted = ?,
			topic = ?, error = ?, completed_at = datetime('now'), duration_ms = ?
		WHERE id = ? AND completed_at IS NULL`,
		counts.Scanned, counts.Engaged, counts.Tracked, counts.Expired, counts.Posted,
		topic, errText, duration.Milliseconds(), id,
	)
	return err
}

// GetCycle returns a cycle row by ID, or nil if absent.
func (db *DB) GetCycle(id int64) (*DaemonCycle, error) {
	row := db.conn.QueryRow(
		`SELECT id, cycle_type, scanned, engaged, tracked, expired, posted,
			topic, error, started_at, completed_at, duration_ms
		FROM daemon_cycles WHERE id = ?`, id,
	)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetRecentCycles returns the newest cycle rows.
func (db *DB) GetRecentCycles(limit int) ([]DaemonCycle, error) {
	rows, err := db.conn.Query(
		`SELECT id, cycle_type, scanned, engaged, tracked, expired, posted,
			topic, error, started_at, completed_at, duration_ms
		FROM daemon_cycles ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []DaemonCycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, *c)
	}
	return cycles, rows.Err()
}

func scanCycle(row rowScanner) (*DaemonCycle, error) {
	var c DaemonCycle
	if err := row.Scan(&c.ID, &c.CycleType, &c.Scanned, &c.Engaged, &c.Tracked, &c.Expired, &c.Posted,
		&c.Topic, &c.Error, &c.StartedAt, &c.CompletedAt, &c.DurationMs); err != nil {
		return nil, err
	}
	return &c, nil
}
