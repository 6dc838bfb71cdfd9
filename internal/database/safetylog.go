package database

import "encoding/json"

// InsertSafetyEntry appends one evaluation to the safety log. Entries are
// never updated or deleted.
func (db *DB) InsertSafetyEntry(content string, totalScore int, verdict string, breakdown map[string]int) error {
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO safety_log (content, total_score, verdict, breakdown) VALUES (?, ?, ?, ?)",
		content, totalScore, verdict, string(breakdownJSON),
	)
	return err
}

// GetRecentSafetyEntries returns the newest safety log entries.
func (db *DB) GetRecentSafetyEntries(limit int) ([]SafetyLogEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, content, total_score, verdict, breakdown, created_at
		FROM safety_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SafetyLogEntry
	for rows.Next() {
		var e SafetyLogEntry
		var breakdownJSON string
		if err := rows.Scan(&e.ID, &e.Content, &e.TotalScore, &e.Verdict, &breakdownJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(breakdownJSON), &e.Breakdown); err != nil {
			e.Breakdown = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RejectionRate returns the fraction of evaluations since cutoff that ended
// in a REJECT verdict. Returns 0 when there are no evaluations.
func (db *DB) RejectionRate(cutoff string) (float64, error) {
	var total, rejected int
	err := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN verdict = 'REJECT' THEN 1 ELSE 0 END), 0)
		FROM safety_log WHERE created_at >= ?`, cutoff,
	).Scan(&total, &rejected)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(rejected) / float64(total), nil
}
