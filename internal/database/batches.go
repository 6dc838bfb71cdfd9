package database

import "database/sql"

// InsertBatch records a submitted generation batch with its serialized
// request set.
func (db *DB) InsertBatch(batchID, requests string) error {
	_, err := db.conn.Exec(
		"INSERT INTO batches (batch_id, requests) VALUES (?, ?)",
		batchID, requests,
	)
	return err
}

// ResolveBatch marks a submitted batch completed or failed.
func (db *DB) ResolveBatch(batchID, status string) error {
	_, err := db.conn.Exec(
		`UPDATE batches SET status = ?, completed_at = datetime('now')
		WHERE batch_id = ? AND status = ?`,
		status, batchID, BatchSubmitted,
	)
	return err
}

// GetBatch returns a batch by its external identifier, or nil if absent.
func (db *DB) GetBatch(batchID string) (*Batch, error) {
	row := db.conn.QueryRow(
		`SELECT id, batch_id, status, requests, submitted_at, completed_at
		FROM batches WHERE batch_id = ?`, batchID,
	)
	var b Batch
	if err := row.Scan(&b.ID, &b.BatchID, &b.Status, &b.Requests, &b.SubmittedAt, &b.CompletedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// GetPendingBatches returns batches still awaiting completion.
func (db *DB) GetPendingBatches() ([]Batch, error) {
	rows, err := db.conn.Query(
		`SELECT id, batch_id, status, requests, submitted_at, completed_at
		FROM batches WHERE status = ? ORDER BY id ASC`, BatchSubmitted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.BatchID, &b.Status, &b.Requests, &b.SubmittedAt, &b.CompletedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
