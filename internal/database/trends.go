package database

import (
	"database/sql"
	"encoding/json"
)

// UpsertTrend inserts or refreshes a trend row keyed by normalized topic.
// The whole row is written in one statement so concurrent scan cycles
// cannot interleave a read-then-write.
func (db *DB) UpsertTrend(topic string, sources []string, volume int, relevanceWeight float64, now string) error {
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO trends (topic, sources, volume, relevance_weight, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic) DO UPDATE SET
			sources = excluded.sources,
			volume = excluded.volume,
			relevance_weight = excluded.relevance_weight,
			last_seen = excluded.last_seen`,
		topic, string(sourcesJSON), volume, relevanceWeight, now, now,
	)
	return err
}

// GetTrend returns a trend by normalized topic, or nil if absent.
func (db *DB) GetTrend(topic string) (*Trend, error) {
	row := db.conn.QueryRow(
		`SELECT id, topic, sources, volume, relevance_weight, used, first_seen, last_seen
		FROM trends WHERE topic = ?`, topic,
	)
	t, err := scanTrend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// GetRecentTrends returns up to limit trends ordered by volume descending.
func (db *DB) GetRecentTrends(limit int) ([]Trend, error) {
	rows, err := db.conn.Query(
		`SELECT id, topic, sources, volume, relevance_weight, used, first_seen, last_seen
		FROM trends ORDER BY volume DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []Trend
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, err
		}
		trends = append(trends, *t)
	}
	return trends, rows.Err()
}

// MarkTrendUsed flags a trend as already acted on.
func (db *DB) MarkTrendUsed(topic string) error {
	_, err := db.conn.Exec("UPDATE trends SET used = 1 WHERE topic = ?", topic)
	return err
}

// DeleteTrendsBefore removes trends last seen before cutoff. Returns the
// number of rows removed.
func (db *DB) DeleteTrendsBefore(cutoff string) (int, error) {
	result, err := db.conn.Exec("DELETE FROM trends WHERE last_seen < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrend(row rowScanner) (*Trend, error) {
	var t Trend
	var sourcesJSON string
	var used int
	if err := row.Scan(&t.ID, &t.Topic, &sourcesJSON, &t.Volume, &t.RelevanceWeight, &used, &t.FirstSeen, &t.LastSeen); err != nil {
		return nil, err
	}
	t.Used = used != 0
	if err := json.Unmarshal([]byte(sourcesJSON), &t.Sources); err != nil {
		t.Sources = nil
	}
	return &t, nil
}
