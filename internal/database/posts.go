package database

import (
	"database/sql"
	"fmt"
)

// InsertPost inserts a post in the given lifecycle status and returns its ID.
func (db *DB) InsertPost(content string, trendTopic, billRef *string, status string, engagementScore int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO posts (content, trend_topic, bill_ref, status, engagement_score)
		VALUES (?, ?, ?, ?, ?)`,
		content, trendTopic, billRef, status, engagementScore,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetPost returns a post by ID, or nil if absent.
func (db *DB) GetPost(id int64) (*Post, error) {
	row := db.conn.QueryRow(
		`SELECT id, content, trend_topic, bill_ref, status, engagement_score, created_at, posted_at
		FROM posts WHERE id = ?`, id,
	)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// SetPostStatus transitions a post to the given status. Marking a post
// posted also stamps posted_at.
func (db *DB) SetPostStatus(id int64, status string) error {
	switch status {
	case StatusDraft, StatusQueued, StatusPosted, StatusRejected:
	default:
		return fmt.Errorf("invalid post status %q", status)
	}

	if status == StatusPosted {
		_, err := db.conn.Exec(
			"UPDATE posts SET status = ?, posted_at = datetime('now') WHERE id = ?",
			status, id,
		)
		return err
	}
	_, err := db.conn.Exec("UPDATE posts SET status = ? WHERE id = ?", status, id)
	return err
}

// GetQueuedPosts returns queued posts in dispatch order: highest engagement
// score first, ties broken by earliest creation.
func (db *DB) GetQueuedPosts(limit int) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, content, trend_topic, bill_ref, status, engagement_score, created_at, posted_at
		FROM posts WHERE status = ?
		ORDER BY engagement_score DESC, created_at ASC LIMIT ?`,
		StatusQueued, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// ResetQueuedPosts reverts every queued post to draft. Returns the number
// of rows reverted.
func (db *DB) ResetQueuedPosts() (int, error) {
	result, err := db.conn.Exec(
		"UPDATE posts SET status = ? WHERE status = ?", StatusDraft, StatusQueued,
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// GetRecentPosts returns the most recent posts in a given status.
func (db *DB) GetRecentPosts(status string, limit int) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, content, trend_topic, bill_ref, status, engagement_score, created_at, posted_at
		FROM posts WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
		status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	if err := row.Scan(&p.ID, &p.Content, &p.TrendTopic, &p.BillRef, &p.Status, &p.EngagementScore, &p.CreatedAt, &p.PostedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
