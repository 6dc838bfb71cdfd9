// Package queue is the persisted backlog of candidate posts. It is layered
// on the Post status field rather than a separate structure, so a candidate
// has exactly one queue position determined by (engagement score desc,
// creation time asc).
package queue

import (
	"github.com/porkreport/porkbot/internal/database"
)

// Queue orders queued posts for dispatch.
type Queue struct {
	db *database.DB
}

// New creates a queue over the given store.
func New(db *database.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue moves a post into the backlog.
func (q *Queue) Enqueue(id int64) error {
	return q.db.SetPostStatus(id, database.StatusQueued)
}

// Dequeue returns the single highest-priority queued post without mutating
// its status, or nil when the backlog is empty. The caller transitions the
// status after a successful dispatch; dequeue-then-process therefore needs
// external mutual exclusion if multiple workers run concurrently.
func (q *Queue) Dequeue() (*database.Post, error) {
	posts, err := q.db.GetQueuedPosts(1)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// Peek returns the top n queued posts without removal.
func (q *Queue) Peek(n int) ([]database.Post, error) {
	return q.db.GetQueuedPosts(n)
}

// Clear reverts every queued post to draft and returns how many were
// reverted. Posts in other statuses are untouched.
func (q *Queue) Clear() (int, error) {
	return q.db.ResetQueuedPosts()
}
