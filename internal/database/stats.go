package database

// GetStats returns aggregate statistics for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		dest  *int
		query string
	}{
		{&s.TrendsTracked, "SELECT COUNT(*) FROM trends"},
		{&s.UnusedTrends, "SELECT COUNT(*) FROM trends WHERE used = 0"},
		{&s.DraftPosts, "SELECT COUNT(*) FROM posts WHERE status = 'draft'"},
		{&s.QueuedPosts, "SELECT COUNT(*) FROM posts WHERE status = 'queued'"},
		{&s.PostedPosts, "SELECT COUNT(*) FROM posts WHERE status = 'posted'"},
		{&s.RejectedPosts, "SELECT COUNT(*) FROM posts WHERE status = 'rejected'"},
		{&s.CyclesRun, "SELECT COUNT(*) FROM daemon_cycles"},
		{&s.FailedCycles, "SELECT COUNT(*) FROM daemon_cycles WHERE error IS NOT NULL"},
		{&s.SafetyChecks, "SELECT COUNT(*) FROM safety_log"},
		{&s.PendingBatches, "SELECT COUNT(*) FROM batches WHERE status = 'submitted'"},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
