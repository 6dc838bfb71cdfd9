package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestUpsertTrend(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())

	if err := db.UpsertTrend("congress", []string{"congress_gov"}, 5000, 1.0, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trend, err := db.GetTrend("congress")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trend == nil {
		t.Fatal("expected trend to exist")
	}
	if trend.Volume != 5000 {
		t.Errorf("expected volume 5000, got %d", trend.Volume)
	}
	if trend.RelevanceWeight != 1.0 {
		t.Errorf("expected weight 1.0, got %f", trend.RelevanceWeight)
	}

	// Upsert again with merged data; row count must stay one.
	if err := db.UpsertTrend("congress", []string{"congress_gov", "rss"}, 9000, 1.0, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trend, _ = db.GetTrend("congress")
	if trend.Volume != 9000 {
		t.Errorf("expected volume 9000 after upsert, got %d", trend.Volume)
	}
	if len(trend.Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(trend.Sources))
	}
}

func TestMarkTrendUsed(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())
	db.UpsertTrend("pork spending", []string{"rss"}, 100, 0.5, now)

	if err := db.MarkTrendUsed("pork spending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trend, _ := db.GetTrend("pork spending")
	if !trend.Used {
		t.Error("expected trend to be marked used")
	}
}

func TestDeleteTrendsBefore(t *testing.T) {
	db := openTestDB(t)
	old := FormatTime(time.Now().Add(-72 * time.Hour))
	fresh := FormatTime(time.Now())
	db.UpsertTrend("stale", []string{"rss"}, 10, 0.5, old)
	db.UpsertTrend("fresh", []string{"rss"}, 10, 0.5, fresh)

	cutoff := FormatTime(time.Now().Add(-24 * time.Hour))
	n, err := db.DeleteTrendsBefore(cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired trend, got %d", n)
	}
	if trend, _ := db.GetTrend("fresh"); trend == nil {
		t.Error("expected fresh trend to survive")
	}
}

func TestPostLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertPost("Congress spends again #PorkReport", ptr("congress"), nil, StatusDraft, 72)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero post ID")
	}

	if err := db.SetPostStatus(id, StatusQueued); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	post, _ := db.GetPost(id)
	if post.Status != StatusQueued {
		t.Errorf("expected queued, got %q", post.Status)
	}
	if post.PostedAt != nil {
		t.Error("expected posted_at to be unset")
	}

	if err := db.SetPostStatus(id, StatusPosted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	post, _ = db.GetPost(id)
	if post.PostedAt == nil {
		t.Error("expected posted_at to be stamped")
	}
}

func TestSetPostStatusRejectsUnknown(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertPost("text", nil, nil, StatusDraft, 0)
	if err := db.SetPostStatus(id, "published"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestQueuedPostOrdering(t *testing.T) {
	db := openTestDB(t)
	low, _ := db.InsertPost("low", nil, nil, StatusQueued, 40)
	high, _ := db.InsertPost("high", nil, nil, StatusQueued, 90)
	db.InsertPost("draft", nil, nil, StatusDraft, 99)

	queued, err := db.GetQueuedPosts(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("expected 2 queued posts, got %d", len(queued))
	}
	if queued[0].ID != high || queued[1].ID != low {
		t.Error("expected queued posts ordered by engagement score desc")
	}
}

func TestResetQueuedPosts(t *testing.T) {
	db := openTestDB(t)
	q, _ := db.InsertPost("queued", nil, nil, StatusQueued, 10)
	p, _ := db.InsertPost("posted", nil, nil, StatusPosted, 10)

	n, err := db.ResetQueuedPosts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 post reverted, got %d", n)
	}
	post, _ := db.GetPost(q)
	if post.Status != StatusDraft {
		t.Errorf("expected draft, got %q", post.Status)
	}
	post, _ = db.GetPost(p)
	if post.Status != StatusPosted {
		t.Error("expected posted post to be untouched")
	}
}

func TestCooldownUpsert(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())

	if err := db.TouchCooldown(CooldownTopicsTable, "congress", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ := db.GetCooldown(CooldownTopicsTable, "congress")
	if rec == nil || rec.UseCount != 1 {
		t.Fatalf("expected use count 1, got %+v", rec)
	}

	later := FormatTime(time.Now().Add(time.Minute))
	if err := db.TouchCooldown(CooldownTopicsTable, "congress", later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ = db.GetCooldown(CooldownTopicsTable, "congress")
	if rec.UseCount != 2 {
		t.Errorf("expected use count 2, got %d", rec.UseCount)
	}
	if rec.LastUsed != later {
		t.Errorf("expected last_used refreshed, got %s", rec.LastUsed)
	}
}

func TestCooldownTablesIndependent(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())
	db.TouchCooldown(CooldownTopicsTable, "congress", now)

	rec, err := db.GetCooldown(CooldownAuthorsTable, "congress")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Error("expected author cooldown table to be unaffected by topic record")
	}
}

func TestCooldownUnknownTable(t *testing.T) {
	db := openTestDB(t)
	if err := db.TouchCooldown("posts", "x", FormatTime(time.Now())); err == nil {
		t.Error("expected error for unknown cooldown table")
	}
}

func TestSafetyLogAndRejectionRate(t *testing.T) {
	db := openTestDB(t)

	db.InsertSafetyEntry("fine", 3, "ALLOW", map[string]int{"partisan": 3})
	db.InsertSafetyEntry("bad", 120, "REJECT", map[string]int{"denylist": 100, "crisis": 20})

	entries, err := db.GetRecentSafetyEntries(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Breakdown["denylist"] != 100 {
		t.Errorf("expected denylist breakdown 100, got %d", entries[0].Breakdown["denylist"])
	}

	cutoff := FormatTime(time.Now().Add(-time.Hour))
	rate, err := db.RejectionRate(cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0.5 {
		t.Errorf("expected rejection rate 0.5, got %f", rate)
	}
}

func TestCycleOpenClose(t *testing.T) {
	db := openTestDB(t)

	id, err := db.OpenCycle("post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := CycleCounts{Scanned: 12, Posted: 1}
	if err := db.CloseCycle(id, counts, ptr("congress"), nil, 1500*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cycle, _ := db.GetCycle(id)
	if cycle.CompletedAt == nil {
		t.Fatal("expected cycle to be completed")
	}
	if cycle.Scanned != 12 || cycle.Posted != 1 {
		t.Errorf("unexpected counts: %+v", cycle)
	}
	if cycle.DurationMs == nil || *cycle.DurationMs != 1500 {
		t.Error("expected duration 1500ms")
	}
}

func TestCycleCloseWithError(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.OpenCycle("scan")

	if err := db.CloseCycle(id, CycleCounts{}, nil, errors.New("store unavailable"), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cycle, _ := db.GetCycle(id)
	if cycle.Error == nil || *cycle.Error != "store unavailable" {
		t.Error("expected error to be captured")
	}
}

func TestCycleCloseOnlyOnce(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.OpenCycle("post")

	db.CloseCycle(id, CycleCounts{Posted: 1}, nil, nil, time.Second)
	db.CloseCycle(id, CycleCounts{Posted: 9}, nil, nil, time.Second)

	cycle, _ := db.GetCycle(id)
	if cycle.Posted != 1 {
		t.Errorf("expected second close to be ignored, got posted=%d", cycle.Posted)
	}
}

func TestBatchLifecycle(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertBatch("batch-1", `[{"topic":"congress"}]`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, _ := db.GetPendingBatches()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending batch, got %d", len(pending))
	}

	if err := db.ResolveBatch("batch-1", BatchCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := db.GetBatch("batch-1")
	if b.Status != BatchCompleted {
		t.Errorf("expected completed, got %q", b.Status)
	}
	if b.CompletedAt == nil {
		t.Error("expected completed_at to be stamped")
	}

	pending, _ = db.GetPendingBatches()
	if len(pending) != 0 {
		t.Error("expected no pending batches after resolve")
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())
	db.UpsertTrend("congress", []string{"rss"}, 10, 0.5, now)
	db.InsertPost("a", nil, nil, StatusQueued, 1)
	db.InsertPost("b", nil, nil, StatusPosted, 1)
	id, _ := db.OpenCycle("post")
	db.CloseCycle(id, CycleCounts{}, nil, errors.New("boom"), time.Second)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TrendsTracked != 1 || stats.QueuedPosts != 1 || stats.PostedPosts != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.FailedCycles != 1 {
		t.Errorf("expected 1 failed cycle, got %d", stats.FailedCycles)
	}
}
