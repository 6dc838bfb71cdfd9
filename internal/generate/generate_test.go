package generate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/porkreport/porkbot/internal/database"
)

type mockBatchGenerator struct {
	batchID string
	done    bool
	failed  bool
	err     error
}

func (m *mockBatchGenerator) Generate(_ context.Context, _ PromptContext) (string, bool, error) {
	return "text", false, nil
}

func (m *mockBatchGenerator) SubmitBatch(_ context.Context, _ []PromptContext) (string, error) {
	return m.batchID, m.err
}

func (m *mockBatchGenerator) PollBatch(_ context.Context, _ string) (bool, bool, error) {
	return m.done, m.failed, m.err
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSubmitRecordsBatch(t *testing.T) {
	db := openTestDB(t)
	batches := NewBatches(db)
	gen := &mockBatchGenerator{batchID: "batch-42"}

	requests := []PromptContext{{Topic: "congress", BillRef: "HR 1234"}}
	id, err := batches.Submit(context.Background(), gen, requests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "batch-42" {
		t.Errorf("expected batch-42, got %q", id)
	}

	got, err := batches.Requests("batch-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Topic != "congress" || got[0].BillRef != "HR 1234" {
		t.Errorf("unexpected replayed requests: %+v", got)
	}
}

func TestSubmitEmptyBatch(t *testing.T) {
	batches := NewBatches(openTestDB(t))
	if _, err := batches.Submit(context.Background(), &mockBatchGenerator{}, nil); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestSubmitGeneratorFailure(t *testing.T) {
	batches := NewBatches(openTestDB(t))
	gen := &mockBatchGenerator{err: errors.New("api down")}
	if _, err := batches.Submit(context.Background(), gen, []PromptContext{{Topic: "x"}}); err == nil {
		t.Error("expected submit error")
	}
}

func TestPollPendingResolvesCompleted(t *testing.T) {
	db := openTestDB(t)
	batches := NewBatches(db)
	gen := &mockBatchGenerator{batchID: "batch-1"}
	batches.Submit(context.Background(), gen, []PromptContext{{Topic: "x"}})

	// Not done yet: nothing resolves.
	n, err := batches.PollPending(context.Background(), gen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 resolved, got %d", n)
	}

	gen.done = true
	n, _ = batches.PollPending(context.Background(), gen)
	if n != 1 {
		t.Errorf("expected 1 resolved, got %d", n)
	}

	b, _ := db.GetBatch("batch-1")
	if b.Status != database.BatchCompleted {
		t.Errorf("expected completed, got %q", b.Status)
	}
}

func TestPollPendingMarksFailed(t *testing.T) {
	db := openTestDB(t)
	batches := NewBatches(db)
	gen := &mockBatchGenerator{batchID: "batch-2"}
	batches.Submit(context.Background(), gen, []PromptContext{{Topic: "x"}})

	gen.done = true
	gen.failed = true
	batches.PollPending(context.Background(), gen)

	b, _ := db.GetBatch("batch-2")
	if b.Status != database.BatchFailed {
		t.Errorf("expected failed, got %q", b.Status)
	}
}

func TestRequestsUnknownBatch(t *testing.T) {
	batches := NewBatches(openTestDB(t))
	if _, err := batches.Requests("nope"); err == nil {
		t.Error("expected error for unknown batch")
	}
}
