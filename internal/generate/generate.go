// Package generate defines the contract with the external content
// generator and the bookkeeping for asynchronously processed batches.
package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/porkreport/porkbot/internal/database"
)

// PromptContext is the structured context handed to the generator for one
// candidate.
type PromptContext struct {
	Topic       string   `json:"topic"`
	BillRef     string   `json:"bill_ref,omitempty"`
	SourceLinks []string `json:"source_links,omitempty"`
	Research    []string `json:"research,omitempty"`
}

// Generator produces content for a prompt context. skip=true is an explicit
// signal that the generator declined the topic; it is not an error.
type Generator interface {
	Generate(ctx context.Context, pc PromptContext) (text string, skip bool, err error)
}

// BatchGenerator additionally supports submitting a group of requests for
// asynchronous processing.
type BatchGenerator interface {
	Generator
	SubmitBatch(ctx context.Context, requests []PromptContext) (batchID string, err error)
	PollBatch(ctx context.Context, batchID string) (done bool, failed bool, err error)
}

// Batches records submitted batches for replay and audit.
type Batches struct {
	db *database.DB
}

// NewBatches creates the batch recorder.
func NewBatches(db *database.DB) *Batches {
	return &Batches{db: db}
}

// Submit sends requests to the generator and records the batch as submitted
// with its serialized request set.
func (b *Batches) Submit(ctx context.Context, gen BatchGenerator, requests []PromptContext) (string, error) {
	if len(requests) == 0 {
		return "", fmt.Errorf("empty batch")
	}

	batchID, err := gen.SubmitBatch(ctx, requests)
	if err != nil {
		return "", fmt.Errorf("submitting batch: %w", err)
	}

	serialized, err := json.Marshal(requests)
	if err != nil {
		return "", err
	}
	if err := b.db.InsertBatch(batchID, string(serialized)); err != nil {
		return "", fmt.Errorf("recording batch %s: %w", batchID, err)
	}
	return batchID, nil
}

// PollPending checks every submitted batch and resolves the finished ones.
// Returns how many batches were resolved.
func (b *Batches) PollPending(ctx context.Context, gen BatchGenerator) (int, error) {
	pending, err := b.db.GetPendingBatches()
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, batch := range pending {
		done, failed, err := gen.PollBatch(ctx, batch.BatchID)
		if err != nil || !done {
			continue
		}
		status := database.BatchCompleted
		if failed {
			status = database.BatchFailed
		}
		if err := b.db.ResolveBatch(batch.BatchID, status); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// Requests deserializes the recorded request set of a batch.
func (b *Batches) Requests(batchID string) ([]PromptContext, error) {
	batch, err := b.db.GetBatch(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s not found", batchID)
	}
	var requests []PromptContext
	if err := json.Unmarshal([]byte(batch.Requests), &requests); err != nil {
		return nil, fmt.Errorf("decoding batch %s requests: %w", batchID, err)
	}
	return requests, nil
}
