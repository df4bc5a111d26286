package batch

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v5"
)

// maxBatchRetries bounds the retry/failure handler: at most 3 attempts
// before a batch is marked failed, matching the embedding client's retry
// budget.
const maxBatchRetries = 3

// FailureHandler retries a batch's processing function with exponential
// backoff and records the outcome through a Tracker.
type FailureHandler struct {
	Tracker *Tracker
}

// Process runs process, retrying transient failures up to maxBatchRetries
// times. On success the batch is recorded fully processed with no errors;
// on exhausted retries it is recorded failed with one error and the
// original error is returned wrapped.
func (h *FailureHandler) Process(ctx context.Context, coordinationID, batchID string, batchIndex, itemsTotal int, process func(context.Context) error) error {
	op := func() (struct{}, error) {
		return struct{}{}, process(ctx)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxBatchRetries),
	)
	if err != nil {
		if _, _, uerr := h.Tracker.UpdateBatchProgress(ctx, coordinationID, batchID, batchIndex, 0, itemsTotal, 1); uerr != nil {
			return uerr
		}
		return fmt.Errorf("batch: %s/%s failed after %d attempts: %w", coordinationID, batchID, maxBatchRetries, err)
	}

	_, _, uerr := h.Tracker.UpdateBatchProgress(ctx, coordinationID, batchID, batchIndex, itemsTotal, itemsTotal, 0)
	return uerr
}
