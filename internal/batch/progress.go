package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
)

// Notifier is invoked each time a coordination's progress crosses one of
// notificationThresholds. Implementations might post to SNS, Slack, etc.
type Notifier interface {
	Notify(ctx context.Context, coordinationID string, threshold int, coord Coordination) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, coordinationID string, threshold int, coord Coordination) error

func (f NotifierFunc) Notify(ctx context.Context, coordinationID string, threshold int, coord Coordination) error {
	return f(ctx, coordinationID, threshold, coord)
}

// Tracker updates batch progress, recomputes the owning coordination's
// aggregate, and fires threshold-crossing notifications. Unlike a naive
// ">=" check against a fixed list, it tracks the highest threshold already
// notified per coordination so a single update cannot re-fire a
// previously-crossed milestone.
type Tracker struct {
	Coordinations kvstore.BatchCoordinationStore
	Batches       kvstore.ProgressStore
	Metrics       telemetry.Metrics
	Notifier      Notifier
	Now           func() time.Time
}

// UpdateBatchProgress records one batch's progress snapshot and returns the
// batch record plus the recomputed coordination aggregate.
func (t *Tracker) UpdateBatchProgress(ctx context.Context, coordinationID, batchID string, batchIndex, itemsProcessed, itemsTotal, errorsCount int) (BatchRecord, Coordination, error) {
	now := t.now()
	status := StatusProcessing
	switch {
	case errorsCount > 0:
		status = StatusFailed
	case itemsTotal > 0 && itemsProcessed >= itemsTotal:
		status = StatusCompleted
	}

	record := BatchRecord{
		CoordinationID: coordinationID,
		BatchID:        batchID,
		BatchIndex:     batchIndex,
		Status:         status,
		ItemsProcessed: itemsProcessed,
		ItemsTotal:     itemsTotal,
		Errors:         errorsCount,
		UpdatedAt:      now,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return BatchRecord{}, Coordination{}, fmt.Errorf("batch: marshal batch record: %w", err)
	}
	if err := t.Batches.Upsert(ctx, coordinationID, batchID, payload); err != nil {
		return BatchRecord{}, Coordination{}, fmt.Errorf("batch: upsert batch record: %w", err)
	}

	coord, err := t.recomputeCoordination(ctx, coordinationID, now)
	if err != nil {
		return record, Coordination{}, err
	}

	t.emitMetrics(coordinationID, record, coord)

	if err := t.fireNotifications(ctx, coord); err != nil {
		return record, coord, err
	}

	return record, coord, nil
}

func (t *Tracker) recomputeCoordination(ctx context.Context, coordinationID string, now time.Time) (Coordination, error) {
	raw, err := t.Coordinations.Get(ctx, coordinationID)
	if err != nil {
		return Coordination{}, fmt.Errorf("batch: load coordination %s: %w", coordinationID, err)
	}
	var coord Coordination
	if err := json.Unmarshal(raw, &coord); err != nil {
		return Coordination{}, fmt.Errorf("batch: decode coordination %s: %w", coordinationID, err)
	}

	rows, err := t.Batches.ListByCoordination(ctx, coordinationID)
	if err != nil {
		return Coordination{}, fmt.Errorf("batch: list batches %s: %w", coordinationID, err)
	}

	var itemsProcessed, errs, completed, failed, processing int
	for _, row := range rows {
		var b BatchRecord
		if err := json.Unmarshal(row, &b); err != nil {
			continue
		}
		itemsProcessed += b.ItemsProcessed
		errs += b.Errors
		switch b.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		default:
			processing++
		}
	}

	coord.CompletedBatches = completed
	coord.FailedBatches = failed
	coord.ItemsProcessed = itemsProcessed
	coord.Errors = errs
	if coord.ItemsTotal > 0 {
		coord.ProgressPercentage = 100 * float64(itemsProcessed) / float64(coord.ItemsTotal)
	}

	switch {
	case coord.TotalBatches > 0 && completed+failed == coord.TotalBatches:
		// OverallStatus distinguishes a clean finish from one with
		// failures via FailedBatches, rather than a separate Status value.
		coord.Status = StatusCompleted
	case processing > 0 || completed > 0 || failed > 0:
		coord.Status = StatusProcessing
	default:
		coord.Status = StatusPending
	}
	coord.UpdatedAt = now

	payload, err := json.Marshal(coord)
	if err != nil {
		return Coordination{}, fmt.Errorf("batch: marshal coordination: %w", err)
	}
	if err := t.Coordinations.Upsert(ctx, coordinationID, string(coord.Status), payload); err != nil {
		return Coordination{}, fmt.Errorf("batch: persist coordination: %w", err)
	}
	return coord, nil
}

// OverallStatus reports "completed_with_errors" when a coordination
// finished with at least one failed batch, distinguishing it from a clean
// completion without inspecting Status alone.
func (c Coordination) OverallStatus() string {
	if c.Status == StatusCompleted && c.FailedBatches > 0 {
		return "completed_with_errors"
	}
	return string(c.Status)
}

func (t *Tracker) fireNotifications(ctx context.Context, coord Coordination) error {
	crossed := coord.LastNotifiedThreshold
	for _, threshold := range notificationThresholds {
		if threshold <= coord.LastNotifiedThreshold {
			continue
		}
		if coord.ProgressPercentage < float64(threshold) {
			continue
		}
		if t.Notifier != nil {
			if err := t.Notifier.Notify(ctx, coord.CoordinationID, threshold, coord); err != nil {
				return fmt.Errorf("batch: notify threshold %d for %s: %w", threshold, coord.CoordinationID, err)
			}
		}
		crossed = threshold
	}
	if crossed != coord.LastNotifiedThreshold {
		coord.LastNotifiedThreshold = crossed
		payload, err := json.Marshal(coord)
		if err != nil {
			return fmt.Errorf("batch: marshal coordination: %w", err)
		}
		if err := t.Coordinations.Upsert(ctx, coord.CoordinationID, string(coord.Status), payload); err != nil {
			return fmt.Errorf("batch: persist notified threshold: %w", err)
		}
	}
	return nil
}

func (t *Tracker) emitMetrics(coordinationID string, batch BatchRecord, coord Coordination) {
	if t.Metrics == nil {
		return
	}
	batchPct := 0.0
	if batch.ItemsTotal > 0 {
		batchPct = 100 * float64(batch.ItemsProcessed) / float64(batch.ItemsTotal)
	}
	t.Metrics.SetGauge(telemetry.GaugeBatchCompletionPercentage, batchPct, map[string]string{
		"coordination_id": coordinationID,
		"batch_id":        batch.BatchID,
	})
	t.Metrics.SetGauge(telemetry.GaugeOverallProgressPercentage, coord.ProgressPercentage, map[string]string{
		"coordination_id": coordinationID,
	})
	t.Metrics.SetGauge(telemetry.GaugeProcessingErrors, float64(coord.Errors), map[string]string{
		"coordination_id": coordinationID,
	})
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
