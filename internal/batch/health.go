package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
)

// stalledAfter is the time-since-last-update past which a coordination (or
// an individual batch within one) is considered stalled.
const stalledAfter = 60 * time.Minute

// degradedFailureRatio is the fraction of failed batches past which a
// coordination is considered degraded even though it is still running.
const degradedFailureRatio = 0.1

// activeWindow bounds how far back HealthMonitor scans for coordinations
// worth assessing.
const activeWindow = 6 * time.Hour

// CoordinationHealth is the health snapshot for one coordination run.
type CoordinationHealth struct {
	CoordinationID     string        `json:"coordinationId"`
	Status             HealthStatus  `json:"status"`
	ProgressPercentage float64       `json:"progressPercentage"`
	TimeSinceUpdate    time.Duration `json:"timeSinceUpdate"`
	FailedBatches      int           `json:"failedBatches"`
	CompletedBatches   int           `json:"completedBatches"`
	TotalBatches       int           `json:"totalBatches"`
	StalledBatches     int           `json:"stalledBatches"`
}

// HealthMonitor classifies the health of recently-active coordinations.
type HealthMonitor struct {
	Coordinations kvstore.BatchCoordinationStore
	// Batches is optional; when set, per-coordination staleness is derived
	// from the most recently updated batch record rather than the
	// coordination's own UpdatedAt.
	Batches kvstore.ProgressStore
	Now     func() time.Time
}

// Assess returns a health snapshot for every coordination updated within
// activeWindow.
func (m *HealthMonitor) Assess(ctx context.Context) ([]CoordinationHealth, error) {
	now := m.now()
	rows, err := m.Coordinations.ListActiveSince(ctx, now.Add(-activeWindow))
	if err != nil {
		return nil, fmt.Errorf("batch: list active coordinations: %w", err)
	}

	out := make([]CoordinationHealth, 0, len(rows))
	for _, row := range rows {
		var coord Coordination
		if err := json.Unmarshal(row, &coord); err != nil {
			continue
		}
		batches, err := m.loadBatches(ctx, coord.CoordinationID)
		if err != nil {
			return nil, err
		}
		out = append(out, assessOne(coord, batches, now))
	}
	return out, nil
}

func (m *HealthMonitor) loadBatches(ctx context.Context, coordinationID string) ([]BatchRecord, error) {
	if m.Batches == nil {
		return nil, nil
	}
	rows, err := m.Batches.ListByCoordination(ctx, coordinationID)
	if err != nil {
		return nil, fmt.Errorf("batch: list batches %s: %w", coordinationID, err)
	}
	out := make([]BatchRecord, 0, len(rows))
	for _, row := range rows {
		var b BatchRecord
		if err := json.Unmarshal(row, &b); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// assessOne classifies one coordination's health. When per-batch records
// are available, staleness is derived from the most recently updated batch
// rather than the coordination's own UpdatedAt, so a coordination whose
// batches are mostly current isn't misclassified as stalled just because
// its aggregate row hasn't been touched; batches individually idle past
// stalledAfter are counted in StalledBatches regardless of the
// coordination-level classification.
func assessOne(coord Coordination, batches []BatchRecord, now time.Time) CoordinationHealth {
	sinceUpdate := now.Sub(coord.UpdatedAt)
	var stalledBatches int
	if len(batches) > 0 {
		mostRecent := batches[0].UpdatedAt
		for _, b := range batches {
			if b.UpdatedAt.After(mostRecent) {
				mostRecent = b.UpdatedAt
			}
			if now.Sub(b.UpdatedAt) > stalledAfter {
				stalledBatches++
			}
		}
		sinceUpdate = now.Sub(mostRecent)
	}

	var status HealthStatus
	switch {
	case sinceUpdate > stalledAfter:
		status = HealthStalled
	case coord.Status == StatusFailed:
		status = HealthError
	case coord.TotalBatches > 0 && float64(coord.FailedBatches) > float64(coord.TotalBatches)*degradedFailureRatio:
		status = HealthDegraded
	default:
		status = HealthHealthy
	}

	return CoordinationHealth{
		CoordinationID:     coord.CoordinationID,
		Status:             status,
		ProgressPercentage: coord.ProgressPercentage,
		TimeSinceUpdate:    sinceUpdate,
		FailedBatches:      coord.FailedBatches,
		CompletedBatches:   coord.CompletedBatches,
		TotalBatches:       coord.TotalBatches,
		StalledBatches:     stalledBatches,
	}
}

func (m *HealthMonitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
