package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
)

var errBoom = errors.New("boom")

func TestOptimizer_ScalesUpWhenFastAndClean(t *testing.T) {
	opt := &Optimizer{TargetLatency: time.Minute}
	size, concurrency := opt.Recommend(100, 10, []PerformanceSample{
		{Duration: 10 * time.Second, Errors: 0, Items: 100},
	})
	require.Greater(t, size, 100)
	require.Greater(t, concurrency, 10)
}

func TestOptimizer_ScalesDownWhenSlowOrErrorProne(t *testing.T) {
	opt := &Optimizer{TargetLatency: time.Minute}
	size, concurrency := opt.Recommend(100, 10, []PerformanceSample{
		{Duration: 90 * time.Second, Errors: 5, Items: 100},
	})
	require.Less(t, size, 100)
	require.Less(t, concurrency, 10)
}

func TestOptimizer_ClampsToBounds(t *testing.T) {
	opt := &Optimizer{TargetLatency: time.Minute}
	size, concurrency := opt.Recommend(5, 1, []PerformanceSample{
		{Duration: 90 * time.Second, Errors: 5, Items: 100},
	})
	require.GreaterOrEqual(t, size, minBatchSize)
	require.GreaterOrEqual(t, concurrency, minConcurrency)
}

type fakeProducer struct {
	sends [][]queue.Message
}

func (p *fakeProducer) Send(_ context.Context, _ string, msgs ...queue.Message) error {
	p.sends = append(p.sends, msgs)
	return nil
}
func (p *fakeProducer) Close() error { return nil }

func TestCoordinator_PartitionsAndSendsInGroupsOfTen(t *testing.T) {
	items := make([]string, 55)
	for i := range items {
		items[i] = "item"
	}
	producer := &fakeProducer{}
	coord := &Coordinator{
		Coordinations: kvstore.NewMemoryBatchCoordinationStore(),
		Producer:      producer,
		Topic:         "batches",
		Now:           func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	result, err := coord.CreateCoordination(context.Background(), "opportunity_scoring", items, 10)
	require.NoError(t, err)
	require.Equal(t, 6, result.BatchesCreated) // 5 full + 1 remainder
	require.Equal(t, 55, result.TotalItems)

	var totalSent int
	for _, group := range producer.sends {
		require.LessOrEqual(t, len(group), queueBatchSize)
		totalSent += len(group)
	}
	require.Equal(t, 6, totalSent)

	raw, err := coord.Coordinations.Get(context.Background(), result.CoordinationID)
	require.NoError(t, err)
	var stored Coordination
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Equal(t, 6, stored.TotalBatches)
}

func newTestTracker() (*Tracker, kvstore.BatchCoordinationStore) {
	coords := kvstore.NewMemoryBatchCoordinationStore()
	tracker := &Tracker{
		Coordinations: coords,
		Batches:       kvstore.NewMemoryProgressStore(),
		Metrics:       telemetry.NoopMetrics{},
		Now:           func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
	return tracker, coords
}

func seedCoordination(t *testing.T, coords kvstore.BatchCoordinationStore, id string, totalBatches, totalItems int) {
	t.Helper()
	coord := Coordination{
		CoordinationID: id,
		ProcessingType: "opportunity_scoring",
		Status:         StatusProcessing,
		TotalBatches:   totalBatches,
		TotalItems:     totalItems,
		ItemsTotal:     totalItems,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(coord)
	require.NoError(t, err)
	require.NoError(t, coords.Upsert(context.Background(), id, string(coord.Status), payload))
}

func TestTracker_RecomputesCoordinationAggregate(t *testing.T) {
	tracker, coords := newTestTracker()
	seedCoordination(t, coords, "coord-1", 2, 20)

	_, coord, err := tracker.UpdateBatchProgress(context.Background(), "coord-1", "coord-1-0000", 0, 10, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 50.0, coord.ProgressPercentage)
	require.Equal(t, StatusProcessing, coord.Status)

	_, coord, err = tracker.UpdateBatchProgress(context.Background(), "coord-1", "coord-1-0001", 1, 10, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 100.0, coord.ProgressPercentage)
	require.Equal(t, StatusCompleted, coord.Status)
	require.Equal(t, "completed", coord.OverallStatus())
}

func TestTracker_NotifiesEachCrossedThresholdExactlyOnce(t *testing.T) {
	tracker, coords := newTestTracker()
	seedCoordination(t, coords, "coord-2", 1, 100)

	var notified []int
	tracker.Notifier = NotifierFunc(func(_ context.Context, _ string, threshold int, _ Coordination) error {
		notified = append(notified, threshold)
		return nil
	})

	// Jumps straight from 0 to 92%, crossing 25/50/75/90 at once.
	_, _, err := tracker.UpdateBatchProgress(context.Background(), "coord-2", "coord-2-0000", 0, 92, 100, 0)
	require.NoError(t, err)
	require.Equal(t, []int{25, 50, 75, 90}, notified)

	// A later update that only reaches 92% again must not re-fire.
	_, _, err = tracker.UpdateBatchProgress(context.Background(), "coord-2", "coord-2-0000", 0, 92, 100, 0)
	require.NoError(t, err)
	require.Equal(t, []int{25, 50, 75, 90}, notified)
}

func TestTracker_CompletedWithErrorsIsVisibleViaOverallStatus(t *testing.T) {
	tracker, coords := newTestTracker()
	seedCoordination(t, coords, "coord-3", 2, 20)

	_, _, err := tracker.UpdateBatchProgress(context.Background(), "coord-3", "coord-3-0000", 0, 10, 10, 3)
	require.NoError(t, err)
	_, coord, err := tracker.UpdateBatchProgress(context.Background(), "coord-3", "coord-3-0001", 1, 10, 10, 0)
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, coord.Status)
	require.Equal(t, 1, coord.FailedBatches)
	require.Equal(t, "completed_with_errors", coord.OverallStatus())
}

func TestHealthMonitor_ClassifiesStalledErrorDegradedHealthy(t *testing.T) {
	coords := kvstore.NewMemoryBatchCoordinationStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	seed := func(id string, status Status, updatedAt time.Time, total, failed int) {
		coord := Coordination{CoordinationID: id, Status: status, UpdatedAt: updatedAt, TotalBatches: total, FailedBatches: failed}
		payload, _ := json.Marshal(coord)
		_ = coords.Upsert(context.Background(), id, string(status), payload)
	}

	seed("stalled", StatusProcessing, now.Add(-90*time.Minute), 10, 0)
	seed("error", StatusFailed, now.Add(-time.Minute), 10, 0)
	seed("degraded", StatusProcessing, now.Add(-time.Minute), 10, 3)
	seed("healthy", StatusProcessing, now.Add(-time.Minute), 10, 0)

	monitor := &HealthMonitor{Coordinations: coords, Now: func() time.Time { return now }}
	results, err := monitor.Assess(context.Background())
	require.NoError(t, err)

	byID := map[string]HealthStatus{}
	for _, r := range results {
		byID[r.CoordinationID] = r.Status
	}
	require.Equal(t, HealthStalled, byID["stalled"])
	require.Equal(t, HealthError, byID["error"])
	require.Equal(t, HealthDegraded, byID["degraded"])
	require.Equal(t, HealthHealthy, byID["healthy"])
}

func TestHealthMonitor_LiteralNightlyRunCounts(t *testing.T) {
	coords := kvstore.NewMemoryBatchCoordinationStore()
	batches := kvstore.NewMemoryProgressStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	coordinationID := "match_scoring-20260101"
	coord := Coordination{
		CoordinationID:   coordinationID,
		Status:           StatusProcessing,
		UpdatedAt:        now.Add(-90 * time.Minute),
		TotalBatches:     100,
		FailedBatches:    15,
		CompletedBatches: 80,
	}
	payload, err := json.Marshal(coord)
	require.NoError(t, err)
	require.NoError(t, coords.Upsert(context.Background(), coord.CoordinationID, string(coord.Status), payload))

	seedBatch := func(batchID string, status Status, updatedAt time.Time) {
		rec := BatchRecord{CoordinationID: coordinationID, BatchID: batchID, Status: status, UpdatedAt: updatedAt}
		p, err := json.Marshal(rec)
		require.NoError(t, err)
		require.NoError(t, batches.Upsert(context.Background(), coordinationID, batchID, p))
	}
	for i := 0; i < 80; i++ {
		seedBatch(fmt.Sprintf("completed-%02d", i), StatusCompleted, now.Add(-2*time.Minute))
	}
	for i := 0; i < 15; i++ {
		seedBatch(fmt.Sprintf("failed-%02d", i), StatusFailed, now.Add(-3*time.Minute))
	}
	for i := 0; i < 5; i++ {
		seedBatch(fmt.Sprintf("processing-%02d", i), StatusProcessing, now.Add(-90*time.Minute))
	}

	monitor := &HealthMonitor{Coordinations: coords, Batches: batches, Now: func() time.Time { return now }}
	results, err := monitor.Assess(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	// 80 of the 100 batches completed minutes ago and 15 failed minutes
	// ago, so the coordination itself is fresh; its 15% failure ratio (past
	// the 10% degraded threshold) classifies it degraded, and the 5
	// batches idle for 90 minutes are counted as stalled individually.
	require.Equal(t, HealthDegraded, results[0].Status)
	require.Equal(t, 15, results[0].FailedBatches)
	require.Equal(t, 80, results[0].CompletedBatches)
	require.Equal(t, 100, results[0].TotalBatches)
	require.Equal(t, 5, results[0].StalledBatches)
}

func TestFailureHandler_RetriesThenRecordsFailure(t *testing.T) {
	tracker, coords := newTestTracker()
	seedCoordination(t, coords, "coord-4", 1, 10)

	handler := &FailureHandler{Tracker: tracker}
	attempts := 0
	err := handler.Process(context.Background(), "coord-4", "coord-4-0000", 0, 10, func(context.Context) error {
		attempts++
		return errBoom
	})
	require.Error(t, err)
	require.Equal(t, maxBatchRetries, attempts)

	raw, err := coords.Get(context.Background(), "coord-4")
	require.NoError(t, err)
	var coord Coordination
	require.NoError(t, json.Unmarshal(raw, &coord))
	require.Equal(t, 1, coord.FailedBatches)
}

func TestFailureHandler_SucceedsRecordsCompletion(t *testing.T) {
	tracker, coords := newTestTracker()
	seedCoordination(t, coords, "coord-5", 1, 10)

	handler := &FailureHandler{Tracker: tracker}
	err := handler.Process(context.Background(), "coord-5", "coord-5-0000", 0, 10, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	raw, err := coords.Get(context.Background(), "coord-5")
	require.NoError(t, err)
	var coord Coordination
	require.NoError(t, json.Unmarshal(raw, &coord))
	require.Equal(t, StatusCompleted, coord.Status)
	require.Equal(t, 0, coord.FailedBatches)
}

func TestScheduler_UpsertAndTriggerNow(t *testing.T) {
	sched := NewScheduler()
	var invoked bool
	sched.RegisterTarget("noop", func(context.Context, json.RawMessage) error {
		invoked = true
		return nil
	})

	require.NoError(t, sched.Upsert(Schedule{Name: "nightly", CronExpr: "0 2 * * *", Target: "noop"}))
	require.Len(t, sched.List(), 1)

	handle, err := sched.TriggerNow(context.Background(), "nightly")
	require.NoError(t, err)
	require.True(t, invoked)
	require.NoError(t, handle.Err)

	sched.Remove("nightly")
	require.Empty(t, sched.List())
}

func TestPipeline_RunProcessesAllBatches(t *testing.T) {
	coords := kvstore.NewMemoryBatchCoordinationStore()
	progressStore := kvstore.NewMemoryProgressStore()
	producer := &fakeProducer{}
	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	coordinator := &Coordinator{Coordinations: coords, Producer: producer, Topic: "batches", Now: now}
	tracker := &Tracker{Coordinations: coords, Batches: progressStore, Metrics: telemetry.NoopMetrics{}, Now: now}
	pipeline := &Pipeline{
		Optimizer:          &Optimizer{TargetLatency: time.Minute},
		Coordinator:        coordinator,
		Tracker:            tracker,
		FailureHandler:     &FailureHandler{Tracker: tracker},
		Coordinations:      coords,
		DefaultBatchSize:   5,
		DefaultConcurrency: 2,
	}

	items := make([]string, 12)
	for i := range items {
		items[i] = "item"
	}

	coord, err := pipeline.Run(context.Background(), "opportunity_scoring", items, nil, func(_ context.Context, batch []string) error {
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, coord.Status)
	require.Equal(t, 12, coord.ItemsProcessed)
	require.Equal(t, 0, coord.FailedBatches)
}
