package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
)

// ProcessFunc performs the actual work for one batch's items.
type ProcessFunc func(ctx context.Context, batch []string) error

// Pipeline runs the nightly batch state machine: optimize batch size,
// coordinate the batches onto the queue, fan out processing with bounded
// concurrency, track progress per batch, and finalize the coordination.
type Pipeline struct {
	Optimizer      *Optimizer
	Coordinator    *Coordinator
	Tracker        *Tracker
	FailureHandler *FailureHandler
	Coordinations  kvstore.BatchCoordinationStore

	// DefaultBatchSize and DefaultConcurrency seed the optimizer when no
	// recent performance samples are available.
	DefaultBatchSize   int
	DefaultConcurrency int
}

// Run executes one full pipeline pass over items and returns the final
// Coordination once every batch has been processed.
func (p *Pipeline) Run(ctx context.Context, processingType string, items []string, samples []PerformanceSample, process ProcessFunc) (Coordination, error) {
	batchSize, concurrency := p.Optimizer.Recommend(p.DefaultBatchSize, p.DefaultConcurrency, samples)

	coordResult, err := p.Coordinator.CreateCoordination(ctx, processingType, items, batchSize)
	if err != nil {
		return Coordination{}, fmt.Errorf("batch: coordinate: %w", err)
	}

	p.fanOut(ctx, coordResult, concurrency, process)

	return p.finalize(ctx, coordResult.CoordinationID)
}

func (p *Pipeline) fanOut(ctx context.Context, coordResult CoordinateResult, concurrency int, process ProcessFunc) {
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, batchItems := range coordResult.Batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(index int, batchID string, items []string) {
			defer wg.Done()
			defer func() { <-sem }()

			run := func(rctx context.Context) error { return process(rctx, items) }
			_ = p.FailureHandler.Process(ctx, coordResult.CoordinationID, batchID, index, len(items), run)
		}(i, coordResult.BatchIDs[i], batchItems)
	}
	wg.Wait()
}

// finalize loads the coordination record after fan-out completes. Any
// batch left incomplete (e.g. due to a canceled context) leaves the
// coordination's status at "processing", reflecting that it is not yet
// done rather than papering over the gap.
func (p *Pipeline) finalize(ctx context.Context, coordinationID string) (Coordination, error) {
	raw, err := p.Coordinations.Get(ctx, coordinationID)
	if err != nil {
		return Coordination{}, fmt.Errorf("batch: finalize %s: %w", coordinationID, err)
	}
	var coord Coordination
	if err := json.Unmarshal(raw, &coord); err != nil {
		return Coordination{}, fmt.Errorf("batch: decode coordination %s: %w", coordinationID, err)
	}
	return coord, nil
}
