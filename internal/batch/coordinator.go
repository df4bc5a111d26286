package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
)

// queueBatchSize matches the batch-coordination contract's "send in groups
// of <=10" per underlying queue API call.
const queueBatchSize = 10

// Coordinator partitions a work list into batches, persists the
// coordination record, and fans the batches out to the queue.
type Coordinator struct {
	Coordinations kvstore.BatchCoordinationStore
	Producer      queue.Producer
	Topic         string
	Now           func() time.Time
}

// CoordinateResult summarizes one CreateCoordination call.
type CoordinateResult struct {
	CoordinationID string
	BatchesCreated int
	TotalItems     int
	// BatchIDs and Batches are parallel slices: BatchIDs[i] is the batch_id
	// enqueued for Batches[i], in batch_index order.
	BatchIDs []string
	Batches  [][]string
}

// CreateCoordination partitions items into batches of batchSize, persists a
// Coordination record in processing status (completed when there are no
// items), and enqueues one Message per batch, sent in
// groups of at most queueBatchSize per Producer.Send call.
func (c *Coordinator) CreateCoordination(ctx context.Context, processingType string, items []string, batchSize int) (CoordinateResult, error) {
	if batchSize <= 0 {
		batchSize = minBatchSize
	}
	coordinationID := uuid.NewString()
	now := c.now()

	batches := partition(items, batchSize)
	coord := Coordination{
		CoordinationID: coordinationID,
		ProcessingType: processingType,
		Status:         StatusProcessing,
		TotalBatches:   len(batches),
		TotalItems:     len(items),
		ItemsTotal:     len(items),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(batches) == 0 {
		coord.Status = StatusCompleted
	}
	if err := c.persist(ctx, coord); err != nil {
		return CoordinateResult{}, err
	}

	batchIDs := make([]string, len(batches))
	var msgs []queue.Message
	for i, b := range batches {
		batchID := fmt.Sprintf("%s-%04d", coordinationID, i)
		batchIDs[i] = batchID
		payload, err := json.Marshal(Message{
			CoordinationID: coordinationID,
			BatchID:        batchID,
			BatchIndex:     i,
			BatchData:      b,
		})
		if err != nil {
			return CoordinateResult{}, fmt.Errorf("batch: marshal batch %s: %w", batchID, err)
		}
		msgs = append(msgs, queue.Message{Key: batchID, Value: payload})
	}

	for _, group := range chunkQueueMessages(msgs) {
		if err := c.Producer.Send(ctx, c.Topic, group...); err != nil {
			return CoordinateResult{}, fmt.Errorf("batch: enqueue: %w", err)
		}
	}

	return CoordinateResult{
		CoordinationID: coordinationID,
		BatchesCreated: len(batches),
		TotalItems:     len(items),
		BatchIDs:       batchIDs,
		Batches:        batches,
	}, nil
}

func partition(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	out = append(out, items)
	return out
}

func chunkQueueMessages(msgs []queue.Message) [][]queue.Message {
	if len(msgs) == 0 {
		return nil
	}
	var out [][]queue.Message
	for len(msgs) > queueBatchSize {
		out = append(out, msgs[:queueBatchSize])
		msgs = msgs[queueBatchSize:]
	}
	out = append(out, msgs)
	return out
}

func (c *Coordinator) persist(ctx context.Context, coord Coordination) error {
	payload, err := json.Marshal(coord)
	if err != nil {
		return fmt.Errorf("batch: marshal coordination: %w", err)
	}
	return c.Coordinations.Upsert(ctx, coord.CoordinationID, string(coord.Status), payload)
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
