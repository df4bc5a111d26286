package csvingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
)

// rowBatchSize matches the batch-coordination contract's "send in groups
// of <=10".
const rowBatchSize = 10

// RowBatch is the payload of one queue message: up to rowBatchSize
// transformed opportunities.
type RowBatch struct {
	Rows []opportunity.Opportunity `json:"rows"`
}

// rawDownloader is the subset of Downloader the Ingestor depends on,
// narrowed so tests can substitute a fake without a live HTTP endpoint.
type rawDownloader interface {
	Download(ctx context.Context) ([]byte, error)
}

// Ingestor drives download -> decode -> parse -> transform -> fan-out.
type Ingestor struct {
	Downloader rawDownloader
	Producer   queue.Producer
	Topic      string
}

// Stats summarizes one ingestion run.
type Stats struct {
	TotalRows      int
	DuplicateRows  int
	ParseErrors    int
	EmittedBatches int
	UsedRobustParse bool
}

// Run downloads and parses the CSV, deduplicates rows by content hash, and
// emits the survivors to the queue in batches of rowBatchSize. FIFO
// ordering across batches is not guaranteed or required.
func (ig *Ingestor) Run(ctx context.Context) (Stats, error) {
	raw, err := ig.Downloader.Download(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("csvingest: %w", err)
	}

	parsed := Parse(raw)
	stats := Stats{ParseErrors: parsed.Errors, UsedRobustParse: parsed.Robust}

	seen := make(map[string]struct{}, len(parsed.Rows))
	var batch []opportunity.Opportunity
	for _, row := range parsed.Rows {
		o, ok := Transform(row)
		if !ok {
			continue
		}
		stats.TotalRows++

		hash := contentHash(row)
		if _, dup := seen[hash]; dup {
			stats.DuplicateRows++
			continue
		}
		seen[hash] = struct{}{}

		batch = append(batch, o)
		if len(batch) == rowBatchSize {
			if err := ig.emit(ctx, batch); err != nil {
				return stats, err
			}
			stats.EmittedBatches++
			batch = nil
		}
	}
	if len(batch) > 0 {
		if err := ig.emit(ctx, batch); err != nil {
			return stats, err
		}
		stats.EmittedBatches++
	}
	return stats, nil
}

func (ig *Ingestor) emit(ctx context.Context, rows []opportunity.Opportunity) error {
	body, err := json.Marshal(RowBatch{Rows: rows})
	if err != nil {
		return fmt.Errorf("csvingest: marshal batch: %w", err)
	}
	key := contentHash(rows)
	return ig.Producer.Send(ctx, ig.Topic, queue.Message{Key: key, Value: body})
}

// contentHash hashes any JSON-serializable value into a stable dedup key.
// For a single Row it keys on the row's full content; for a batch it keys
// on the full content of every row in the batch, so redelivery of the same
// batch is still detectable by the consumer-side DedupeStore.
func contentHash(v any) string {
	body, _ := json.Marshal(v)
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
