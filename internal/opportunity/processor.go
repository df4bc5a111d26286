package opportunity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/chunk"
	"github.com/tjaddison/govbiz-ai-sub002/internal/embedclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/extract"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/vectorindex"
)

// Embedder is the subset of embedclient.Client the processor depends on.
type Embedder interface {
	Embed(ctx context.Context, text string, role embedclient.Role) ([]float32, error)
}

// AttachmentFetcher retrieves the raw bytes of an opportunity attachment.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, a Attachment) ([]byte, error)
}

// Input is the raw work item driving one Processor.Process call.
type Input struct {
	NoticeID        string
	Opportunity     Opportunity
	AttachmentInfos []Attachment
}

// Result is returned to the caller after a single notice_id is processed.
type Result struct {
	NoticeID string           `json:"noticeId"`
	Status   ProcessingStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
}

// Processor implements the nine-step Opportunity Processor pipeline. Every
// step is idempotent: re-running Process for a notice_id whose stored record
// is not in error returns already_exists without re-doing work, and every
// object-store write goes to a deterministic key (posted date, notice_id,
// segment or chunk) that is skipped when it already exists, so re-ingestion
// does not duplicate records.
type Processor struct {
	Store       kvstore.OpportunityStore
	Objects     objectstore.ObjectStore
	VectorIndex vectorindex.Index
	Embedder    Embedder
	Attachments AttachmentFetcher
	OCR         extract.OCR
	Now         func() time.Time
}

// Process runs the full pipeline for one opportunity row.
func (p *Processor) Process(ctx context.Context, in Input) Result {
	now := p.now()

	existing, err := p.Store.Get(ctx, in.NoticeID)
	if err == nil && len(existing) > 0 {
		var prev Opportunity
		if json.Unmarshal(existing, &prev) != nil || prev.ProcessingStatus != StatusError {
			return Result{NoticeID: in.NoticeID, Status: StatusAlreadyExists}
		}
	}

	o := in.Opportunity
	o.NoticeID = in.NoticeID
	if err := validateRequired(o); err != nil {
		p.persistError(ctx, o, err, now)
		return Result{NoticeID: in.NoticeID, Status: StatusError, Error: err.Error()}
	}

	ApplyStatus(&o, now)
	o.CreatedAt = now
	o.UpdatedAt = now

	if err := p.embedSegments(ctx, &o); err != nil {
		p.persistError(ctx, o, err, now)
		return Result{NoticeID: in.NoticeID, Status: StatusError, Error: err.Error()}
	}

	if err := p.processAttachments(ctx, &o, in.AttachmentInfos); err != nil {
		p.persistError(ctx, o, err, now)
		return Result{NoticeID: in.NoticeID, Status: StatusError, Error: err.Error()}
	}

	o.ProcessingStatus = StatusCompleted
	if err := p.upsert(ctx, o); err != nil {
		return Result{NoticeID: in.NoticeID, Status: StatusError, Error: err.Error()}
	}

	if err := p.indexVectors(ctx, o); err != nil {
		return Result{NoticeID: in.NoticeID, Status: StatusError, Error: err.Error()}
	}

	return Result{NoticeID: in.NoticeID, Status: StatusCompleted}
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func validateRequired(o Opportunity) error {
	if strings.TrimSpace(o.NoticeID) == "" {
		return fmt.Errorf("notice_id is required")
	}
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if o.PostedDate.IsZero() {
		return fmt.Errorf("posted_date is required")
	}
	return nil
}

// embedSegments embeds every non-empty composed text segment and writes the
// resulting Embedding Records to a deterministic key. A key that already
// exists is left untouched rather than rewritten, per the idempotency
// contract.
func (p *Processor) embedSegments(ctx context.Context, o *Opportunity) error {
	segments := Segments(*o)
	postedDate := o.PostedDate.Format("2006-01-02")

	var sectionKeys []string
	for seg, text := range segments {
		key := objectstore.OpportunitySegmentEmbeddingKey(postedDate, o.NoticeID, string(seg))
		exists, err := p.Objects.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("check segment key %s: %w", key, err)
		}
		if exists {
			sectionKeys = append(sectionKeys, key)
			continue
		}
		vector, err := p.Embedder.Embed(ctx, text, embedclient.RoleSearchDocument)
		if err != nil {
			return fmt.Errorf("embed segment %s: %w", seg, err)
		}
		if err := p.writeEmbeddingRecord(ctx, key, string(seg), text, vector, o); err != nil {
			return err
		}
		if seg == SegmentMain {
			o.EmbeddingMetadata.SummaryKey = key
		} else {
			sectionKeys = append(sectionKeys, key)
		}
	}
	o.EmbeddingMetadata.SectionKeys = sectionKeys
	return nil
}

// processAttachments fetches each attachment, extracts text (C1), chunks it
// (C2), embeds each chunk (C3), and writes chunk-level Embedding Records.
func (p *Processor) processAttachments(ctx context.Context, o *Opportunity, attachments []Attachment) error {
	postedDate := o.PostedDate.Format("2006-01-02")
	for _, a := range attachments {
		if p.Attachments == nil {
			continue
		}
		blob, err := p.Attachments.Fetch(ctx, a)
		if err != nil {
			return fmt.Errorf("fetch attachment %s: %w", a.AttachmentID, err)
		}
		extracted := extract.Extract(ctx, blob, a.Filename, p.OCR)
		if !extracted.Success {
			return fmt.Errorf("extract attachment %s: %s", a.AttachmentID, extracted.Error)
		}

		chunks := chunk.Run(chunk.Semantic, extracted.FullText, chunk.DefaultChunkWords, chunk.DefaultOverlapWords)
		var chunkKeys []string
		for i, c := range chunks {
			key := objectstore.OpportunityAttachmentChunkKey(postedDate, o.NoticeID, a.AttachmentID, i)
			exists, err := p.Objects.Exists(ctx, key)
			if err != nil {
				return fmt.Errorf("check chunk key %s: %w", key, err)
			}
			if exists {
				chunkKeys = append(chunkKeys, key)
				continue
			}
			vector, err := p.Embedder.Embed(ctx, c.Text, embedclient.RoleSearchDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", i, a.AttachmentID, err)
			}
			if err := p.writeEmbeddingRecord(ctx, key, "chunk", c.Text, vector, o); err != nil {
				return err
			}
			chunkKeys = append(chunkKeys, key)
		}
		o.EmbeddingMetadata.ChunkKeys = append(o.EmbeddingMetadata.ChunkKeys, chunkKeys...)
	}
	return nil
}

// embeddingRecord mirrors the persistence design's Embedding Record shape.
type embeddingRecord struct {
	OwnerID            string            `json:"ownerId"`
	ContentType         string            `json:"contentType"`
	Vector              []float32         `json:"vector"`
	SourceTextPreview    string            `json:"sourceTextPreview"`
	TokenCount           int               `json:"tokenCount"`
	GeneratedAt          time.Time         `json:"generatedAt"`
	Metadata             map[string]string `json:"metadata"`
}

func (p *Processor) writeEmbeddingRecord(ctx context.Context, key, contentType, text string, vector []float32, o *Opportunity) error {
	preview := text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	rec := embeddingRecord{
		OwnerID:           o.NoticeID,
		ContentType:       contentType,
		Vector:            vector,
		SourceTextPreview: preview,
		TokenCount:        len(strings.Fields(text)),
		GeneratedAt:       p.now(),
		Metadata: map[string]string{
			"naics":       o.NAICSCode,
			"agency":      o.Agency,
			"state":       o.PlaceOfPerformance.State,
			"postedDate":  o.PostedDate.Format("2006-01-02"),
		},
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal embedding record: %w", err)
	}
	if _, err := p.Objects.Put(ctx, key, bytes.NewReader(body), objectstore.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("put embedding record %s: %w", key, err)
	}
	return nil
}

func (p *Processor) upsert(ctx context.Context, o Opportunity) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal opportunity: %w", err)
	}
	return p.Store.Upsert(ctx, o.NoticeID, o.Agency, o.NAICSCode, o.ArchiveDate, payload)
}

func (p *Processor) indexVectors(ctx context.Context, o Opportunity) error {
	keys := append([]string{}, o.EmbeddingMetadata.SectionKeys...)
	if o.EmbeddingMetadata.SummaryKey != "" {
		keys = append(keys, o.EmbeddingMetadata.SummaryKey)
	}
	keys = append(keys, o.EmbeddingMetadata.ChunkKeys...)

	filters := map[string]string{
		"naics":      o.NAICSCode,
		"agency":     o.Agency,
		"state":      o.PlaceOfPerformance.State,
		"postedDate": o.PostedDate.Format("2006-01-02"),
	}
	for _, key := range keys {
		vector, err := p.readEmbeddingVector(ctx, key)
		if err != nil {
			return err
		}
		if err := p.VectorIndex.Upsert(ctx, vectorindex.EntityOpportunity, key, vector, filters); err != nil {
			return fmt.Errorf("index %s: %w", key, err)
		}
	}
	return nil
}

func (p *Processor) readEmbeddingVector(ctx context.Context, key string) ([]float32, error) {
	rc, _, err := p.Objects.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read embedding %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var rec embeddingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode embedding %s: %w", key, err)
	}
	return rec.Vector, nil
}

func (p *Processor) persistError(ctx context.Context, o Opportunity, cause error, now time.Time) {
	o.ProcessingStatus = StatusError
	o.ErrorMessage = cause.Error()
	o.RetryCount++
	o.UpdatedAt = now
	payload, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = p.Store.Upsert(ctx, o.NoticeID, o.Agency, o.NAICSCode, o.ArchiveDate, payload)
}
