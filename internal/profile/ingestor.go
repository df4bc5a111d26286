package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjaddison/govbiz-ai-sub002/internal/extract"
	"github.com/tjaddison/govbiz-ai-sub002/internal/llmclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/mlevel"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
)

// allowedExtensions is the upload whitelist; anything else is rejected
// before a signed upload token is even issued.
var allowedExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".xlsx": true, ".xls": true, ".txt": true,
}

// maxUploadBytes is the hard per-document size ceiling.
const maxUploadBytes = 100 * 1024 * 1024

// ErrUnknownExtension is returned when the filename's extension isn't in
// the upload whitelist.
var ErrUnknownExtension = fmt.Errorf("profile: file extension not allowed")

// ErrFileTooLarge is returned when a requested upload exceeds maxUploadBytes.
var ErrFileTooLarge = fmt.Errorf("profile: file exceeds maximum size")

// UploadIntent is the caller-supplied description of a document about to
// be uploaded.
type UploadIntent struct {
	Filename string
	Size     int64
	MIME     string
	Category string
}

// UploadToken is returned to the caller after a successful intent
// validation: a key scoped to the company's tenant namespace plus expiry.
type UploadToken struct {
	DocumentID string    `json:"documentId"`
	S3Key      string    `json:"s3Key"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SignedUploader issues a signed, time-bounded write URL/token for a
// specific object-store key.
type SignedUploader interface {
	SignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// SignedDownloader issues a signed, time-bounded read URL for a specific
// object-store key.
type SignedDownloader interface {
	SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Ingestor validates upload intents, issues upload tokens, and runs the
// per-document processing pipeline once a document is confirmed uploaded.
type Ingestor struct {
	Objects    objectstore.ObjectStore
	Uploader   SignedUploader
	Embedder   mlevel.Embedder
	Summarizer mlevel.Summarizer
	LLM        llmclient.Client
	OCR        extract.OCR
	Now        func() time.Time
}

// RequestUpload validates an UploadIntent and, if accepted, issues a
// one-hour-expiry upload token scoped to
// tenants/<company_id>/raw/<doc_id>/<filename>.
func (ig *Ingestor) RequestUpload(ctx context.Context, companyID string, intent UploadIntent) (UploadToken, error) {
	ext := strings.ToLower(filepath.Ext(intent.Filename))
	if !allowedExtensions[ext] {
		return UploadToken{}, ErrUnknownExtension
	}
	if intent.Size > maxUploadBytes {
		return UploadToken{}, ErrFileTooLarge
	}

	docID := uuid.NewString()
	key := fmt.Sprintf("tenants/%s/raw/%s/%s", companyID, docID, intent.Filename)

	expiry := time.Hour
	if ig.Uploader != nil {
		if _, err := ig.Uploader.SignUpload(ctx, key, expiry); err != nil {
			return UploadToken{}, fmt.Errorf("profile: sign upload: %w", err)
		}
	}

	return UploadToken{DocumentID: docID, S3Key: key, ExpiresAt: ig.now().Add(expiry)}, nil
}

// ProcessDocument runs the full pipeline for one confirmed-uploaded
// document: C1 extract, classify, structured extraction branched by
// category, C4 multi-level embeddings, then returns the populated
// Document plus whichever structured record (ResumeRecord or
// CapabilityRecord, JSON-encoded) the classifier selected.
func (ig *Ingestor) ProcessDocument(ctx context.Context, companyID string, doc Document) (Document, json.RawMessage, error) {
	rc, _, err := ig.Objects.Get(ctx, doc.S3Key)
	if err != nil {
		doc.Status = DocStatusFailed
		return doc, nil, fmt.Errorf("profile: fetch %s: %w", doc.S3Key, err)
	}
	defer rc.Close()
	blob, err := io.ReadAll(rc)
	if err != nil {
		doc.Status = DocStatusFailed
		return doc, nil, fmt.Errorf("profile: read %s: %w", doc.S3Key, err)
	}

	extracted := extract.Extract(ctx, blob, doc.Filename, ig.OCR)
	if !extracted.Success {
		doc.Status = DocStatusFailed
		return doc, nil, fmt.Errorf("profile: extract %s: %s", doc.Filename, extracted.Error)
	}
	if err := ig.writeProcessedText(ctx, companyID, doc.DocumentID, doc.Filename, extracted.FullText); err != nil {
		doc.Status = DocStatusFailed
		return doc, nil, fmt.Errorf("profile: persist processed text %s: %w", doc.Filename, err)
	}

	classification, err := Classify(ctx, ig.LLM, doc.Filename, extracted.FullText)
	if err != nil {
		doc.Status = DocStatusFailed
		return doc, nil, fmt.Errorf("profile: classify %s: %w", doc.Filename, err)
	}
	doc.Category = classification.Category

	var structured json.RawMessage
	switch classification.Category {
	case CategoryResume:
		rec, err := ExtractResume(ctx, ig.LLM, extracted.FullText)
		if err == nil {
			structured, _ = json.Marshal(rec)
		}
	case CategoryCapability:
		rec, err := ExtractCapability(ctx, ig.LLM, extracted.FullText)
		if err == nil {
			structured, _ = json.Marshal(rec)
		}
	}

	if ig.Embedder != nil {
		orch := &mlevel.Orchestrator{Embedder: ig.Embedder, Summarizer: ig.Summarizer, Objects: ig.Objects, Now: ig.Now}
		keyer := func(level mlevel.Level, name string) string {
			return fmt.Sprintf("tenants/%s/embeddings/%s/%s_%s.json", companyID, level, doc.DocumentID, name)
		}
		summary, err := orch.Process(ctx, extracted.FullText, keyer)
		if err != nil {
			doc.Status = DocStatusFailed
			return doc, structured, fmt.Errorf("profile: embed %s: %w", doc.Filename, err)
		}
		doc.EmbeddingMetadata = embeddingMetadataFromSummary(summary)
	}

	doc.Status = DocStatusProcessed
	return doc, structured, nil
}

func (ig *Ingestor) now() time.Time {
	if ig.Now != nil {
		return ig.Now()
	}
	return time.Now()
}

// writeProcessedText persists cleaned document text alongside the raw
// blob, at the deterministic "processed" namespace path so repeated
// processing replaces rather than duplicates.
func (ig *Ingestor) writeProcessedText(ctx context.Context, companyID, docID, filename, text string) error {
	key := fmt.Sprintf("tenants/%s/processed/%s/%s.txt", companyID, docID, filename)
	_, err := ig.Objects.Put(ctx, key, bytes.NewReader([]byte(text)), objectstore.PutOptions{ContentType: "text/plain"})
	return err
}
