package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/mlevel"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
)

// profileEmbeddingPrefix namespaces the aggregate, company-level embeddings
// rebuilt by Reembedder, distinct from each document's own per-document
// embeddings under tenants/<id>/embeddings/.
const profileEmbeddingPrefix = "tenants/%s/profile-embeddings/"

// Reembedder rebuilds a company's aggregate multi-level embeddings from the
// processed text of every remaining document, so a document deletion never
// leaves a stale profile embedding pointing at text that no longer exists.
type Reembedder struct {
	Companies  CompanyStore
	Objects    objectstore.ObjectStore
	Embedder   mlevel.Embedder
	Summarizer mlevel.Summarizer
	Now        func() time.Time
}

// CompanyStore is the subset of kvstore.CompanyStore Reembedder depends on.
type CompanyStore interface {
	Get(ctx context.Context, companyID string) (json.RawMessage, error)
	Upsert(ctx context.Context, companyID, tenantID string, payload json.RawMessage) error
}

// TriggerReembed clears the company's existing aggregate embeddings and
// regenerates them from the concatenated processed text of its remaining
// documents. A company left with no processed documents ends up with no
// aggregate embeddings at all, which is the correct empty state.
func (re *Reembedder) TriggerReembed(ctx context.Context, companyID string) error {
	raw, err := re.Companies.Get(ctx, companyID)
	if err != nil {
		return fmt.Errorf("profile: reembed: load company %s: %w", companyID, err)
	}
	var company CompanyProfile
	if err := json.Unmarshal(raw, &company); err != nil {
		return fmt.Errorf("profile: reembed: decode company %s: %w", companyID, err)
	}

	prefix := fmt.Sprintf(profileEmbeddingPrefix, companyID)
	if err := re.clearPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("profile: reembed: clear stale embeddings: %w", err)
	}

	var texts []string
	for _, doc := range company.Documents {
		if doc.Status != DocStatusProcessed {
			continue
		}
		key := fmt.Sprintf("tenants/%s/processed/%s/%s.txt", companyID, doc.DocumentID, doc.Filename)
		rc, _, err := re.Objects.Get(ctx, key)
		if err != nil {
			continue // a document's processed text may legitimately be gone already
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		texts = append(texts, string(body))
	}
	if len(texts) == 0 {
		company.EmbeddingMetadata = EmbeddingMetadata{}
		return re.save(ctx, companyID, company)
	}

	orch := &mlevel.Orchestrator{Embedder: re.Embedder, Summarizer: re.Summarizer, Objects: re.Objects, Now: re.Now}
	keyer := func(level mlevel.Level, name string) string {
		return fmt.Sprintf("%s%s_%s.json", prefix, level, name)
	}
	summary, err := orch.Process(ctx, strings.Join(texts, "\n\n"), keyer)
	if err != nil {
		return fmt.Errorf("profile: reembed: %w", err)
	}
	company.EmbeddingMetadata = embeddingMetadataFromSummary(summary)
	return re.save(ctx, companyID, company)
}

func (re *Reembedder) save(ctx context.Context, companyID string, company CompanyProfile) error {
	payload, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("profile: reembed: marshal company %s: %w", companyID, err)
	}
	if err := re.Companies.Upsert(ctx, companyID, company.TenantID, payload); err != nil {
		return fmt.Errorf("profile: reembed: persist company %s: %w", companyID, err)
	}
	return nil
}

func (re *Reembedder) clearPrefix(ctx context.Context, prefix string) error {
	result, err := re.Objects.List(ctx, objectstore.ListOptions{Prefix: prefix})
	if err != nil {
		return err
	}
	for _, obj := range result.Objects {
		if err := re.Objects.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}
	return nil
}
