package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
)

// handleDocumentProcessing decodes one profile.ProcessingMessage, runs the
// referenced document through Ingestor.ProcessDocument, and persists the
// result back onto the company record before triggering a profile-level
// reembed, so match.scoreSemantic sees the rebuilt aggregate embeddings.
func handleDocumentProcessing(ctx context.Context, ingestor *profile.Ingestor, companies kvstore.CompanyStore, reembedder *profile.Reembedder, log zerolog.Logger, msg queue.Message) error {
	var pm profile.ProcessingMessage
	if err := json.Unmarshal(msg.Value, &pm); err != nil {
		return fmt.Errorf("worker: decode processing message: %w", err)
	}

	raw, err := companies.Get(ctx, pm.CompanyID)
	if err != nil {
		return fmt.Errorf("worker: load company %s: %w", pm.CompanyID, err)
	}
	var company profile.CompanyProfile
	if err := json.Unmarshal(raw, &company); err != nil {
		return fmt.Errorf("worker: decode company %s: %w", pm.CompanyID, err)
	}

	idx := -1
	for i, d := range company.Documents {
		if d.DocumentID == pm.DocumentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Warn().Str("companyId", pm.CompanyID).Str("documentId", pm.DocumentID).Msg("document processing: document no longer on company record")
		return nil
	}

	doc, structured, procErr := ingestor.ProcessDocument(ctx, pm.CompanyID, company.Documents[idx])
	company.Documents[idx] = doc
	mergeStructuredRecord(&company, doc.Category, structured)

	payload, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("worker: marshal company %s: %w", pm.CompanyID, err)
	}
	if err := companies.Upsert(ctx, pm.CompanyID, pm.TenantID, payload); err != nil {
		return fmt.Errorf("worker: persist company %s: %w", pm.CompanyID, err)
	}
	if procErr != nil {
		log.Error().Err(procErr).Str("companyId", pm.CompanyID).Str("documentId", pm.DocumentID).Msg("document processing failed")
		return procErr
	}

	if reembedder != nil {
		if err := reembedder.TriggerReembed(ctx, pm.CompanyID); err != nil {
			log.Error().Err(err).Str("companyId", pm.CompanyID).Msg("reembed after document processing failed")
			return err
		}
	}
	return nil
}

// mergeStructuredRecord folds a capability-statement extraction's
// certifications and past performance into the company record. Resume
// extractions have no corresponding company-level field and are left to the
// per-document embeddings alone.
func mergeStructuredRecord(company *profile.CompanyProfile, category profile.Category, structured json.RawMessage) {
	if category != profile.CategoryCapability || len(structured) == 0 {
		return
	}
	var rec profile.CapabilityRecord
	if err := json.Unmarshal(structured, &rec); err != nil {
		return
	}
	if company.CapabilityStatement == "" && rec.Mission != "" {
		company.CapabilityStatement = rec.Mission
	}
	company.Certifications = mergeUnique(company.Certifications, rec.Certifications)
	company.PastPerformance = append(company.PastPerformance, rec.PastPerformance...)
}

func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range additions {
		if !seen[v] {
			existing = append(existing, v)
			seen[v] = true
		}
	}
	return existing
}
