package objectstore

import "fmt"

// Object-store namespaces, per the persistence design: raw/processed
// attachments, derived embeddings, and scratch space for in-flight work
// that must be cleaned up on cancellation.
const (
	NamespaceRawDocuments       = "raw-documents"
	NamespaceProcessedDocuments = "processed-documents"
	NamespaceEmbeddings         = "embeddings"
	NamespaceTempProcessing     = "temp-processing"
)

// TenantPrefix returns the key prefix every company-scoped object must
// begin with: "tenants/<company_id>/".
func TenantPrefix(companyID string) string {
	return fmt.Sprintf("tenants/%s/", companyID)
}

// TenantRawDocumentKey builds the raw-upload key for a company document.
func TenantRawDocumentKey(companyID, docID, filename string) string {
	return fmt.Sprintf("tenants/%s/raw/%s/%s", companyID, docID, filename)
}

// TenantProcessedDocumentKey builds the cleaned-text key for a company document.
func TenantProcessedDocumentKey(companyID, docID, filename string) string {
	return fmt.Sprintf("tenants/%s/processed/%s/%s.txt", companyID, docID, filename)
}

// TenantEmbeddingKey builds the embedding-record key for one chunk of a
// company document at a given multi-level embedding level.
func TenantEmbeddingKey(companyID, level, docID string, chunk int) string {
	return fmt.Sprintf("tenants/%s/embeddings/%s/%s_%d.json", companyID, level, docID, chunk)
}

// IsWithinTenant reports whether key begins with the tenant prefix for
// companyID, enforcing the cross-tenant access-isolation invariant.
func IsWithinTenant(key, companyID string) bool {
	prefix := TenantPrefix(companyID)
	return len(key) >= len(prefix) && key[:len(prefix)] == prefix
}

// OpportunityPrefix returns the key prefix for one opportunity's artifacts:
// "opportunities/<posted_date>/<notice_id>/".
func OpportunityPrefix(postedDate, noticeID string) string {
	return fmt.Sprintf("opportunities/%s/%s/", postedDate, noticeID)
}

// OpportunitySegmentEmbeddingKey builds the deterministic embedding-record
// key for one of an opportunity's text segments (main, title, description,
// agency, location, classification).
func OpportunitySegmentEmbeddingKey(postedDate, noticeID, segment string) string {
	return fmt.Sprintf("opportunities/%s/%s/embedding_%s.json", postedDate, noticeID, segment)
}

// OpportunityAttachmentChunkKey builds the deterministic key for one
// chunk-level embedding of an opportunity attachment.
func OpportunityAttachmentChunkKey(postedDate, noticeID, attachmentID string, chunk int) string {
	return fmt.Sprintf("opportunities/%s/%s/attachments/%s/chunk_%d.json", postedDate, noticeID, attachmentID, chunk)
}
