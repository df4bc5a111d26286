package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/identity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
)

// Reembedder triggers a profile-level re-embedding after a document
// changes. Deletion must trigger it from every call path — the HTTP
// handler and any direct-invoke path a worker takes — per the access
// contract: no path is allowed to leave stale profile embeddings behind.
type Reembedder interface {
	TriggerReembed(ctx context.Context, companyID string) error
}

type uploadURLRequest struct {
	Filename     string `json:"filename"`
	FileType     string `json:"file_type"`
	DocumentType string `json:"document_type"`
	FileSize     int64  `json:"file_size"`
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}

	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, ErrInvalidJSON, "request body is not valid JSON", now)
		return
	}
	if req.Filename == "" {
		respondErr(w, ErrMissingFilename, "filename is required", now)
		return
	}
	if req.FileSize <= 0 {
		respondErr(w, ErrMissingField, "file_size is required", now)
		return
	}

	token, err := s.Ingestor.RequestUpload(r.Context(), claims.CompanyID, profile.UploadIntent{
		Filename: req.Filename,
		Size:     req.FileSize,
		MIME:     req.FileType,
		Category: req.DocumentType,
	})
	switch {
	case errors.Is(err, profile.ErrUnknownExtension):
		respondErr(w, ErrInvalidFileType, err.Error(), now)
		return
	case errors.Is(err, profile.ErrFileTooLarge):
		respondErr(w, ErrFileTooLarge, err.Error(), now)
		return
	case err != nil:
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	company, err := s.loadOrCreateCompany(r.Context(), claims)
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}
	company.Documents = append(company.Documents, profile.Document{
		DocumentID: token.DocumentID,
		Filename:   req.Filename,
		S3Key:      token.S3Key,
		Status:     profile.DocStatusUploading,
		Size:       req.FileSize,
		MIME:       req.FileType,
		Version:    1,
		UploadedAt: now,
	})
	company.UpdatedAt = now
	if err := s.saveCompany(r.Context(), claims.TenantID, company); err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"uploadUrl":   token.S3Key,
		"key":         token.S3Key,
		"document_id": token.DocumentID,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}
	docID := r.PathValue("id")

	company, err := s.loadCompany(r.Context(), claims.CompanyID)
	if errors.Is(err, kvstore.ErrNotFound) {
		respondErr(w, ErrCompanyNotFound, "company profile not found", now)
		return
	}
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	idx := findDocument(company.Documents, docID)
	if idx < 0 {
		respondErr(w, ErrDocumentNotFound, "document not found", now)
		return
	}
	if err := identity.CheckTenantPrefix(claims, company.Documents[idx].S3Key); err != nil {
		respondErr(w, ErrAccessDenied, "document does not belong to caller's tenant", now)
		return
	}

	company.Documents[idx].Status = profile.DocStatusUploaded
	company.UpdatedAt = now
	if err := s.saveCompany(r.Context(), claims.TenantID, company); err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	s.enqueueProcessing(claims, company.Documents[idx].DocumentID)

	respondData(w, http.StatusOK, company.Documents[idx])
}

// enqueueProcessing sends a ProcessingMessage so a worker can run the
// document through Ingestor.ProcessDocument. A nil Producer (e.g. in tests)
// is a no-op, matching handleDeleteDocument's nil-safe Reembed trigger.
func (s *Server) enqueueProcessing(claims *identity.Claims, documentID string) {
	if s.Producer == nil {
		return
	}
	msg := profile.ProcessingMessage{
		CompanyID:  claims.CompanyID,
		TenantID:   claims.TenantID,
		DocumentID: documentID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.Producer.Send(ctx, s.DocumentProcessingTopic, queue.Message{Key: documentID, Value: payload})
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}
	docID := r.PathValue("id")

	company, err := s.loadCompany(r.Context(), claims.CompanyID)
	if errors.Is(err, kvstore.ErrNotFound) {
		respondErr(w, ErrCompanyNotFound, "company profile not found", now)
		return
	}
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	idx := findDocument(company.Documents, docID)
	if idx < 0 {
		respondErr(w, ErrDocumentNotFound, "document not found", now)
		return
	}
	doc := company.Documents[idx]
	if err := identity.CheckTenantPrefix(claims, doc.S3Key); err != nil {
		respondErr(w, ErrAccessDenied, "document does not belong to caller's tenant", now)
		return
	}
	if doc.Status == profile.DocStatusUploading {
		respondErr(w, ErrDocumentNotReady, "document has not finished uploading", now)
		return
	}

	if s.Downloader == nil {
		respondErr(w, ErrInternal, "download signing is not configured", now)
		return
	}
	url, err := s.Downloader.SignDownload(r.Context(), doc.S3Key, downloadURLExpiry)
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}
	respondData(w, http.StatusOK, map[string]any{"downloadUrl": url})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}

	company, err := s.loadCompany(r.Context(), claims.CompanyID)
	if errors.Is(err, kvstore.ErrNotFound) {
		respondData(w, http.StatusOK, map[string]any{"documents": []profile.Document{}, "total": 0})
		return
	}
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	docs := company.Documents
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := docs[:0:0]
		for _, d := range docs {
			if string(d.Category) == category {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	sortBy := r.URL.Query().Get("sort_by")
	descending := r.URL.Query().Get("sort_order") == "desc"
	sort.SliceStable(docs, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "filename":
			less = docs[i].Filename < docs[j].Filename
		case "size":
			less = docs[i].Size < docs[j].Size
		default:
			less = docs[i].UploadedAt.Before(docs[j].UploadedAt)
		}
		if descending {
			return !less
		}
		return less
	})

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	end := start + limit
	if start > len(docs) {
		start = len(docs)
	}
	if end > len(docs) {
		end = len(docs)
	}

	respondData(w, http.StatusOK, map[string]any{
		"documents": docs[start:end],
		"page":      page,
		"limit":     limit,
		"total":     len(docs),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}
	docID := r.PathValue("id")

	company, err := s.loadCompany(r.Context(), claims.CompanyID)
	if errors.Is(err, kvstore.ErrNotFound) {
		respondErr(w, ErrCompanyNotFound, "company profile not found", now)
		return
	}
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	idx := findDocument(company.Documents, docID)
	if idx < 0 {
		respondErr(w, ErrDocumentNotFound, "document not found", now)
		return
	}
	if err := identity.CheckTenantPrefix(claims, company.Documents[idx].S3Key); err != nil {
		respondErr(w, ErrAccessDenied, "document does not belong to caller's tenant", now)
		return
	}

	company.Documents = append(company.Documents[:idx], company.Documents[idx+1:]...)
	company.UpdatedAt = now
	if err := s.saveCompany(r.Context(), claims.TenantID, company); err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}

	if s.Reembed != nil {
		companyID := claims.CompanyID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = s.Reembed.TriggerReembed(ctx, companyID)
		}()
	}

	respondData(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) loadCompany(ctx context.Context, companyID string) (profile.CompanyProfile, error) {
	raw, err := s.Companies.Get(ctx, companyID)
	if err != nil {
		return profile.CompanyProfile{}, err
	}
	var company profile.CompanyProfile
	if err := json.Unmarshal(raw, &company); err != nil {
		return profile.CompanyProfile{}, err
	}
	return company, nil
}

func (s *Server) loadOrCreateCompany(ctx context.Context, claims *identity.Claims) (profile.CompanyProfile, error) {
	company, err := s.loadCompany(ctx, claims.CompanyID)
	if errors.Is(err, kvstore.ErrNotFound) {
		now := s.now()
		return profile.CompanyProfile{
			CompanyID: claims.CompanyID,
			TenantID:  claims.TenantID,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	return company, err
}

func (s *Server) saveCompany(ctx context.Context, tenantID string, company profile.CompanyProfile) error {
	payload, err := json.Marshal(company)
	if err != nil {
		return err
	}
	return s.Companies.Upsert(ctx, company.CompanyID, tenantID, payload)
}

func findDocument(docs []profile.Document, id string) int {
	for i, d := range docs {
		if d.DocumentID == id {
			return i
		}
	}
	return -1
}
