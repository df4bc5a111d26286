package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/identity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

func fixedNow() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

func testClaims() *identity.Claims {
	return &identity.Claims{UserID: "user-1", TenantID: "acme", CompanyID: "acme"}
}

func withClaims(r *http.Request) *http.Request {
	return r.WithContext(identity.WithClaims(r.Context(), testClaims()))
}

func newTestServer() (*Server, *kvstore.MemoryCompanyStore) {
	companies := kvstore.NewMemoryCompanyStore()
	configs := weightconfig.NewStore(kvstore.NewMemoryWeightConfigStore(), kvstore.NewMemoryAuditLogStore(), nil, 16)
	configs.Now = fixedNow

	return &Server{
		Ingestor:  &profile.Ingestor{Now: fixedNow},
		Companies: companies,
		Configs:   configs,
		Now:       fixedNow,
	}, companies
}

func TestHandleUploadURL_RejectsMissingFilename(t *testing.T) {
	s, _ := newTestServer()

	body, err := json.Marshal(uploadURLRequest{FileSize: 10})
	require.NoError(t, err)
	req := withClaims(httptest.NewRequest(http.MethodPost, "/documents/upload-url", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	s.handleUploadURL(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, ErrMissingFilename, env.Error.Code)
}

func TestHandleUploadURL_RejectsBadExtension(t *testing.T) {
	s, _ := newTestServer()

	body, _ := json.Marshal(uploadURLRequest{Filename: "resume.exe", FileSize: 10})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/documents/upload-url", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	s.handleUploadURL(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, ErrInvalidFileType, env.Error.Code)
}

func TestHandleUploadURL_RejectsOversizedFile(t *testing.T) {
	s, _ := newTestServer()

	body, _ := json.Marshal(uploadURLRequest{Filename: "resume.pdf", FileSize: 200 * 1024 * 1024})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/documents/upload-url", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	s.handleUploadURL(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, ErrFileTooLarge, env.Error.Code)
}

func TestDocumentLifecycle_UploadConfirmListDownloadDelete(t *testing.T) {
	s, _ := newTestServer()

	body, _ := json.Marshal(uploadURLRequest{Filename: "capability.pdf", FileType: "application/pdf", FileSize: 2048})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/documents/upload-url", bytes.NewReader(body)))
	rec := httptest.NewRecorder()
	s.handleUploadURL(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadEnv envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadEnv))
	data := uploadEnv.Data.(map[string]any)
	docID := data["document_id"].(string)

	// Not yet confirmed: download-url must reject with DOCUMENT_NOT_READY.
	dlReq := withClaims(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/download-url", nil))
	dlReq.SetPathValue("id", docID)
	dlRec := httptest.NewRecorder()
	s.handleDownloadURL(dlRec, dlReq)
	require.Equal(t, http.StatusConflict, dlRec.Code)

	confirmReq := withClaims(httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/confirm", nil))
	confirmReq.SetPathValue("id", docID)
	confirmRec := httptest.NewRecorder()
	s.handleConfirm(confirmRec, confirmReq)
	require.Equal(t, http.StatusOK, confirmRec.Code)

	listReq := withClaims(httptest.NewRequest(http.MethodGet, "/documents", nil))
	listRec := httptest.NewRecorder()
	s.handleListDocuments(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)
	var listEnv envelope
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listEnv))
	listData := listEnv.Data.(map[string]any)
	require.EqualValues(t, 1, listData["total"])

	deleteReq := withClaims(httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil))
	deleteReq.SetPathValue("id", docID)
	deleteRec := httptest.NewRecorder()
	s.handleDeleteDocument(deleteRec, deleteReq)
	require.Equal(t, http.StatusOK, deleteRec.Code)

	listRec2 := httptest.NewRecorder()
	s.handleListDocuments(listRec2, withClaims(httptest.NewRequest(http.MethodGet, "/documents", nil)))
	var listEnv2 envelope
	require.NoError(t, json.Unmarshal(listRec2.Body.Bytes(), &listEnv2))
	require.EqualValues(t, 0, listEnv2.Data.(map[string]any)["total"])
}

func TestHandleConfirm_UnknownDocumentNotFound(t *testing.T) {
	s, companies := newTestServer()
	// Seed an empty company profile so the lookup reaches the document scan.
	payload, _ := json.Marshal(profile.CompanyProfile{CompanyID: "acme", TenantID: "acme"})
	require.NoError(t, companies.Upsert(context.Background(), "acme", "acme", payload))

	req := withClaims(httptest.NewRequest(http.MethodPost, "/documents/missing/confirm", nil))
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	s.handleConfirm(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, ErrDocumentNotFound, env.Error.Code)
}

func TestWeightConfig_PutGetHistoryDelete(t *testing.T) {
	s, _ := newTestServer()

	goodPatch, _ := json.Marshal(weightconfig.Config{
		Weights: weightconfig.Weights{
			"semantic": 0.25, "keyword": 0.15, "naics": 0.20, "past_performance": 0.10,
			"certification": 0.10, "geographic": 0.10, "capacity": 0.05, "recency": 0.05,
		},
	})
	putReq := withClaims(httptest.NewRequest(http.MethodPut, "/weight-config?tenant_id=acme", bytes.NewReader(goodPatch)))
	putRec := httptest.NewRecorder()
	s.handlePutWeightConfig(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/weight-config?tenant_id=acme", nil)
	getRec := httptest.NewRecorder()
	s.handleGetWeightConfig(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	histReq := httptest.NewRequest(http.MethodGet, "/weight-config?tenant_id=acme&history=true", nil)
	histRec := httptest.NewRecorder()
	s.handleGetWeightConfig(histRec, histReq)
	require.Equal(t, http.StatusOK, histRec.Code)
	var histEnv envelope
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &histEnv))
	history := histEnv.Data.(map[string]any)["history"].([]any)
	require.Len(t, history, 1)

	delReq := withClaims(httptest.NewRequest(http.MethodDelete, "/weight-config?tenant_id=acme", nil))
	delRec := httptest.NewRecorder()
	s.handleDeleteWeightConfig(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)
}

func TestWeightConfig_RejectsWeightsNotSummingToOne(t *testing.T) {
	s, _ := newTestServer()

	badPatch, _ := json.Marshal(weightconfig.Config{
		Weights: weightconfig.Weights{
			"semantic": 0.30, "keyword": 0.15, "naics": 0.20, "past_performance": 0.10,
			"certification": 0.10, "geographic": 0.10, "capacity": 0.05, "recency": 0.05,
		},
	})
	req := withClaims(httptest.NewRequest(http.MethodPut, "/weight-config", bytes.NewReader(badPatch)))
	rec := httptest.NewRecorder()

	s.handlePutWeightConfig(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
}
