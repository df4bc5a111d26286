package httpapi

import (
	"net/http"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/identity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

// downloadURLExpiry is the validity window for a signed download URL.
const downloadURLExpiry = time.Hour

// Server wires the document-management and weight-config HTTP surfaces
// onto a stdlib mux, behind bearer-auth middleware.
type Server struct {
	Ingestor   *profile.Ingestor
	Companies  kvstore.CompanyStore
	Downloader profile.SignedDownloader
	Configs    *weightconfig.Store
	Verifier   *identity.Verifier
	Reembed    Reembedder
	Now        func() time.Time

	// Producer and DocumentProcessingTopic enqueue a processing message once
	// a document upload is confirmed. Both are optional; when Producer is
	// nil, handleConfirm skips enqueuing and only marks the document
	// uploaded.
	Producer                queue.Producer
	DocumentProcessingTopic string

	mux *http.ServeMux
}

// NewServer builds a Server with routes registered and auth middleware
// applied.
func NewServer(s *Server) *http.ServeMux {
	s.mux = http.NewServeMux()
	s.registerRoutes()
	return s.mux
}

func (s *Server) registerRoutes() {
	auth := identity.RequireAuth(s.Verifier)

	s.mux.Handle("POST /documents/upload-url", cors(auth(http.HandlerFunc(s.handleUploadURL))))
	s.mux.Handle("POST /documents/{id}/confirm", cors(auth(http.HandlerFunc(s.handleConfirm))))
	s.mux.Handle("GET /documents/{id}/download-url", cors(auth(http.HandlerFunc(s.handleDownloadURL))))
	s.mux.Handle("GET /documents", cors(auth(http.HandlerFunc(s.handleListDocuments))))
	s.mux.Handle("DELETE /documents/{id}", cors(auth(http.HandlerFunc(s.handleDeleteDocument))))

	s.mux.Handle("GET /weight-config", cors(auth(http.HandlerFunc(s.handleGetWeightConfig))))
	s.mux.Handle("POST /weight-config", cors(auth(http.HandlerFunc(s.handlePutWeightConfig))))
	s.mux.Handle("PUT /weight-config", cors(auth(http.HandlerFunc(s.handlePutWeightConfig))))
	s.mux.Handle("DELETE /weight-config", cors(auth(http.HandlerFunc(s.handleDeleteWeightConfig))))
}

// cors opens every route to any origin, matching the platform-wide CORS
// policy ("*" origins, GET/POST/PUT/DELETE/OPTIONS).
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
