package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tjaddison/govbiz-ai-sub002/internal/identity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

func (s *Server) handleGetWeightConfig(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	tenantID := r.URL.Query().Get("tenant_id")

	if r.URL.Query().Get("history") == "true" {
		history, err := s.Configs.History(r.Context(), tenantID)
		if err != nil {
			respondErr(w, ErrInternal, err.Error(), now)
			return
		}
		respondData(w, http.StatusOK, map[string]any{"history": history})
		return
	}

	cfg, err := s.Configs.Get(r.Context(), tenantID)
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}
	respondData(w, http.StatusOK, cfg)
}

func (s *Server) handlePutWeightConfig(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")

	var patch weightconfig.Config
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondErr(w, ErrInvalidJSON, "request body is not valid JSON", now)
		return
	}

	cfg, err := s.Configs.Put(r.Context(), tenantID, claims.UserID, patch)
	if err != nil {
		respondErr(w, ErrMissingField, err.Error(), now)
		return
	}
	respondData(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteWeightConfig(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	claims, ok := identity.FromContext(r.Context())
	if !ok {
		respondErr(w, ErrAccessDenied, "missing caller identity", now)
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")

	cfg, err := s.Configs.Delete(r.Context(), tenantID, claims.UserID)
	if err != nil {
		respondErr(w, ErrInternal, err.Error(), now)
		return
	}
	respondData(w, http.StatusOK, cfg)
}
