package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/JustinTDCT/StageVault/internal/auth"
	"github.com/JustinTDCT/StageVault/internal/httputil"
	"github.com/JustinTDCT/StageVault/internal/importer"
	"github.com/JustinTDCT/StageVault/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.ver.Version,
	})
}

func (s *Server) handleImportScan(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	// The token says who is calling; the body may omit it.
	tokenClient := auth.ClientFromContext(r.Context())
	if req.Client == "" {
		req.Client = tokenClient
	} else if tokenClient != "" && req.Client != tokenClient {
		httputil.WriteError(w, http.StatusForbidden, "CLIENT_MISMATCH", "client does not match token")
		return
	}

	result, err := s.importer.ImportScan(r.Context(), req)
	if errors.Is(err, importer.ErrInvalidRequest) {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err != nil {
		log.Printf("API: import scan failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "IMPORT_FAILED", "import failed, retry the directory submission")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.libraries.List(r.Context())
	if err != nil {
		log.Printf("API: list libraries failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list libraries")
		return
	}
	if libs == nil {
		libs = []models.Library{}
	}
	httputil.WriteJSON(w, http.StatusOK, libs)
}
