package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/StageVault/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/token", h.token)
	return r
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Client string `json:"client"`
		Secret string `json:"secret"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	if req.Client == "" || req.Secret == "" {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "client and secret are required")
		return
	}

	token, expiresAt, err := h.svc.Authenticate(req.Client, req.Secret)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid client credentials")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.Unix(),
	})
}
