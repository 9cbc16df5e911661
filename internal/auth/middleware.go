package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/JustinTDCT/StageVault/internal/httputil"
)

type contextKey string

const (
	ContextClient contextKey = "client"
)

type Middleware struct {
	svc *Service
}

func NewMiddleware(svc *Service) *Middleware {
	return &Middleware{svc: svc}
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := m.svc.VerifyToken(token)
		if err == ErrTokenExpired {
			httputil.WriteError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
			return
		}
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextClient, claims.Client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientFromContext returns the authenticated scanner client, or "".
func ClientFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextClient).(string); ok {
		return v
	}
	return ""
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
