package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/JustinTDCT/StageVault/internal/auth"
	"github.com/JustinTDCT/StageVault/internal/config"
	"github.com/JustinTDCT/StageVault/internal/models"
	"github.com/JustinTDCT/StageVault/internal/version"
)

// Importer ingests one scan submission.
type Importer interface {
	ImportScan(ctx context.Context, req models.ImportRequest) (*models.ImportResult, error)
}

// LibraryLister exposes the known libraries.
type LibraryLister interface {
	List(ctx context.Context) ([]models.Library, error)
}

type Server struct {
	cfg       *config.Config
	importer  Importer
	libraries LibraryLister
	authSvc   *auth.Service
	wsHub     *WSHub
	router    chi.Router
	ver       version.Info
}

// NewServer builds the HTTP surface. hub may be nil; a fresh one is created.
func NewServer(cfg *config.Config, importer Importer, libraries LibraryLister, hub *WSHub) *Server {
	if hub == nil {
		hub = NewWSHub()
	}
	s := &Server{
		cfg:       cfg,
		importer:  importer,
		libraries: libraries,
		authSvc:   auth.NewService(cfg.JWTSecret, cfg.ScannerSecretHash, 0),
		wsHub:     hub,
		ver:       version.Load(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Mount("/api/auth", auth.NewHandler(s.authSvc).Router())

	mw := auth.NewMiddleware(s.authSvc)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Post("/api/scan/import", s.handleImportScan)
		r.Get("/api/libraries", s.handleListLibraries)
	})

	// Token travels as a query param; browsers can't set headers on websockets.
	r.Get("/api/events", s.handleWebSocket)

	s.router = r
}
