package serverhttp

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"invoice-recon/internal/config"
	"invoice-recon/internal/middleware"
	recHnd "invoice-recon/internal/reconcile/handler"
	"invoice-recon/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, svc recHnd.Reconciler, sessions recHnd.SessionReader) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	// health-check
	r.Get("/health", handlers.Health)

	// сверка и аудит
	r.Post("/reconcile", recHnd.Reconcile(svc, cfg, logger))
	r.Get("/sessions/{id}", recHnd.Session(sessions, logger))

	if cfg.Pprof {
		r.Mount("/debug", chimw.Profiler())
	}

	return r
}
