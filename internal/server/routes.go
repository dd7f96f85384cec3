package server

import (
	"context"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coveragesync/internal/handlers"
	"coveragesync/internal/handlers/api"
	"coveragesync/internal/models"
)

// Store is everything the HTTP surface reads. *db.DB implements it.
type Store interface {
	Ping(ctx context.Context) error
	GetCoverage(ctx context.Context, key string) (*models.CoverageRecord, error)
	GetCoverageStats(ctx context.Context) (models.CoverageStats, error)
	ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error)
	GetSyncJob(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)
}

// RegisterRoutes registers all application routes. cache may be nil.
func (s *Server) RegisterRoutes(store Store, cache api.Cache) {
	healthHandler := api.NewHealthHandler(store, s.logger)
	coverageHandler := api.NewCoverageHandler(store, cache, api.DefaultCacheTTL, s.logger)
	jobHandler := api.NewJobHandler(store, s.logger)
	dashboardHandler := handlers.NewDashboardHandler(store)

	s.App.Get("/healthz", healthHandler.Healthz)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.App.Get("/api/coverage/:key", coverageHandler.Get)
	s.App.Get("/api/stats", coverageHandler.Stats)
	s.App.Get("/api/jobs", jobHandler.List)
	s.App.Get("/api/jobs/:id", jobHandler.Get)

	s.App.Get("/", dashboardHandler.Index)
}
