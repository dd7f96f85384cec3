package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"coveragesync/internal/models"
)

const dashboardJobs = 20

// DashboardStore reads what the dashboard shows.
type DashboardStore interface {
	ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error)
	GetCoverageStats(ctx context.Context) (models.CoverageStats, error)
}

// DashboardHandler renders the HTML overview of recent sync runs.
type DashboardHandler struct {
	store DashboardStore
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// Index renders the dashboard page.
func (h *DashboardHandler) Index(c fiber.Ctx) error {
	data := fiber.Map{
		"Title": "Coverage sync",
	}

	stats, err := h.store.GetCoverageStats(c.Context())
	if err != nil {
		return err
	}
	data["Stats"] = models.NewCoverageStatsResponse(stats)

	jobs, err := h.store.ListSyncJobs(c.Context(), dashboardJobs)
	if err != nil {
		return err
	}
	views := make([]models.SyncJobResponse, len(jobs))
	for i := range jobs {
		views[i] = models.NewSyncJobResponse(&jobs[i])
	}
	data["Jobs"] = views

	return c.Render("dashboard", data)
}
