package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"coveragesync/internal/db"
	"coveragesync/internal/models"
)

const (
	defaultJobLimit = 20
	maxJobLimit     = 100
)

// JobStore reads the job ledger.
type JobStore interface {
	ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error)
	GetSyncJob(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)
}

// JobHandler serves the job ledger.
type JobHandler struct {
	store  JobStore
	logger *zap.Logger
}

// NewJobHandler creates a job handler.
func NewJobHandler(store JobStore, logger *zap.Logger) *JobHandler {
	return &JobHandler{store: store, logger: logger}
}

// List returns the most recent jobs, newest first.
func (h *JobHandler) List(c fiber.Ctx) error {
	limit := defaultJobLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return jsonError(c, fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxJobLimit)
	}

	jobs, err := h.store.ListSyncJobs(c.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sync jobs", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to list jobs")
	}

	out := make([]models.SyncJobResponse, len(jobs))
	for i := range jobs {
		out[i] = models.NewSyncJobResponse(&jobs[i])
	}
	return jsonSuccess(c, out)
}

// Get returns one job by ID.
func (h *JobHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid job id")
	}

	job, err := h.store.GetSyncJob(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			return jsonError(c, fiber.StatusNotFound, "job not found")
		}
		h.logger.Error("failed to fetch sync job", zap.Stringer("job_id", id), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch job")
	}
	return jsonSuccess(c, models.NewSyncJobResponse(job))
}
