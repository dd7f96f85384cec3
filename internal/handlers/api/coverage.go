package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"coveragesync/internal/db"
	"coveragesync/internal/models"
	"coveragesync/internal/validation"
)

// DefaultCacheTTL is how long a served answer stays in the read-through cache.
const DefaultCacheTTL = 10 * time.Minute

// CoverageStore reads the coverage cache table.
type CoverageStore interface {
	GetCoverage(ctx context.Context, key string) (*models.CoverageRecord, error)
	GetCoverageStats(ctx context.Context) (models.CoverageStats, error)
}

// Cache is the subset of fiber.Storage used for read-through caching.
// The Redis storage implements it.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
}

// CoverageHandler serves cached coverage answers. It never calls the external
// coverage API.
type CoverageHandler struct {
	store  CoverageStore
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCoverageHandler creates a coverage handler. cache may be nil.
func NewCoverageHandler(store CoverageStore, cache Cache, ttl time.Duration, logger *zap.Logger) *CoverageHandler {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CoverageHandler{store: store, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(key string) string {
	return "coverage:" + key
}

// Get returns the cached answer for one key.
func (h *CoverageHandler) Get(c fiber.Ctx) error {
	key := validation.NormalizeKey(c.Params("key"))
	if !validation.ValidateKey(key) {
		return jsonError(c, fiber.StatusBadRequest, "key must be a 5-digit postal code")
	}

	if rec := h.fromCache(key); rec != nil {
		return jsonSuccess(c, models.NewCoverageResponse(rec, "cache"))
	}

	rec, err := h.store.GetCoverage(c.Context(), key)
	if err != nil {
		if errors.Is(err, db.ErrCoverageNotFound) {
			return jsonError(c, fiber.StatusNotFound, "key has not been checked yet")
		}
		h.logger.Error("failed to fetch coverage", zap.String("key", key), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch coverage")
	}

	h.toCache(rec)
	return jsonSuccess(c, models.NewCoverageResponse(rec, "database"))
}

// Stats returns cache-wide counts.
func (h *CoverageHandler) Stats(c fiber.Ctx) error {
	stats, err := h.store.GetCoverageStats(c.Context())
	if err != nil {
		h.logger.Error("failed to fetch coverage stats", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch stats")
	}
	return jsonSuccess(c, models.NewCoverageStatsResponse(stats))
}

func (h *CoverageHandler) fromCache(key string) *models.CoverageRecord {
	if h.cache == nil {
		return nil
	}
	data, err := h.cache.Get(cacheKey(key))
	if err != nil {
		h.logger.Warn("read-through cache unavailable", zap.Error(err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var rec models.CoverageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		h.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &rec
}

func (h *CoverageHandler) toCache(rec *models.CoverageRecord) {
	if h.cache == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := h.cache.Set(cacheKey(rec.Key), data, h.ttl); err != nil {
		h.logger.Warn("failed to populate read-through cache", zap.String("key", rec.Key), zap.Error(err))
	}
}
