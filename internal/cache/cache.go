// Package cache reads and writes the persistent coverage cache on behalf of a sync run.
package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coveragesync/internal/keys"
	"coveragesync/internal/models"
)

// DefaultPageSize bounds each scan query.
const DefaultPageSize = 1000

// KeyLister pages through cached keys in key order.
type KeyLister interface {
	ListCachedKeys(ctx context.Context, after string, limit int) ([]string, error)
}

// Upserter writes one coverage row keyed by key.
type Upserter interface {
	UpsertCoverage(ctx context.Context, r *models.CoverageRecord) error
}

// Reader builds the set of keys that already have an answer.
type Reader struct {
	store    KeyLister
	pageSize int
	logger   *zap.Logger
}

// NewReader creates a reader. pageSize <= 0 uses DefaultPageSize.
func NewReader(store KeyLister, pageSize int, logger *zap.Logger) *Reader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{store: store, pageSize: pageSize, logger: logger}
}

// ExistingKeys returns every cached key regardless of its isValid/hasCoverage value.
// It never mutates the store.
func (r *Reader) ExistingKeys(ctx context.Context) (keys.Set, error) {
	existing := keys.NewSet()
	after := ""
	pages := 0

	for {
		page, err := r.store.ListCachedKeys(ctx, after, r.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list cached keys after %q: %w", after, err)
		}
		for _, k := range page {
			existing.Add(k)
		}
		pages++
		if pages%10 == 0 {
			r.logger.Info("loading cached keys", zap.Int("loaded", len(existing)))
		}
		if len(page) < r.pageSize {
			break
		}
		after = page[len(page)-1]
	}

	r.logger.Info("loaded cached keys", zap.Int("count", len(existing)), zap.Int("pages", pages))
	return existing, nil
}

// Writer upserts lookup results. A failed write is logged and returned; it is up
// to the caller to count it and move on.
type Writer struct {
	store  Upserter
	logger *zap.Logger
}

// NewWriter creates a writer.
func NewWriter(store Upserter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger}
}

// Write stores the record, overwriting any earlier answer for the same key.
func (w *Writer) Write(ctx context.Context, r *models.CoverageRecord) error {
	if err := w.store.UpsertCoverage(ctx, r); err != nil {
		w.logger.Error("failed to save coverage record", zap.String("key", r.Key), zap.Error(err))
		return fmt.Errorf("save %s: %w", r.Key, err)
	}
	return nil
}
