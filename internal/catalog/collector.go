// Package catalog collects the candidate food set by paginating the
// remote search operation and deduplicating across pages.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nutridb/internal/fdc"
)

const instrumentationName = "github.com/fyrsmithlabs/nutridb/internal/catalog"

// ErrNoRecords means the first page reported zero total hits, which points
// at a bad credential or an empty upstream dataset.
var ErrNoRecords = errors.New("search returned no records")

// Searcher is the paged catalog search operation.
type Searcher interface {
	Search(ctx context.Context, query string, page, pageSize int) ([]fdc.FoodSummary, int, error)
}

// Config configures a Collector.
type Config struct {
	// Query narrows the catalog; empty means all records.
	Query string

	// PageSize is the page size requested from the API.
	// Default: 200 (the API maximum).
	PageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 200
	}
}

// Collector paginates search results into a deduplicated candidate list.
type Collector struct {
	config *Config
	client Searcher
	logger *zap.Logger
	tracer trace.Tracer
}

// NewCollector creates a collector over the given search client.
func NewCollector(cfg *Config, client Searcher, logger *zap.Logger) (*Collector, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if client == nil {
		return nil, errors.New("search client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		config: cfg,
		client: client,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}, nil
}

// Collect fetches pages 1..totalPages sequentially and merges them into a
// per-id deduplicated list in first-seen order. The page count is computed
// up front from the first page's total hit count, so the loop is bounded.
// A page that fails transiently is skipped with a warning; a page that
// unexpectedly returns zero items stops the pass early.
func (c *Collector) Collect(ctx context.Context) ([]fdc.FoodSummary, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.collect")
	defer span.End()

	items, totalHits, err := c.client.Search(ctx, c.config.Query, 1, c.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch page 1: %w", err)
	}
	if totalHits == 0 {
		return nil, ErrNoRecords
	}

	totalPages := (totalHits + c.config.PageSize - 1) / c.config.PageSize
	span.SetAttributes(
		attribute.Int("total_hits", totalHits),
		attribute.Int("total_pages", totalPages),
	)

	c.logger.Info("collecting catalog",
		zap.Int("total_hits", totalHits),
		zap.Int("total_pages", totalPages),
		zap.Int("page_size", c.config.PageSize),
	)

	seen := make(map[int64]struct{}, totalHits)
	collected := make([]fdc.FoodSummary, 0, totalHits)
	merge := func(page []fdc.FoodSummary) int {
		added := 0
		for _, item := range page {
			if item.FDCID == 0 {
				continue
			}
			if _, dup := seen[item.FDCID]; dup {
				continue
			}
			seen[item.FDCID] = struct{}{}
			collected = append(collected, item)
			added++
		}
		return added
	}

	added := merge(items)
	c.logger.Info("collected page",
		zap.Int("page", 1),
		zap.Int("total_pages", totalPages),
		zap.Int("added", added),
		zap.Int("collected", len(collected)),
	)

	for page := 2; page <= totalPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect canceled: %w", err)
		}

		items, _, err := c.client.Search(ctx, c.config.Query, page, c.config.PageSize)
		if err != nil {
			// Dedup across pages makes a dropped page recoverable on
			// the next run, so a transient page failure does not abort
			// the pass.
			c.logger.Warn("skipping page after fetch failure",
				zap.Int("page", page),
				zap.Error(err),
			)
			continue
		}
		if len(items) == 0 {
			c.logger.Warn("page returned no items, stopping pagination early",
				zap.Int("page", page),
				zap.Int("total_pages", totalPages),
			)
			break
		}

		added := merge(items)
		c.logger.Info("collected page",
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.Int("added", added),
			zap.Int("collected", len(collected)),
		)
	}

	span.SetAttributes(attribute.Int("collected", len(collected)))
	return collected, nil
}
