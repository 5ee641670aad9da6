// Package fdc wraps the FoodData Central HTTP API behind typed operations.
//
// Responses are decoded into explicit record types at this boundary; the
// rest of the pipeline never touches raw JSON. Both operations are gated by
// the rate limiter and run under a shared retry policy.
package fdc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nutridb/internal/ratelimit"
)

const instrumentationName = "github.com/fyrsmithlabs/nutridb/internal/fdc"

const (
	defaultBaseURL  = "https://api.nal.usda.gov/fdc/v1"
	defaultTimeout  = 30 * time.Second
	defaultDataType = "SR Legacy"
)

// Config configures the API client.
type Config struct {
	// APIKey is the caller-supplied credential. Required.
	APIKey string

	// BaseURL overrides the API endpoint (tests point it at a local server).
	BaseURL string

	// Timeout bounds a single HTTP attempt. Default: 30s.
	Timeout time.Duration

	// DataType pins the source dataset for deterministic search ordering.
	// Default: "SR Legacy".
	DataType string

	// Retry configures the shared retry policy.
	Retry *RetryConfig
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.DataType == "" {
		c.DataType = defaultDataType
	}
	if c.Retry == nil {
		c.Retry = DefaultRetryConfig()
	}
}

// Client calls the remote food-composition API.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     *zap.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	callCounter metric.Int64Counter
}

// NewClient creates an API client. The limiter is required: every outbound
// call is recorded against it.
func NewClient(cfg *Config, limiter *ratelimit.Limiter, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is empty", ErrCredential)
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}

	c.initMetrics()

	return c, nil
}

func (c *Client) initMetrics() {
	var err error

	c.callCounter, err = c.meter.Int64Counter(
		"nutridb.fdc.calls_total",
		metric.WithDescription("Total number of API calls issued"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		c.logger.Warn("failed to create call counter", zap.Error(err))
	}
}

// Search fetches one page of the catalog. An empty query matches all
// records of the configured data type. Returns the page items and the
// total hit count across all pages.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) ([]FoodSummary, int, error) {
	ctx, span := c.tracer.Start(ctx, "fdc.search")
	defer span.End()

	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", query)
	params.Set("pageNumber", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("dataType", c.config.DataType)

	var decoded SearchResponse
	err := c.get(ctx, "search", c.config.BaseURL+"/foods/search?"+params.Encode(), &decoded)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("total_hits", decoded.TotalHits))
	return decoded.Foods, decoded.TotalHits, nil
}

// Food fetches the full nutrient profile for one external id.
func (c *Client) Food(ctx context.Context, fdcID int64) (*Food, error) {
	ctx, span := c.tracer.Start(ctx, "fdc.food")
	defer span.End()

	span.SetAttributes(attribute.Int64("fdc_id", fdcID))

	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var decoded Food
	err := c.get(ctx, "food", fmt.Sprintf("%s/food/%d?%s", c.config.BaseURL, fdcID, params.Encode()), &decoded)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &decoded, nil
}

// get performs one rate-limited GET under the retry policy, decoding a 2xx
// body into out.
func (c *Client) get(ctx context.Context, name, rawURL string, out any) error {
	return withRetry(ctx, c.config.Retry, c.logger, name, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		c.limiter.RecordCall(time.Now())
		if c.callCounter != nil {
			c.callCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation", name),
			))
		}
		if err != nil {
			return fmt.Errorf("%s request: %w", name, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%s: %w", name, ErrCredential)
		default:
			return &statusError{status: resp.StatusCode, op: name}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s read body: %w", name, err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s decode body: %w", name, err)
		}
		return nil
	})
}
