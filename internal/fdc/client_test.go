package fdc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/nutridb/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(&ratelimit.Config{
		Ceiling:      1000,
		Window:       time.Hour,
		PaceInterval: time.Nanosecond,
	}, nil)
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Retry:   fastRetry(),
	}, testLimiter(), nil)
	require.NoError(t, err)

	return c, srv
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&Config{}, testLimiter(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredential)
}

func TestNewClient_RequiresLimiter(t *testing.T) {
	_, err := NewClient(&Config{APIKey: "k"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter is required")
}

func TestSearch_DecodesPage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/foods/search", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "2", r.URL.Query().Get("pageNumber"))
		assert.Equal(t, "SR Legacy", r.URL.Query().Get("dataType"))

		fmt.Fprint(w, `{
			"totalHits": 450,
			"foods": [
				{"fdcId": 1001, "description": "Chicken, broiler, breast"},
				{"fdcId": 1002, "description": "Salmon, Atlantic, raw"}
			]
		}`)
	}))

	items, total, err := c.Search(context.Background(), "", 2, 200)
	require.NoError(t, err)
	assert.Equal(t, 450, total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1001), items[0].FDCID)
	assert.Equal(t, "Salmon, Atlantic, raw", items[1].Description)
}

func TestFood_DecodesNutrients(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/food/1001", r.URL.Path)

		fmt.Fprint(w, `{
			"fdcId": 1001,
			"description": "Chicken, broiler, breast",
			"foodCategory": {"description": "Poultry Products"},
			"foodNutrients": [
				{"nutrient": {"id": 1008}, "amount": 165},
				{"nutrient": {"id": 1003}}
			]
		}`)
	}))

	food, err := c.Food(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), food.FDCID)
	assert.Equal(t, "Poultry Products", food.CategoryDescription())
	require.Len(t, food.Nutrients, 2)
	require.NotNil(t, food.Nutrients[0].Amount)
	assert.Equal(t, float64(165), *food.Nutrients[0].Amount)
	assert.Nil(t, food.Nutrients[1].Amount)
}

func TestFood_NotFoundIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Food(context.Background(), 9999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFood_CredentialRejectionIsFatal(t *testing.T) {
	var attempts atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.Food(context.Background(), 1001)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredential)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFood_RecoversAfterTransientErrors(t *testing.T) {
	var attempts atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"fdcId": 1001, "description": "Chicken", "foodNutrients": []}`)
	}))

	food, err := c.Food(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), food.FDCID)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFood_TransientAfterExhaustion(t *testing.T) {
	var attempts atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Food(context.Background(), 1001)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, int32(4), attempts.Load()) // 1 initial + 3 retries
}

func TestGet_RecordsEveryAttempt(t *testing.T) {
	limiter := testLimiter()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(&Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Retry:   fastRetry(),
	}, limiter, nil)
	require.NoError(t, err)

	_, _, err = c.Search(context.Background(), "", 1, 200)
	require.Error(t, err)

	_, calls, _ := limiter.Snapshot()
	assert.Equal(t, 4, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throttled", &statusError{status: http.StatusTooManyRequests, op: "search"}, true},
		{"server error", &statusError{status: http.StatusInternalServerError, op: "search"}, true},
		{"bad gateway", &statusError{status: http.StatusBadGateway, op: "food"}, true},
		{"bad request", &statusError{status: http.StatusBadRequest, op: "search"}, false},
		{"not found sentinel", fmt.Errorf("food: %w", ErrNotFound), false},
		{"credential sentinel", fmt.Errorf("search: %w", ErrCredential), false},
		{"canceled", context.Canceled, false},
		{"network error", fmt.Errorf("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
