package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
)

func newTestExchangeClient(baseURL string, retries int, timeout time.Duration) (*ExchangeClient, *[]time.Duration) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.ExchangeConfig{
		APIKey:           "test-key",
		Retries:          retries,
		Timeout:          timeout,
		BreakerThreshold: 5,
		BreakerOpenFor:   30 * time.Second,
	}

	c := NewExchangeClient(cfg, baseURL, logger)

	// Record backoff delays instead of sleeping through them.
	delays := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c, delays
}

func TestExchangeClient_SucceedsAfterRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got %q", got)
		}
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]string{"id": "tx-1"},
		})
	}))
	defer server.Close()

	c, delays := newTestExchangeClient(server.URL, 3, time.Second)

	data, err := c.Request(context.Background(), http.MethodGet, "/test", nil, nil)
	if err != nil {
		t.Fatalf("Request() failed: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Failed to decode data payload: %v", err)
	}
	if payload["id"] != "tx-1" {
		t.Errorf("Expected payload id tx-1, got %q", payload["id"])
	}

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}

	// Backoff doubles: 1s before the second attempt, 2s before the third.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("Expected %d backoff delays, got %d", len(want), len(*delays))
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("Delay %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}

	// Success after failed attempts resets the breaker.
	if c.Breaker().Failures() != 0 {
		t.Errorf("Expected breaker reset after recovery, got %d failures", c.Breaker().Failures())
	}
}

func TestExchangeClient_SurfacesFinalErrorAfterExhaustion(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, delays := newTestExchangeClient(server.URL, 3, time.Second)

	_, err := c.Request(context.Background(), http.MethodGet, "/test", nil, nil)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}

	var upstream *models.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", upstream.StatusCode)
	}

	// retries=3 means at most 4 attempts
	if got := atomic.LoadInt32(&attempts); got != 4 {
		t.Errorf("Expected 4 attempts, got %d", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("Expected delays %v, got %v", want, *delays)
	}

	if c.Breaker().Failures() != 4 {
		t.Errorf("Expected 4 breaker failures, got %d", c.Breaker().Failures())
	}
}

func TestExchangeClient_NoRetryOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "no such wallet"})
	}))
	defer server.Close()

	c, delays := newTestExchangeClient(server.URL, 3, time.Second)

	_, err := c.Request(context.Background(), http.MethodGet, "/test", nil, nil)

	var upstream *models.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", upstream.StatusCode)
	}

	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("4xx must not be retried: expected 1 attempt, got %d", got)
	}
	if len(*delays) != 0 {
		t.Errorf("Expected no backoff for a terminal error, got %v", *delays)
	}
	// Client errors do not indicate upstream sickness
	if c.Breaker().Failures() != 0 {
		t.Errorf("Expected 0 breaker failures, got %d", c.Breaker().Failures())
	}
}

func TestExchangeClient_ApplicationErrorRetriesAndCounts(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "engine busy"})
	}))
	defer server.Close()

	c, _ := newTestExchangeClient(server.URL, 1, time.Second)

	_, err := c.Request(context.Background(), http.MethodPost, "/test", nil, nil)

	var app *models.ApplicationError
	if !errors.As(err, &app) {
		t.Fatalf("Expected ApplicationError, got %T: %v", err, err)
	}
	if app.Message != "engine busy" {
		t.Errorf("Expected upstream message to survive, got %q", app.Message)
	}

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
	if c.Breaker().Failures() != 2 {
		t.Errorf("Error-status payloads must count against the breaker, got %d failures", c.Breaker().Failures())
	}
}

func TestExchangeClient_BreakerOpenRejectsImmediately(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, _ := newTestExchangeClient(server.URL, 3, time.Second)

	// Trip the breaker
	for i := 0; i < 5; i++ {
		c.Breaker().RecordFailure(time.Now())
	}

	_, err := c.Request(context.Background(), http.MethodGet, "/test", nil, nil)
	if !errors.Is(err, models.ErrServiceUnavailable) {
		t.Fatalf("Expected ErrServiceUnavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 0 {
		t.Errorf("Open breaker must not touch the network, saw %d attempts", got)
	}
}

func TestExchangeClient_DisableBreakerBypassesOpenState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "data": map[string]string{}})
	}))
	defer server.Close()

	c, _ := newTestExchangeClient(server.URL, 0, time.Second)
	for i := 0; i < 5; i++ {
		c.Breaker().RecordFailure(time.Now())
	}

	_, err := c.Request(context.Background(), http.MethodGet, "/test", nil, &RequestOptions{
		Retries:        0,
		Timeout:        time.Second,
		DisableBreaker: true,
	})
	if err != nil {
		t.Fatalf("Request() with DisableBreaker failed: %v", err)
	}
}

func TestExchangeClient_PerAttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(release)

	c, _ := newTestExchangeClient(server.URL, 0, 20*time.Millisecond)

	_, err := c.Request(context.Background(), http.MethodGet, "/slow", nil, nil)
	if !errors.Is(err, models.ErrRequestTimeout) {
		t.Fatalf("Expected ErrRequestTimeout, got %v", err)
	}
	// Timeouts retry but do not indicate upstream sickness
	if c.Breaker().Failures() != 0 {
		t.Errorf("Expected timeout not to count against breaker, got %d failures", c.Breaker().Failures())
	}
}

func TestExchangeClient_CancelledContextStopsBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	cfg := &config.ExchangeConfig{
		APIKey:           "test-key",
		Retries:          3,
		Timeout:          time.Second,
		BreakerThreshold: 5,
		BreakerOpenFor:   30 * time.Second,
	}
	c := NewExchangeClient(cfg, server.URL, logger)

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Request(ctx, http.MethodGet, "/test", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled from interrupted backoff, got %v", err)
	}
}
