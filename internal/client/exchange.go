package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/config"
	"github.com/theceo1/trustbank-gateway/internal/models"
)

// backoffBase is the delay before the first retry; each subsequent retry
// doubles it (1s, 2s, 4s, ...).
const backoffBase = time.Second

// RequestOptions tunes a single exchange request. A nil options value means
// the client-level defaults apply.
type RequestOptions struct {
	// Retries is the number of additional attempts after the first.
	Retries int
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// DisableBreaker bypasses the circuit breaker for this call.
	DisableBreaker bool
}

// ExchangeClient calls the upstream exchange API, masking transient failures
// from callers with bounded retries, exponential backoff, and a circuit
// breaker shared across all calls made through the same instance.
type ExchangeClient struct {
	*BaseClient

	apiKey   string
	breaker  *CircuitBreaker
	defaults RequestOptions
	logger   *logrus.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExchangeClient creates an exchange client from configuration. The
// overall http.Client timeout is left unset; each attempt is bounded by its
// own context deadline instead.
func NewExchangeClient(cfg *config.ExchangeConfig, baseURL string, logger *logrus.Logger) *ExchangeClient {
	return &ExchangeClient{
		BaseClient: NewBaseClient(baseURL, 0, logger),
		apiKey:     cfg.APIKey,
		breaker:    NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerOpenFor),
		defaults: RequestOptions{
			Retries: cfg.Retries,
			Timeout: cfg.Timeout,
		},
		logger: logger,
		sleep:  sleepContext,
	}
}

// Breaker exposes the circuit breaker for health and admin reporting.
func (c *ExchangeClient) Breaker() *CircuitBreaker {
	return c.breaker
}

// Request performs an authenticated exchange API call and returns the
// unwrapped data payload.
//
// Behavior:
//   - an open breaker fails immediately with ErrServiceUnavailable, no
//     network call is attempted
//   - each attempt is bounded by opts.Timeout; a timed-out attempt is
//     abandoned and counted as failed even if the socket later completes
//   - 5xx responses and error-status payloads record a breaker failure and
//     are retried after exponential backoff; 4xx responses surface
//     immediately
//   - a success after at least one failed attempt resets the breaker
//
// At most opts.Retries+1 attempts are made.
func (c *ExchangeClient) Request(
	ctx context.Context,
	method string,
	endpoint string,
	body interface{},
	opts *RequestOptions,
) (json.RawMessage, error) {
	o := c.defaults
	if opts != nil {
		o = *opts
	}

	if !o.DisableBreaker && c.breaker.Open(time.Now()) {
		breakerRejectionsTotal.Inc()
		c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"failures": c.breaker.Failures(),
		}).Warn("Circuit breaker open, rejecting exchange request")
		return nil, models.ErrServiceUnavailable
	}

	var lastErr error
	hadFailure := false

	for attempt := 0; attempt <= o.Retries; attempt++ {
		if attempt > 0 {
			delay := backoffBase << (attempt - 1)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		data, err := c.attempt(ctx, method, endpoint, body, o.Timeout)
		if err == nil {
			upstreamAttemptsTotal.WithLabelValues("success").Inc()
			if hadFailure && !o.DisableBreaker {
				c.breaker.Reset()
				breakerFailures.Set(0)
			}
			return data, nil
		}

		upstreamAttemptsTotal.WithLabelValues("failure").Inc()

		if countsAgainstBreaker(err) && !o.DisableBreaker {
			c.breaker.RecordFailure(time.Now())
			breakerFailures.Set(float64(c.breaker.Failures()))
		}

		if !retryable(err) {
			return nil, err
		}

		hadFailure = true
		lastErr = err

		c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
			"error":    err,
		}).Warn("Exchange request attempt failed")
	}

	return nil, lastErr
}

// attempt performs one bounded call against the exchange and unwraps the
// response envelope.
func (c *ExchangeClient) attempt(
	ctx context.Context,
	method string,
	endpoint string,
	body interface{},
	timeout time.Duration,
) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	resp, err := c.Do(attemptCtx, method, endpoint, body, headers)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s %s", models.ErrRequestTimeout, method, endpoint)
		}
		return nil, err
	}
	defer resp.Body.Close()

	var env models.ExchangeEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
		}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode exchange response: %w", decodeErr)
	}

	if env.Status == models.StatusError {
		return nil, &models.ApplicationError{Message: env.Message}
	}

	return env.Data, nil
}

// retryable reports whether another attempt could plausibly succeed.
// Client errors (4xx) are terminal; everything else is transient.
func retryable(err error) bool {
	var upstream *models.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	return true
}

// countsAgainstBreaker reports whether the failure indicates the upstream
// itself is unhealthy. Timeouts and local transport errors retry without
// tripping the breaker.
func countsAgainstBreaker(err error) bool {
	var upstream *models.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	var app *models.ApplicationError
	return errors.As(err, &app)
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
