// Package content implements the content service API client. The progress
// service asks it how many concepts exist, either platform-wide (for
// completion prediction) or per subject (for the subject mastery badge).
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/persistence/redis"
	"github.com/G2-Spool/spool-progress-service/internal/metrics"
	"github.com/G2-Spool/spool-progress-service/pkg/circuitbreaker"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
	"github.com/G2-Spool/spool-progress-service/pkg/retry"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSubjectUnknown is returned when the content service has no such subject.
	ErrSubjectUnknown = errors.New("content: unknown subject")

	// ErrUnavailable is returned when the content service cannot be reached
	// and no cached value exists.
	ErrUnavailable = errors.New("content: service unavailable")
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client calls the content service with rate limiting, retries and a
// circuit breaker. Successful lookups are cached in Redis so badge
// evaluation does not hit the content service on every mastery.
type Client struct {
	baseURL string
	apiKey  string

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	cache      *redis.Cache
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewClient creates a content service client. The cache is optional; pass
// nil to disable caching.
func NewClient(cfg config.ContentConfig, cache *redis.Cache, log *logger.Logger) *Client {
	perSecond := rate.Limit(float64(cfg.RateLimit) / 60.0)
	if cfg.RateLimit <= 0 {
		perSecond = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(perSecond, burst),
		breaker: circuitbreaker.ContentAPIBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("content breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		retrier:  retry.ContentAPIRetrier(),
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		log:      log,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

// conceptCountDTO is the content service's count response.
type conceptCountDTO struct {
	Count int `json:"count"`
}

// TotalConceptCount returns the number of concepts on the platform.
func (c *Client) TotalConceptCount(ctx context.Context) (int, error) {
	return c.countWithCache(ctx, redis.ContentKey("concepts:total"), "/api/v1/concepts/count")
}

// SubjectConceptCount returns the number of concepts in a subject.
func (c *Client) SubjectConceptCount(ctx context.Context, subject string) (int, error) {
	if subject == "" {
		return 0, ErrSubjectUnknown
	}
	path := "/api/v1/subjects/" + url.PathEscape(subject) + "/concepts/count"
	return c.countWithCache(ctx, redis.ContentKey("concepts:subject:"+subject), path)
}

// HealthCheck probes the content service. Used by the readiness endpoint;
// bypasses the cache so a dead upstream is noticed promptly.
func (c *Client) HealthCheck(ctx context.Context) error {
	var dto conceptCountDTO
	return c.getJSON(ctx, "/api/v1/concepts/count", &dto)
}

func (c *Client) countWithCache(ctx context.Context, cacheKey, path string) (int, error) {
	if c.cache != nil {
		var cached int
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var dto conceptCountDTO
	if err := c.getJSON(ctx, path, &dto); err != nil {
		return 0, err
	}

	if c.cache != nil {
		ttl := c.cacheTTL
		if ttl <= 0 {
			ttl = redis.TTLContentCache
		}
		if err := c.cache.Set(ctx, cacheKey, dto.Count, ttl); err != nil {
			c.log.Warn("content cache write failed", logger.Err(err), logger.String("key", cacheKey))
		}
	}

	return dto.Count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
			return c.doGet(ctx, path, dest)
		})
	})
	if err != nil {
		metrics.ContentAPIRequests.WithLabelValues("error").Inc()
		return err
	}
	metrics.ContentAPIRequests.WithLabelValues("ok").Inc()
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.Retryable(fmt.Errorf("read response: %w", err))
		}
		if err := json.Unmarshal(body, dest); err != nil {
			return retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(ErrSubjectUnknown)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("content service returned %d", resp.StatusCode))
	default:
		return retry.Permanent(fmt.Errorf("content service returned %d", resp.StatusCode))
	}
}
