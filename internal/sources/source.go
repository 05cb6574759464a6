package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
	"github.com/scrubware/pmscrub/internal/privacy"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Source is one SaaS product-management API. Fetch returns the raw
// JSON-decoded records for a resource; Rules returns the field-rule table
// the caller hands to the privacy filter together with those records.
type Source interface {
	Name() string
	Resources() []string
	Fetch(ctx context.Context, resource string) (any, error)
	Rules(resource string) privacy.FieldRules
}

// Client is the HTTP plumbing shared by all sources: timeout, client-side
// rate limiting and retry with exponential backoff on 429/5xx.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *logger.Logger
}

// NewClient creates the shared source HTTP client.
func NewClient(cfg config.SourcesConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		maxRetries: cfg.MaxRetries,
		logger:     log,
	}
}

// GetJSON performs a rate-limited GET and decodes the response body into a
// generic JSON value. Requests hitting 429 or 5xx are retried with
// exponential backoff; auth failures are never retried.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header) (any, error) {
	var result any

	err := c.retryWithBackoff(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		c.logger.Debug("API request completed",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &authError{status: resp.StatusCode}
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &retryableError{status: resp.StatusCode}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
		}

		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})

	return result, err
}

// retryWithBackoff retries fn on retryable errors with 1s, 2s, 4s... waits.
func (c *Client) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if _, ok := lastErr.(*retryableError); !ok {
			return lastErr
		}

		if attempt < c.maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Warn("retrying API request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

type retryableError struct {
	status int
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable HTTP status %d", e.status)
}

type authError struct {
	status int
}

func (e *authError) Error() string {
	return fmt.Sprintf("authentication failed: HTTP %d", e.status)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	_, ok := err.(*authError)
	return ok
}

// All returns every configured source keyed by name.
func All(cfg config.SourcesConfig, log *logger.Logger) map[string]Source {
	client := NewClient(cfg, log)
	return map[string]Source{
		"productboard": NewProductboard(cfg.Productboard, client, cfg.MaxPages),
		"dovetail":     NewDovetail(cfg.Dovetail, client, cfg.MaxPages),
		"confluence":   NewConfluence(cfg.Confluence, client, cfg.MaxPages),
		"jira":         NewJira(cfg.Jira, client, cfg.MaxPages),
	}
}
