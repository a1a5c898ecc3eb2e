// Package xclient is a minimal X API v1.1 client covering the follower and
// direct message endpoints, signed with OAuth 1.0a.
package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"influencekit/internal/metrics"
)

const DefaultBaseURL = "https://api.twitter.com/1.1"

// Config tunes a Client. Zero values pick defaults.
type Config struct {
	BaseURL           string
	Credentials       Credentials
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
	BaseBackoff       time.Duration
	Timeout           time.Duration
}

// Client talks to the v1.1 REST API.
type Client struct {
	baseURL     string
	creds       Credentials
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      zerolog.Logger

	nowFn   func() time.Time
	nonceFn func() string
}

func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		creds:       cfg.Credentials,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		logger:      logger.With().Str("component", "xclient").Logger(),
		nowFn:       time.Now,
		nonceFn:     func() string { return strconv.FormatInt(rand.Int63(), 36) },
	}
}

// get issues a signed GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (http.Header, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.oauth1Sign(req, params)
	return c.do(ctx, endpoint, req, out)
}

// postJSON issues a signed POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, endpoint string, body any, out any) (http.Header, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.oauth1Sign(req, nil)
	return c.do(ctx, endpoint, req, out)
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return resp.Header, parseAPIError(endpoint, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode %s: %w", endpoint, err)
		}
	}
	return resp.Header, nil
}

// doWithRetry retries network failures and 5xx responses with jittered
// exponential backoff. 429 is returned to the caller: rate-limit policy
// belongs to the crawl and campaign loops.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
			if err := sleepCtx(ctx, jitter(backoff)); err != nil {
				return nil, err
			}
			backoff *= 2
		}
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.httpClient.Do(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Debug().Err(err).Str("endpoint", endpoint).Int("attempt", attempt).Msg("api_retry")
			continue
		}
		if resp.StatusCode >= 500 && resp.StatusCode <= 599 && attempt < c.maxAttempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("x api status %d", resp.StatusCode)
			c.logger.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint).Int("attempt", attempt).Msg("api_retry")
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request %s failed after %d attempts: %w", endpoint, c.maxAttempts, lastErr)
}

// jitter +/-20%
func jitter(d time.Duration) time.Duration {
	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(rand.Int63n(int64(2*j)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
