package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/guildwatch/guildwatch/internal/model"
)

// Client fetches the exposed database's community index from the
// remote service.
//
// Design decision: the http.Client is injected rather than created
// internally so tests can point the client at httptest servers and so
// transport configuration stays in one place at the call site. All
// other knobs use functional options with conservative defaults.
type Client struct {
	// httpClient performs the actual requests.
	httpClient *http.Client

	// indexURL is the paginated index endpoint.
	indexURL string

	// detailURL is the per-community detail endpoint; the community ID
	// is appended as a path segment.
	detailURL string

	// pageSize is the identifier count requested per page.
	pageSize int

	// maxRetries is the per-page retry ceiling for transient failures.
	maxRetries int

	// backoffBase is the initial retry delay, doubled per attempt.
	backoffBase time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize caps how many response bytes are read.
	maxBodySize int64

	// limiter spaces out requests as a politeness setting.
	// Nil means no client-side rate limiting.
	limiter *rate.Limiter

	// logger is used for structured fetch progress logging.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDetailURL sets the per-community detail endpoint.
func WithDetailURL(u string) Option {
	return func(c *Client) {
		c.detailURL = u
	}
}

// WithPageSize sets the identifier count requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRetryPolicy sets the per-page retry ceiling and the initial
// backoff delay. maxRetries counts retries beyond the first attempt;
// zero means a single attempt per page.
func WithRetryPolicy(maxRetries int, backoffBase time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoffBase > 0 {
			c.backoffBase = backoffBase
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithRateLimit caps client-issued requests per second.
// Zero or negative disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger sets the structured logger used for fetch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the given index endpoint.
func NewClient(httpClient *http.Client, indexURL string, opts ...Option) *Client {
	c := &Client{
		httpClient:  httpClient,
		indexURL:    indexURL,
		pageSize:    1000,
		maxRetries:  5,
		backoffBase: 500 * time.Millisecond,
		userAgent:   "guildwatch/1.0 (+https://github.com/guildwatch/guildwatch)",
		maxBodySize: 5 * 1024 * 1024,
		limiter:     rate.NewLimiter(rate.Limit(2), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// page is one decoded index page.
type page struct {
	// IDs are the community identifiers listed on this page, as
	// decimal strings.
	IDs []string `json:"ids"`

	// Next is the continuation cursor. Empty means this was the final
	// page.
	Next string `json:"next"`
}

// FetchResult is the completed outcome of an index fetch.
type FetchResult struct {
	// Index is the full remote index. Never partial: a failed or
	// cancelled fetch returns an error and no index.
	Index *model.RemoteIndex

	// Pages is the number of pages retrieved.
	Pages int
}

// FetchIndex retrieves the full community index, paginating until the
// remote signals completion.
//
// The loop is driven by the fetch state machine. Each page is retried
// on transient failure with exponential backoff up to the retry
// ceiling; when the server supplies a Retry-After duration, that
// duration is slept instead. The fetch is interruptible at page-request
// and backoff-sleep granularity; cancellation returns the context
// error, never a partial index.
func (c *Client) FetchIndex(ctx context.Context) (*FetchResult, error) {
	index := model.NewRemoteIndex()
	m := newMachine(c.maxRetries, c.backoffBase)

	var (
		cursor     string
		pages      int
		lastErr    error
		retryAfter time.Duration
	)

	for {
		switch m.state {
		case StateFetching:
			if err := c.wait(ctx); err != nil {
				return nil, err
			}

			pg, out, ra, err := c.fetchPage(ctx, cursor)
			if ctx.Err() != nil {
				return nil, fmt.Errorf("index fetch cancelled: %w", ctx.Err())
			}
			lastErr = err
			retryAfter = ra

			if out == outcomeSuccessMore || out == outcomeSuccessTerminal {
				for _, raw := range pg.IDs {
					id, perr := model.ParseCommunityID(raw)
					if perr != nil {
						return nil, fmt.Errorf("%w: bad identifier %q", ErrProtocol, raw)
					}
					index.Add(id)
				}
				pages++
				cursor = pg.Next
				c.logger.Debug("index page received",
					"page", pages,
					"ids", len(pg.IDs),
					"more", out == outcomeSuccessMore,
				)
			}

			m.observe(out)

		case StateBackoff:
			delay := m.delay()
			if retryAfter > 0 {
				// The server knows its own limits better than our
				// backoff schedule does.
				delay = retryAfter
			}
			c.logger.Debug("index fetch backing off",
				"delay", delay,
				"attempt", m.attempt,
				"error", lastErr,
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("index fetch cancelled: %w", err)
			}
			m.resume()

		case StateDone:
			c.logger.Debug("index fetch complete",
				"pages", pages,
				"communities", index.Len(),
			)
			return &FetchResult{Index: index, Pages: pages}, nil

		case StateFailed:
			if lastErr == nil {
				lastErr = ErrRemoteUnavailable
			}
			if m.attempt > m.maxRetries {
				return nil, fmt.Errorf("%w (last error: %v)", ErrRemoteUnavailable, lastErr)
			}
			return nil, lastErr
		}
	}
}

// fetchPage requests one index page and classifies the attempt.
// The returned page is valid only for success outcomes. retryAfter is
// non-zero when the server supplied a usable Retry-After header.
func (c *Client) fetchPage(ctx context.Context, cursor string) (*page, outcome, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(cursor), nil)
	if err != nil {
		return nil, outcomeFatal, 0, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failure; the request is idempotent, retry.
		return nil, outcomeTransient, 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, outcomeTransient, parseRetryAfter(resp.Header.Get("Retry-After")),
			fmt.Errorf("rate limited (HTTP 429)")
	case resp.StatusCode >= 500:
		return nil, outcomeTransient, 0,
			fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	default:
		return nil, outcomeFatal, 0,
			fmt.Errorf("%w: HTTP %d", ErrProtocol, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, outcomeTransient, 0, fmt.Errorf("failed to read page body: %w", err)
	}

	var pg page
	if err := json.Unmarshal(body, &pg); err != nil {
		return nil, outcomeFatal, 0, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if pg.Next == "" {
		return &pg, outcomeSuccessTerminal, 0, nil
	}
	return &pg, outcomeSuccessMore, 0, nil
}

// pageURL builds the index page URL for the given cursor.
func (c *Client) pageURL(cursor string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}
	return c.indexURL + "?" + q.Encode()
}

// wait blocks on the politeness rate limiter, if one is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("index fetch cancelled: %w", context.Cause(ctx))
	}
	return nil
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter parses a Retry-After header value: either a delay in
// seconds or an HTTP date. Returns 0 when the value is absent or
// unusable, in which case the caller falls back to exponential backoff.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
