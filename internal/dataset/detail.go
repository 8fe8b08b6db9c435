package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guildwatch/guildwatch/internal/model"
)

// DetailResult holds the per-community payloads from the detail
// endpoint for a set of matched communities.
type DetailResult struct {
	// Details maps community ID to its raw detail payload.
	// Communities whose lookup failed are absent.
	Details map[model.CommunityID]json.RawMessage

	// Failed counts lookups that errored. Detail failures are soft:
	// the match itself is still reported without enrichment.
	Failed int
}

// FetchDetails retrieves the detail payload for each given community,
// with at most concurrency requests in flight. Lookup failures are
// counted, not fatal; only cancellation aborts the whole operation.
//
// Design decision: bounded fan-out via errgroup.SetLimit rather than a
// worker pool, and a default concurrency of one at the call site. More
// than one concurrent request against the dataset API is known to
// trigger rate limiting.
func (c *Client) FetchDetails(ctx context.Context, ids []model.CommunityID, concurrency int) (*DetailResult, error) {
	if c.detailURL == "" {
		return nil, fmt.Errorf("%w: no detail endpoint configured", ErrProtocol)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	result := &DetailResult{Details: make(map[model.CommunityID]json.RawMessage, len(ids))}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		g.Go(func() error {
			payload, err := c.fetchDetail(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("detail lookup cancelled: %w", ctx.Err())
				}
				c.logger.Warn("detail lookup failed", "community", id, "error", err)
				result.Failed++
				return nil
			}
			if payload != nil {
				result.Details[id] = payload
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// fetchDetail requests one community's detail payload, retrying
// transient failures with the same policy as index pages.
//
// The endpoint answers the literal body "false" for communities it does
// not list; that is mapped to a nil payload, not an error.
func (c *Client) fetchDetail(ctx context.Context, id model.CommunityID) (json.RawMessage, error) {
	m := newMachine(c.maxRetries, c.backoffBase)

	var lastErr error
	for {
		switch m.state {
		case StateFetching:
			if err := c.wait(ctx); err != nil {
				return nil, err
			}

			payload, out, retryAfter, err := c.requestDetail(ctx, id)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err

			if out == outcomeSuccessTerminal {
				return payload, nil
			}
			if m.observe(out) == StateBackoff {
				delay := m.delay()
				if retryAfter > 0 {
					delay = retryAfter
				}
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				m.resume()
			}

		case StateFailed:
			if m.attempt > m.maxRetries {
				return nil, fmt.Errorf("%w (last error: %v)", ErrRemoteUnavailable, lastErr)
			}
			return nil, lastErr

		default:
			return nil, lastErr
		}
	}
}

// requestDetail performs one detail request attempt.
func (c *Client) requestDetail(ctx context.Context, id model.CommunityID) (json.RawMessage, outcome, time.Duration, error) {
	u := c.detailURL + "/" + id.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, outcomeFatal, 0, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
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
		return nil, outcomeTransient, 0, fmt.Errorf("failed to read detail body: %w", err)
	}

	// "false" means the dataset does not list this community.
	if string(body) == "false" {
		return nil, outcomeSuccessTerminal, 0, nil
	}

	if !json.Valid(body) {
		return nil, outcomeFatal, 0, fmt.Errorf("%w: detail body is not valid JSON", ErrProtocol)
	}
	return json.RawMessage(body), outcomeSuccessTerminal, 0, nil
}
