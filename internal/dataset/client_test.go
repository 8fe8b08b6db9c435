package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guildwatch/guildwatch/internal/model"
)

// newTestClient creates a Client pointed at the given test server with
// fast retries and no politeness limiter.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithRetryPolicy(2, time.Millisecond),
		WithRateLimit(0),
	}
	return NewClient(srv.Client(), srv.URL+"/servers", append(base, opts...)...)
}

func TestFetchIndexSinglePage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ids": ["1", "2", "3"], "next": ""}`)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pages != 1 {
		t.Errorf("expected 1 page, got %d", result.Pages)
	}
	if result.Index.Len() != 3 {
		t.Errorf("expected 3 communities, got %d", result.Index.Len())
	}
	for _, id := range []model.CommunityID{1, 2, 3} {
		if !result.Index.Contains(id) {
			t.Errorf("expected index to contain %d", id)
		}
	}
}

// TestFetchIndexPagination verifies that identifiers accumulate across
// pages and that the empty cursor terminates the loop.
func TestFetchIndexPagination(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("after") {
		case "":
			fmt.Fprint(w, `{"ids": ["1", "2"], "next": "p2"}`)
		case "p2":
			fmt.Fprint(w, `{"ids": ["3"], "next": ""}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", result.Pages)
	}
	for _, id := range []model.CommunityID{1, 2, 3} {
		if !result.Index.Contains(id) {
			t.Errorf("expected index to contain %d", id)
		}
	}
}

// TestFetchIndexRetriesTransientFailures covers the two-failures-then-
// success case: the final index must be identical to the no-failure
// case.
func TestFetchIndexRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ids": ["1", "2"], "next": ""}`)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Index.Len() != 2 {
		t.Errorf("expected 2 communities after recovery, got %d", result.Index.Len())
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 requests (2 failures + 1 success), got %d", got)
	}
}

// TestFetchIndexExhaustsRetries verifies that a persistently failing
// page fails the whole fetch with ErrRemoteUnavailable and exposes no
// partial index, even when earlier pages succeeded.
func TestFetchIndexExhaustsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			fmt.Fprint(w, `{"ids": ["1"], "next": "p2"}`)
			return
		}
		// Page 2 always fails.
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).FetchIndex(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if result != nil {
		t.Error("expected no partial result on failure")
	}
}

func TestFetchIndexHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var firstRetryAt time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			firstRetryAt = time.Now()
			fmt.Fprint(w, `{"ids": [], "next": ""}`)
		}
	}))
	defer srv.Close()

	start := time.Now()
	if _, err := newTestClient(t, srv).FetchIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := firstRetryAt.Sub(start); elapsed < time.Second {
		t.Errorf("expected the retry to wait the advertised 1s, waited %v", elapsed)
	}
}

func TestFetchIndexProtocolErrors(t *testing.T) {
	t.Parallel()

	t.Run("unparsable body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>not json</html>`)
		}))
		defer srv.Close()

		if _, err := newTestClient(t, srv).FetchIndex(context.Background()); !errors.Is(err, ErrProtocol) {
			t.Errorf("expected ErrProtocol, got %v", err)
		}
	})

	t.Run("non-snowflake identifier", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ids": ["1", "banana"], "next": ""}`)
		}))
		defer srv.Close()

		if _, err := newTestClient(t, srv).FetchIndex(context.Background()); !errors.Is(err, ErrProtocol) {
			t.Errorf("expected ErrProtocol, got %v", err)
		}
	})

	t.Run("unexpected client error status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		if _, err := newTestClient(t, srv).FetchIndex(context.Background()); !errors.Is(err, ErrProtocol) {
			t.Errorf("expected ErrProtocol, got %v", err)
		}
	})
}

// TestFetchIndexCancellation verifies that cancelling mid-backoff
// surfaces the context error rather than a partial index.
func TestFetchIndexCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL+"/servers",
		WithRetryPolicy(10, time.Hour), // backoff long enough that cancel wins
		WithRateLimit(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := client.FetchIndex(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Error("expected no partial result on cancellation")
	}
}

func TestFetchIndexPageSizeInURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("expected limit=25, got %q", got)
		}
		fmt.Fprint(w, `{"ids": [], "next": ""}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv, WithPageSize(25)).FetchIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchDetails(t *testing.T) {
	t.Parallel()

	t.Run("collects payloads for listed communities", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/10"):
				fmt.Fprint(w, `{"members": 1200}`)
			case strings.HasSuffix(r.URL.Path, "/20"):
				fmt.Fprint(w, `false`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		client := newTestClient(t, srv, WithDetailURL(srv.URL+"/servers"))
		result, err := client.FetchDetails(context.Background(), []model.CommunityID{10, 20}, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(result.Details[10]) != `{"members": 1200}` {
			t.Errorf("unexpected detail for 10: %s", result.Details[10])
		}
		if _, ok := result.Details[20]; ok {
			t.Error("expected no payload for a 'false' response")
		}
		if result.Failed != 0 {
			t.Errorf("expected 0 failures, got %d", result.Failed)
		}
	})

	t.Run("counts failures without aborting", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/10") {
				fmt.Fprint(w, `{"ok": true}`)
				return
			}
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, WithDetailURL(srv.URL+"/servers"))
		result, err := client.FetchDetails(context.Background(), []model.CommunityID{10, 20}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Details) != 1 {
			t.Errorf("expected 1 detail, got %d", len(result.Details))
		}
		if result.Failed != 1 {
			t.Errorf("expected 1 failure, got %d", result.Failed)
		}
	})

	t.Run("requires a configured detail endpoint", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		client := newTestClient(t, srv)
		if _, err := client.FetchDetails(context.Background(), []model.CommunityID{1}, 1); !errors.Is(err, ErrProtocol) {
			t.Errorf("expected ErrProtocol, got %v", err)
		}
	})
}
