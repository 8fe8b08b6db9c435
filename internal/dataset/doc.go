// Package dataset retrieves the exposed database's community index
// from the remote service.
//
// The index endpoint is paginated: each request returns a bounded page
// of community identifiers plus a continuation cursor, and an empty
// cursor signals the final page. The fetch loop is modeled as an
// explicit state machine (Fetching, Backoff, Done, Failed) so retry
// ceilings and cancellation can be tested in isolation from network
// code. Page requests are idempotent and safe to retry.
//
// Transient failures (network errors, HTTP 429/5xx) are retried with
// exponential backoff up to a configured ceiling; a Retry-After header
// from the server overrides the computed delay. A client-side rate
// limiter additionally spaces out page requests as politeness.
package dataset
