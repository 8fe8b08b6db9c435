package dataset

import "errors"

// Remote fetch errors.
//
// Cancellation is not a sentinel here: a cancelled fetch propagates the
// wrapped context error, so callers check errors.Is(err,
// context.Canceled) to distinguish user interrupts from remote faults.
var (
	// ErrRemoteUnavailable is returned when a page request still fails
	// after the retry ceiling is exhausted. No partial index is
	// returned alongside it; a partial index would silently
	// under-report matches.
	ErrRemoteUnavailable = errors.New("remote dataset unavailable: retries exhausted")

	// ErrProtocol is returned when the remote response does not match
	// the expected shape: an unexpected status code, an unparsable
	// body, or identifiers that are not decimal snowflakes.
	ErrProtocol = errors.New("remote dataset returned an unexpected response")
)
