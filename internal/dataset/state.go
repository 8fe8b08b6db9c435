package dataset

import "time"

// State is the fetch loop's current phase.
type State int

const (
	// StateFetching means the next page request may be issued.
	StateFetching State = iota

	// StateBackoff means the last attempt failed transiently and the
	// loop must sleep before retrying the same page.
	StateBackoff

	// StateDone means the terminal page was received and the index is
	// complete.
	StateDone

	// StateFailed means a fatal failure or an exhausted retry ceiling
	// ended the fetch.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateBackoff:
		return "backoff"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// outcome classifies the result of one page request attempt.
type outcome int

const (
	// outcomeSuccessMore: page received, continuation cursor present.
	outcomeSuccessMore outcome = iota

	// outcomeSuccessTerminal: page received, no more pages.
	outcomeSuccessTerminal

	// outcomeTransient: retryable failure (network error, 429, 5xx).
	outcomeTransient

	// outcomeFatal: non-retryable failure (protocol mismatch).
	outcomeFatal
)

// machine tracks retry state across attempts of the current page and
// derives state transitions from attempt outcomes. It performs no I/O,
// which keeps the transition rules and the retry ceiling unit-testable
// without a network.
type machine struct {
	// maxRetries is the number of retries allowed per page beyond the
	// first attempt.
	maxRetries int

	// backoffBase is the delay before the first retry; each subsequent
	// retry doubles it.
	backoffBase time.Duration

	// attempt counts failed attempts of the current page.
	attempt int

	// state is the loop's current phase.
	state State
}

// newMachine creates a machine in StateFetching.
func newMachine(maxRetries int, backoffBase time.Duration) *machine {
	return &machine{
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		state:       StateFetching,
	}
}

// observe applies one attempt outcome and returns the next state.
// A successful page resets the attempt counter: the retry ceiling is
// per page, not per fetch.
func (m *machine) observe(o outcome) State {
	switch o {
	case outcomeSuccessMore:
		m.attempt = 0
		m.state = StateFetching
	case outcomeSuccessTerminal:
		m.state = StateDone
	case outcomeTransient:
		m.attempt++
		if m.attempt > m.maxRetries {
			m.state = StateFailed
		} else {
			m.state = StateBackoff
		}
	case outcomeFatal:
		m.state = StateFailed
	}
	return m.state
}

// resume returns the loop to StateFetching after a backoff sleep.
func (m *machine) resume() {
	m.state = StateFetching
}

// delay returns the exponential backoff delay for the current attempt:
// backoffBase doubled per failed attempt beyond the first.
func (m *machine) delay() time.Duration {
	d := m.backoffBase
	for i := 1; i < m.attempt; i++ {
		d *= 2
	}
	return d
}
