package dataset

import (
	"net/http"
	"testing"
	"time"
)

// TestMachineTransitions verifies every transition of the fetch state
// machine without touching the network.
func TestMachineTransitions(t *testing.T) {
	t.Parallel()

	t.Run("starts in fetching", func(t *testing.T) {
		t.Parallel()
		m := newMachine(3, time.Millisecond)
		if m.state != StateFetching {
			t.Errorf("expected StateFetching, got %v", m.state)
		}
	})

	t.Run("success with more pages stays fetching", func(t *testing.T) {
		t.Parallel()
		m := newMachine(3, time.Millisecond)
		if got := m.observe(outcomeSuccessMore); got != StateFetching {
			t.Errorf("expected StateFetching, got %v", got)
		}
	})

	t.Run("terminal success reaches done", func(t *testing.T) {
		t.Parallel()
		m := newMachine(3, time.Millisecond)
		if got := m.observe(outcomeSuccessTerminal); got != StateDone {
			t.Errorf("expected StateDone, got %v", got)
		}
	})

	t.Run("transient failure enters backoff within the ceiling", func(t *testing.T) {
		t.Parallel()
		m := newMachine(2, time.Millisecond)
		if got := m.observe(outcomeTransient); got != StateBackoff {
			t.Errorf("expected StateBackoff, got %v", got)
		}
		m.resume()
		if m.state != StateFetching {
			t.Errorf("expected StateFetching after resume, got %v", m.state)
		}
	})

	t.Run("exceeding the retry ceiling fails", func(t *testing.T) {
		t.Parallel()
		m := newMachine(2, time.Millisecond)
		m.observe(outcomeTransient) // attempt 1
		m.resume()
		m.observe(outcomeTransient) // attempt 2
		m.resume()
		if got := m.observe(outcomeTransient); got != StateFailed {
			t.Errorf("expected StateFailed after 3 transient failures with ceiling 2, got %v", got)
		}
	})

	t.Run("fatal failure fails immediately", func(t *testing.T) {
		t.Parallel()
		m := newMachine(5, time.Millisecond)
		if got := m.observe(outcomeFatal); got != StateFailed {
			t.Errorf("expected StateFailed, got %v", got)
		}
	})

	t.Run("a successful page resets the retry budget", func(t *testing.T) {
		t.Parallel()
		m := newMachine(1, time.Millisecond)
		m.observe(outcomeTransient) // page 1, attempt 1: at the ceiling
		m.resume()
		m.observe(outcomeSuccessMore) // page 1 succeeds
		// Page 2 gets a fresh budget.
		if got := m.observe(outcomeTransient); got != StateBackoff {
			t.Errorf("expected StateBackoff on fresh page, got %v", got)
		}
	})
}

// TestMachineDelay verifies the exponential backoff schedule.
func TestMachineDelay(t *testing.T) {
	t.Parallel()

	m := newMachine(5, 100*time.Millisecond)
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, expected := range want {
		m.observe(outcomeTransient)
		if got := m.delay(); got != expected {
			t.Errorf("attempt %d: expected delay %v, got %v", i+1, expected, got)
		}
		m.resume()
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	cases := map[State]string{
		StateFetching: "fetching",
		StateBackoff:  "backoff",
		StateDone:     "done",
		StateFailed:   "failed",
		State(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	t.Run("parses seconds", func(t *testing.T) {
		t.Parallel()
		if got := parseRetryAfter("3"); got != 3*time.Second {
			t.Errorf("expected 3s, got %v", got)
		}
	})

	t.Run("parses an HTTP date in the future", func(t *testing.T) {
		t.Parallel()
		// http.ParseTime only accepts GMT-suffixed layouts, so the
		// input must use http.TimeFormat rather than RFC1123.
		when := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(when)
		if got <= 0 || got > 10*time.Second {
			t.Errorf("expected a delay within (0, 10s], got %v", got)
		}
	})

	t.Run("empty and garbage values fall back to zero", func(t *testing.T) {
		t.Parallel()
		for _, v := range []string{"", "soon", "-5"} {
			if got := parseRetryAfter(v); got != 0 {
				t.Errorf("parseRetryAfter(%q) = %v, want 0", v, got)
			}
		}
	})

	t.Run("date with a non-GMT zone suffix falls back to zero", func(t *testing.T) {
		t.Parallel()
		when := time.Now().Add(10 * time.Second).UTC().Format(time.RFC1123)
		if got := parseRetryAfter(when); got != 0 {
			t.Errorf("parseRetryAfter(%q) = %v, want 0", when, got)
		}
	})
}
