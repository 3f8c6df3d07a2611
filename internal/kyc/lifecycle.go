// Package kyc normalizes third-party identity-verification vendors behind a
// common attempt lifecycle and a pure field extractor. The vendors do the
// actual document and biometric analysis; this package only tracks the
// attempt and maps vendor payloads onto the onboarding scan model.
package kyc

import (
	"sync"

	"valid8/internal/onboarding/models"
	"valid8/pkg/platform/sentinel"
)

// State names the attempt lifecycle phases.
type State string

const (
	StateLoadingToken State = "loading-token"
	StateInitializing State = "initializing"
	StateActive       State = "active"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Outcome is the single terminal event of an attempt.
type Outcome struct {
	State  State
	Fields models.IDScanResult
	Err    string
}

// Attempt tracks one verification attempt through
// loading-token -> initializing -> active -> {completed|failed|cancelled}.
// Exactly one terminal event is observed per attempt; a failed attempt can
// be retried back to initializing, a cancelled one cannot. Teardown is
// idempotent.
type Attempt struct {
	mu          sync.Mutex
	state       State
	initialized bool
	tornDown    bool
	done        chan Outcome
}

func NewAttempt() *Attempt {
	return &Attempt{
		state: StateLoadingToken,
		done:  make(chan Outcome, 1),
	}
}

// Done delivers the attempt's one terminal outcome.
func (a *Attempt) Done() <-chan Outcome {
	return a.done
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// TokenReady moves the attempt out of credential loading.
func (a *Attempt) TokenReady() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateLoadingToken {
		return sentinel.ErrInvalidState
	}
	a.state = StateInitializing
	return nil
}

// Initialize activates the vendor mount. Repeat calls while already active
// are absorbed: the vendor SDK must be initialized at most once per mount
// no matter how often the caller retries the call.
func (a *Attempt) Initialize() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized && a.state == StateActive {
		return nil
	}
	if a.state != StateInitializing {
		return sentinel.ErrInvalidState
	}
	a.initialized = true
	a.state = StateActive
	return nil
}

// Complete records the successful terminal event with the extracted fields.
func (a *Attempt) Complete(fields models.IDScanResult) {
	a.terminal(Outcome{State: StateCompleted, Fields: fields})
}

// Fail records the failing terminal event with a human-readable message.
func (a *Attempt) Fail(message string) {
	a.terminal(Outcome{State: StateFailed, Err: message})
}

// Cancel records user cancellation. Cancelled is terminal for this attempt;
// the caller must start a fresh attempt to retry.
func (a *Attempt) Cancel() {
	a.terminal(Outcome{State: StateCancelled})
}

// Retry rewinds a failed attempt so initialization can run from scratch.
func (a *Attempt) Retry() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateFailed {
		return sentinel.ErrInvalidState
	}
	a.state = StateInitializing
	a.initialized = false
	a.done = make(chan Outcome, 1)
	return nil
}

// Teardown releases the attempt. Calling it more than once, or on an
// attempt that never activated, is harmless.
func (a *Attempt) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tornDown {
		return
	}
	a.tornDown = true
	if a.state == StateActive || a.state == StateInitializing || a.state == StateLoadingToken {
		a.state = StateCancelled
		select {
		case a.done <- Outcome{State: StateCancelled}:
		default:
		}
	}
}

// terminal applies the first terminal event and drops any later ones.
func (a *Attempt) terminal(outcome Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateCompleted, StateFailed, StateCancelled:
		return
	}
	a.state = outcome.State
	select {
	case a.done <- outcome:
	default:
	}
}
