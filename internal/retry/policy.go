// Package retry decides whether a failed probe is attempted again and how
// long to wait before doing so.
package retry

import (
	"time"

	"github.com/tdh8316/namecheck/internal/transport"
)

const (
	DefaultBudget = 3
	// maxUnits caps the exponential backoff at 10 units.
	maxUnits = 10
)

// Policy retries transport failures up to Budget times with exponential
// backoff of min(2^(attempt-1), 10) units. Attempts are numbered from 1.
type Policy struct {
	Budget int
	Unit   time.Duration
}

func New(budget int) Policy {
	if budget < 0 {
		budget = 0
	}
	return Policy{Budget: budget, Unit: time.Second}
}

// ShouldRetry reports whether attempt, which failed with err, earns another
// try. Only transport failures are retried.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if !transport.IsRetryable(err) {
		return false
	}
	return attempt <= p.Budget
}

// Backoff is the delay to wait after attempt failed.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	units := maxUnits
	if attempt-1 < 4 {
		units = 1 << (attempt - 1)
	}
	return time.Duration(units) * p.Unit
}
