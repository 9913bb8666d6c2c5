// Package transport issues one availability probe for one target URL.
//
// Two interchangeable variants exist: [Direct] asks the target itself,
// [Mediated] relays the request through a fetch-and-relay API. Both normalise
// the answer into an [Outcome] and report network-level failures as [*Error].
package transport

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Outcome is the normalised answer to one probe.
type Outcome struct {
	// StatusCode is the status the platform answered with; 0 when it could
	// not be determined.
	StatusCode int

	// Payload carries the relay's resolved object when the status could not
	// be read. Always empty for the direct variant.
	Payload string
}

// Transport probes a single URL. Implementations are safe for concurrent use.
type Transport interface {
	Probe(ctx context.Context, url string) (Outcome, error)
	Close() error
}

// Error is a connection, timeout or truncated-response failure.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transport failure worth another
// attempt. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *Error
	return errors.As(err, &te)
}
