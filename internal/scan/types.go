package scan

import (
	"context"
	"time"
)

// Verdict is the terminal state of one check.
type Verdict int

const (
	// Miss: the platform answered with a concrete status other than 404.
	Miss Verdict = iota
	// Hit: the platform answered 404, the identifier is free.
	Hit
	// Unknown: no status could be read from the answer.
	Unknown
	// Errored: every attempt failed, or the failure was not retryable.
	Errored
)

func (v Verdict) String() string {
	switch v {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case Unknown:
		return "unknown"
	case Errored:
		return "errored"
	default:
		return "invalid"
	}
}

type Result struct {
	Identifier string
	URL        string

	Verdict    Verdict
	StatusCode int
	Payload    string
	Attempts   int
	Err        error
}

type Config struct {
	// URLTemplate holds a "{}" placeholder for the identifier.
	URLTemplate string
	Concurrency int
	// RateLimit caps probe starts per second across the batch; 0 disables it.
	RateLimit float64
}

const (
	DefaultConcurrency = 50
	DefaultURLTemplate = "https://www.instagram.com/{}/"
)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error
