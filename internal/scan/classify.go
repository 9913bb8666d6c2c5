package scan

import (
	"net/http"

	"github.com/tdh8316/namecheck/internal/transport"
)

// Classify maps a probe outcome to Hit, Miss or Unknown. 404 is the only
// positive signal; a missing status is never read as Miss.
func Classify(out transport.Outcome) Verdict {
	switch {
	case out.StatusCode == 0:
		return Unknown
	case out.StatusCode == http.StatusNotFound:
		return Hit
	default:
		return Miss
	}
}
