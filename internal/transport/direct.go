package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/tdh8316/namecheck/internal/httpx"
)

// maxDiscardBytes bounds how much of a direct response is drained.
const maxDiscardBytes = 4 << 20

type DirectConfig struct {
	Timeout   time.Duration
	ProxyURL  string
	UserAgent string
}

// Direct requests the target URL itself and reports its status code. The
// platform may block or mislead unauthenticated clients, so its answers are
// less trustworthy than the mediated variant's.
type Direct struct {
	client    *http.Client
	userAgent string
}

func NewDirect(cfg DirectConfig) (*Direct, error) {
	client, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:  cfg.Timeout,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "direct transport")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.DefaultUserAgent
	}
	return &Direct{client: client, userAgent: cfg.UserAgent}, nil
}

func (d *Direct) Probe(ctx context.Context, url string) (Outcome, error) {
	req, err := httpx.NewRequest(ctx, http.MethodGet, url, nil, d.userAgent)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "build direct request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{}, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused; the body itself is not needed.
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDiscardBytes)); err != nil {
		return Outcome{}, &Error{URL: url, Err: errors.Wrap(err, "read body")}
	}

	return Outcome{StatusCode: resp.StatusCode}, nil
}

func (d *Direct) Close() error {
	httpx.CloseIdle(d.client)
	return nil
}
