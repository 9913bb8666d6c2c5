package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/tdh8316/namecheck/internal/httpx"
)

const DefaultMediatedEndpoint = "https://realtime.oxylabs.io/v1/queries"

const maxPayloadBytes = 2048

type MediatedConfig struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
	Logger   logrus.FieldLogger
}

// Mediated relays each probe through a realtime fetch API authenticated with
// a username/password pair and reads back the status the API observed.
type Mediated struct {
	client   *http.Client
	endpoint string
	username string
	password string
	logger   logrus.FieldLogger
}

type relayQuery struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Parse  bool   `json:"parse"`
}

func NewMediated(cfg MediatedConfig) (*Mediated, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("mediated transport: username and password are required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultMediatedEndpoint
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}

	client, err := httpx.NewClient(httpx.ClientConfig{Timeout: cfg.Timeout})
	if err != nil {
		return nil, errors.Wrap(err, "mediated transport")
	}

	return &Mediated{
		client:   client,
		endpoint: cfg.Endpoint,
		username: cfg.Username,
		password: cfg.Password,
		logger:   cfg.Logger,
	}, nil
}

func (m *Mediated) Probe(ctx context.Context, url string) (Outcome, error) {
	body, err := json.Marshal(relayQuery{Source: "universal", URL: url, Parse: false})
	if err != nil {
		return Outcome{}, errors.Wrap(err, "encode relay query")
	}

	req, err := httpx.NewRequest(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body), "Mozilla/5.0")
	if err != nil {
		return Outcome{}, errors.Wrap(err, "build relay request")
	}
	req.SetBasicAuth(m.username, m.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Outcome{}, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	// The relay embeds the whole target page ahead of status_code, so the
	// body is read in full.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, &Error{URL: url, Err: errors.Wrap(err, "read relay body")}
	}

	m.logger.WithFields(logrus.Fields{
		"url":          url,
		"relay_status": resp.StatusCode,
	}).Debug("relay answered")

	return parseRelay(raw), nil
}

func (m *Mediated) Close() error {
	httpx.CloseIdle(m.client)
	return nil
}

// parseRelay resolves the object of interest (first element of "results"
// when present and non-empty, else the top-level value) and reads its
// status_code, falling back to status. The declared content type is ignored.
func parseRelay(raw []byte) Outcome {
	if !gjson.ValidBytes(raw) {
		return Outcome{Payload: truncate(string(raw))}
	}

	doc := gjson.ParseBytes(raw)
	resolved := doc
	if doc.IsObject() {
		if results := doc.Get("results"); results.IsArray() && len(results.Array()) > 0 {
			resolved = results.Array()[0]
		}
	}

	if resolved.IsObject() {
		if code := statusOf(resolved.Get("status_code")); code != 0 {
			return Outcome{StatusCode: code}
		}
		if code := statusOf(resolved.Get("status")); code != 0 {
			return Outcome{StatusCode: code}
		}
	}

	return Outcome{Payload: truncate(resolved.Raw)}
}

// statusOf accepts integral numbers and numeric strings. Anything else,
// booleans included, counts as absent.
func statusOf(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		if v.Num != math.Trunc(v.Num) {
			return 0
		}
		return int(v.Num)
	case gjson.String:
		n, err := strconv.Atoi(v.Str)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func truncate(s string) string {
	if len(s) <= maxPayloadBytes {
		return s
	}
	return s[:maxPayloadBytes] + "...(truncated)"
}
