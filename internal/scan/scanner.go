package scan

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tdh8316/namecheck/internal/handle"
	"github.com/tdh8316/namecheck/internal/retry"
	"github.com/tdh8316/namecheck/internal/transport"
)

// Scanner runs one check per identifier against a single transport while
// keeping at most cfg.Concurrency probes in flight.
type Scanner struct {
	transport transport.Transport
	policy    retry.Policy
	cfg       Config
	limiter   *rate.Limiter
	logger    logrus.FieldLogger
	sleep     sleepFunc
}

func NewScanner(tr transport.Transport, policy retry.Policy, cfg Config, logger logrus.FieldLogger) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	s := &Scanner{
		transport: tr,
		policy:    policy,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepCtx,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return s
}

// Scan checks every identifier and hands each terminal result to onResult.
// onResult is called from a single goroutine, so it needs no locking.
//
// Scan returns nil once every check has finished. If ctx is cancelled first
// it returns ctx.Err() straight away; checks still running are abandoned and
// their results dropped.
func (s *Scanner) Scan(ctx context.Context, identifiers []string, onResult func(Result)) error {
	if onResult == nil {
		return errors.New("onResult callback is nil")
	}
	if len(identifiers) == 0 {
		return nil
	}

	slots := make(chan struct{}, s.cfg.Concurrency)
	results := make(chan Result, s.cfg.Concurrency)

	var wg sync.WaitGroup
	wg.Add(len(identifiers))
	for _, id := range identifiers {
		go func() {
			defer wg.Done()
			res := s.check(ctx, slots, id)
			select {
			case results <- res:
			case <-ctx.Done():
			}
		}()
	}

	go func() {
		defer close(results)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return ctx.Err()
			}
			if ctx.Err() != nil && errors.Is(res.Err, context.Canceled) {
				continue
			}
			onResult(res)
		}
	}
}

// check drives one identifier through attempt, backoff and classification.
func (s *Scanner) check(ctx context.Context, slots chan struct{}, id string) Result {
	res := Result{
		Identifier: id,
		URL:        handle.TargetURL(s.cfg.URLTemplate, id),
	}
	log := s.logger.WithFields(logrus.Fields{"identifier": id, "url": res.URL})

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt

		out, err := s.probe(ctx, slots, res.URL)
		if err == nil {
			res.Verdict = Classify(out)
			res.StatusCode = out.StatusCode
			res.Payload = out.Payload
			log.WithFields(logrus.Fields{
				"verdict":  res.Verdict.String(),
				"status":   out.StatusCode,
				"attempts": attempt,
			}).Debug("check finished")
			return res
		}

		if !s.policy.ShouldRetry(attempt, err) {
			res.Verdict = Errored
			res.Err = err
			if !errors.Is(err, context.Canceled) {
				log.WithError(err).WithField("attempts", attempt).Warn("check abandoned")
			}
			return res
		}

		delay := s.policy.Backoff(attempt)
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": delay.String(),
		}).Debug("probe failed, retrying")

		if err := s.sleep(ctx, delay); err != nil {
			res.Verdict = Errored
			res.Err = err
			return res
		}
	}
}

// probe holds a concurrency slot only for the duration of the network call.
func (s *Scanner) probe(ctx context.Context, slots chan struct{}, url string) (transport.Outcome, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return transport.Outcome{}, errors.Wrap(ctxErr(ctx, err), "rate limit")
		}
	}

	select {
	case <-ctx.Done():
		return transport.Outcome{}, ctx.Err()
	case slots <- struct{}{}:
	}
	defer func() { <-slots }()

	return s.transport.Probe(ctx, url)
}

// ctxErr prefers the context's own error so cancellation stays recognisable.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
