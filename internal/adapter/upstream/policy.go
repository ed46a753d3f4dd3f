package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"docrag/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Observer receives one event per attempt.
type Observer interface {
	ObserveUpstream(service, outcome string)
}

type Options struct {
	Timeout           time.Duration // per attempt
	MaxRetries        int
	RequestsPerSecond float64 // 0 disables client-side limiting
	Burst             int
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	Observer          Observer
	Logger            zerolog.Logger
}

// Policy runs calls to one external service with a token bucket, a per
// attempt deadline and bounded exponential backoff on transient failures.
type Policy struct {
	service  string
	timeout  time.Duration
	retries  int
	initial  time.Duration
	maxDelay time.Duration
	limiter  *rate.Limiter
	observer Observer
	log      zerolog.Logger
}

func NewPolicy(service string, opts Options) *Policy {
	p := &Policy{
		service:  service,
		timeout:  opts.Timeout,
		retries:  opts.MaxRetries,
		initial:  opts.InitialInterval,
		maxDelay: opts.MaxInterval,
		observer: opts.Observer,
		log:      opts.Logger.With().Str("upstream", service).Logger(),
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.retries < 0 {
		p.retries = 0
	}
	if p.initial <= 0 {
		p.initial = 500 * time.Millisecond
	}
	if p.maxDelay <= 0 {
		p.maxDelay = 10 * time.Second
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return p
}

func (p *Policy) Service() string {
	return p.service
}

// Do runs fn until it succeeds, fails permanently, or the retry budget is
// spent. Cancelling ctx stops immediately.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initial
	eb.MaxInterval = p.maxDelay
	eb.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.retries)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		actx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		err := fn(actx)
		if err == nil {
			p.observe("ok")
			return nil
		}
		if ctx.Err() != nil {
			p.observe("canceled")
			return backoff.Permanent(ctx.Err())
		}

		err = Classify(p.service, op, err)
		p.observe(outcome(err))
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		p.log.Warn().Err(err).Str("op", op).Int("attempt", attempts).Msg("transient upstream failure")
		return err
	}, bo)

	if err == nil {
		return nil
	}
	if domain.IsRetryable(err) {
		return fmt.Errorf("%w: %s %s gave up after %d attempts: %w", domain.ErrUpstreamUnavailable, p.service, op, attempts, err)
	}
	return err
}

func (p *Policy) observe(result string) {
	if p.observer != nil {
		p.observer.ObserveUpstream(p.service, result)
	}
}

func outcome(err error) string {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind.String()
	}
	return "error"
}
