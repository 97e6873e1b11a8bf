// Package retry runs remote calls with a fixed retry ceiling and linear
// backoff. Only transient network failures are retried.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
)

type Classifier func(err error) bool

type SleepFunc func(ctx context.Context, d time.Duration) error

type Retrier struct {
	maxRetries int
	baseDelay  time.Duration
	classify   Classifier
	sleep      SleepFunc
	metrics    *Metrics
	log        *slog.Logger
}

type Option func(*Retrier)

func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d >= 0 {
			r.baseDelay = d
		}
	}
}

func WithClassifier(c Classifier) Option {
	return func(r *Retrier) {
		r.classify = c
	}
}

// WithSleep replaces the timer-based wait between attempts.
func WithSleep(s SleepFunc) Option {
	return func(r *Retrier) {
		r.sleep = s
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Retrier) {
		r.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Retrier) {
		r.log = l
	}
}

func New(options ...Option) *Retrier {
	r := &Retrier{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		classify:   IsTransient,
		sleep:      Sleep,
		log:        slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Delay is the wait before retry number attempt (1-based).
func (r *Retrier) Delay(attempt int) time.Duration {
	return r.baseDelay * time.Duration(attempt)
}

// Do calls fn until it succeeds, fails with a non-transient error, or the
// retry ceiling is reached. The last failure is returned unchanged. A context
// cancelled while waiting ends the loop with the context error.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		r.metrics.attempt(op)

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		if attempt >= r.maxRetries || !r.classify(err) || ctx.Err() != nil {
			r.metrics.failure(op, err)
			return zero, err
		}

		delay := r.Delay(attempt + 1)
		r.log.Debug("retrying transient failure",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err.Error(),
		)
		r.metrics.retry(op)

		if serr := r.sleep(ctx, delay); serr != nil {
			r.metrics.failure(op, serr)
			return zero, serr
		}
	}
}

// Run is Do for operations without a result.
func (r *Retrier) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient reports whether err looks like a network failure worth
// retrying: a message mentioning "network" or "fetch", a timeout, a
// connection abort/reset/refusal, or an error already normalized as network.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := err.Error()
	if strings.Contains(msg, "network") || strings.Contains(msg, "fetch") {
		return true
	}

	if customerrors.KindOf(err) == customerrors.KindNetwork {
		return true
	}

	if errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
