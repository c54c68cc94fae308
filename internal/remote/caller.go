// Package remote wraps single calls to hosted AI services with a bounded,
// fixed-schedule retry and failure classification.
package remote

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy is the retry budget: MaxAttempts calls in total, Backoff[i] waited
// after the (i+1)-th failure. A short schedule repeats its last entry.
type Policy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		Backoff:     []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second},
	}
}

// Delay returns the wait after the failed attempt with zero-based index i.
func (p Policy) Delay(i int) time.Duration {
	if len(p.Backoff) == 0 || i < 0 {
		return 0
	}
	if i >= len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[i]
}

// Sleeper waits d or returns early with the context error.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
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

type Caller struct {
	policy  Policy
	sleep   Sleeper
	limiter *rate.Limiter
	logger  *zap.Logger
}

type Option func(*Caller)

func WithSleeper(s Sleeper) Option {
	return func(c *Caller) { c.sleep = s }
}

// WithLimiter makes every attempt wait for a token first.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Caller) { c.limiter = l }
}

func NewCaller(policy Policy, logger *zap.Logger, opts ...Option) *Caller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Caller{
		policy: policy,
		sleep:  SleepContext,
		logger: logger.With(zap.String("component", "remote")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Caller) Policy() Policy { return c.policy }

// Text runs fn under the retry policy and returns its trimmed, non-blank reply.
func (c *Caller) Text(ctx context.Context, purpose string, fn func(context.Context) (string, error)) (string, error) {
	out, err := Call(ctx, c, purpose, fn, func(s string) bool { return strings.TrimSpace(s) == "" })
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Call runs fn until it succeeds with a non-blank result or the policy is used
// up. blank may be nil when every successful result counts.
func Call[T any](
	ctx context.Context,
	c *Caller,
	purpose string,
	fn func(context.Context) (T, error),
	blank func(T) bool,
) (T, error) {
	var (
		zero     T
		lastErr  error
		kind     = Unknown
		attempts int
	)

	fail := func(err error) (T, error) {
		if lastErr == nil {
			lastErr = err
			kind = Classify(err)
		}
		return zero, &CallError{Purpose: purpose, Kind: kind, Attempts: attempts, Err: lastErr}
	}

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.policy.Delay(attempt - 1)
			c.logger.Info("retrying",
				zap.String("purpose", purpose),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return fail(err)
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fail(err)
			}
		}

		attempts++
		out, err := fn(ctx)
		if err == nil && blank != nil && blank(out) {
			err = ErrEmptyResponse
		}
		if err == nil {
			return out, nil
		}

		lastErr = err
		kind = Classify(err)
		c.logger.Warn("attempt failed",
			zap.String("purpose", purpose),
			zap.Int("attempt", attempt+1),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	c.logger.Error("all attempts failed",
		zap.String("purpose", purpose),
		zap.Int("attempts", attempts),
		zap.String("kind", string(kind)),
	)
	return zero, &CallError{Purpose: purpose, Kind: kind, Attempts: attempts, Err: lastErr}
}
