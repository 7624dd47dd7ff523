package llm

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

const maxBackoff = 30 * time.Second

// Backoff returns the wait before retry attempt n (0-indexed): base·2ⁿ capped
// at 30s, plus up to 50% jitter.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << uint(attempt)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

// RetryingCompleter retries retryable failures of the wrapped completer.
type RetryingCompleter struct {
	next       Completer
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     logging.Logger
}

// RetryOption configures a RetryingCompleter.
type RetryOption func(*RetryingCompleter)

// WithBaseBackoff sets the base delay of the exponential schedule.
func WithBaseBackoff(base time.Duration) RetryOption {
	return func(r *RetryingCompleter) {
		r.backoff = func(attempt int) time.Duration { return Backoff(base, attempt) }
	}
}

// WithBackoffFunc replaces the backoff schedule.
func WithBackoffFunc(fn func(attempt int) time.Duration) RetryOption {
	return func(r *RetryingCompleter) { r.backoff = fn }
}

// NewRetryingCompleter wraps next with up to maxRetries additional attempts.
func NewRetryingCompleter(next Completer, maxRetries int, log logging.Logger, opts ...RetryOption) *RetryingCompleter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &RetryingCompleter{
		next:       next,
		maxRetries: maxRetries,
		logger:     log,
	}
	WithBaseBackoff(time.Second)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete implements Completer.
func (r *RetryingCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(err) || attempt >= r.maxRetries {
			return nil, err
		}

		wait := r.backoff(attempt)
		r.logger.Warn("retrying chat completion",
			logging.String("operation", string(req.Operation)),
			logging.Int("attempt", attempt+1),
			logging.Duration("backoff", wait),
			logging.Err(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "retry aborted")
		case <-timer.C:
		}
	}
}

//Personal.AI order the ending
