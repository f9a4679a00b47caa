package ingest

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type Kind string

const (
	KindAPIError        Kind = "api_error"
	KindParseError      Kind = "parse_error"
	KindValidationError Kind = "validation_error"
	KindDatabaseError   Kind = "database_error"
	KindRateLimitError  Kind = "rate_limit_error"
	KindNetworkError    Kind = "network_error"
)

// MaxBackoff bounds the total retry delay for any failure kind.
const MaxBackoff = 5 * time.Minute

const defaultRateLimitRetryAfterSeconds = 60

// Failure is a classified pipeline failure. It carries enough context to
// decide whether the owning job should be retried, snoozed or discarded.
type Failure struct {
	Kind              Kind
	Message           string
	Context           map[string]any
	RetryAfterSeconds int

	cause error
}

func NewFailure(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func WrapFailure(kind Kind, err error, message string) *Failure {
	return &Failure{Kind: kind, Message: message, cause: err}
}

func (f *Failure) WithContext(key string, value any) *Failure {
	if f.Context == nil {
		f.Context = make(map[string]any, 4)
	}
	f.Context[key] = value
	return f
}

func (f *Failure) WithRetryAfter(seconds int) *Failure {
	if seconds > 0 {
		f.RetryAfterSeconds = seconds
	}
	return f
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// Retryable reports whether re-running the job can ever succeed. Parse and
// validation failures are deterministic: the same payload fails identically.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindAPIError, KindNetworkError, KindDatabaseError, KindRateLimitError:
		return true
	default:
		return false
	}
}

func (f *Failure) retryAfterSeconds() int {
	if f.RetryAfterSeconds > 0 {
		return f.RetryAfterSeconds
	}
	if f.Kind == KindRateLimitError {
		return defaultRateLimitRetryAfterSeconds
	}
	return 5
}

// Backoff computes the delay before retry attempt n as
// retryAfter * 2^n plus up to one second of uniform jitter, capped at
// MaxBackoff so a stuck job never sleeps longer than five minutes.
func (f *Failure) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 20 {
		// 2^20 already blows past MaxBackoff for every base; clamping the
		// exponent keeps the shift from overflowing int64.
		attempt = 20
	}

	delay := time.Duration(f.retryAfterSeconds()) * time.Second << uint(attempt)
	delay += time.Duration(rand.Intn(1000)) * time.Millisecond
	if delay <= 0 || delay > MaxBackoff {
		return MaxBackoff
	}
	return delay
}

// AsFailure unwraps err into a *Failure when one is anywhere in the chain.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeRetry   Outcome = "retry"
	OutcomeDiscard Outcome = "discard"
)

// OutcomeFor maps a day's terminal error to the action the job system should
// take. Unknown errors are treated as retryable so transient bugs are not
// silently dropped.
func OutcomeFor(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if failure, ok := AsFailure(err); ok && !failure.Retryable() {
		return OutcomeDiscard
	}
	return OutcomeRetry
}
