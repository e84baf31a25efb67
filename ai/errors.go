// Package ai provides the embedding client and error classification for the
// semantic matching core.
package ai

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Base error definitions for embedding and matching operations.
var (
	// ErrInvalidInput means the caller input is bad (empty text, empty skill
	// set). Not retryable; fix the request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument means a bad parameter such as top_k < 1.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstreamUnavailable means the embedding provider is temporarily
	// unreachable. Retryable with backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited means the provider rejected the call with a rate limit.
	// Retryable after backing off.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream means the provider returned a malformed or otherwise
	// non-retryable response.
	ErrUpstream = errors.New("upstream error")

	// ErrTimeout means the operation deadline elapsed. The caller decides
	// whether to retry or abort.
	ErrTimeout = errors.New("operation timed out")
)

// IsTransient reports whether the error is temporary and worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrRateLimited)
}

// classifyProviderError maps a go-openai client error onto the error taxonomy.
// The returned error wraps the appropriate sentinel and keeps the original
// cause in the chain.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return wrapSentinel(ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return wrapSentinel(ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return wrapSentinel(ErrUpstreamUnavailable, err)
		default:
			return wrapSentinel(ErrUpstream, err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == 429:
			return wrapSentinel(ErrRateLimited, err)
		case reqErr.HTTPStatusCode >= 500:
			return wrapSentinel(ErrUpstreamUnavailable, err)
		default:
			return wrapSentinel(ErrUpstream, err)
		}
	}

	if isNetworkError(err) {
		return wrapSentinel(ErrUpstreamUnavailable, err)
	}

	return wrapSentinel(ErrUpstream, err)
}

// isNetworkError checks if an error is network-related (transient).
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// sentinelError pairs a taxonomy sentinel with the underlying cause so both
// survive errors.Is checks.
type sentinelError struct {
	sentinel error
	cause    error
}

func wrapSentinel(sentinel, cause error) error {
	return &sentinelError{sentinel: sentinel, cause: cause}
}

func (e *sentinelError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *sentinelError) Is(target error) bool {
	return errors.Is(e.sentinel, target)
}

func (e *sentinelError) Unwrap() error {
	return e.cause
}

// retryOptions controls the transient-error retry loop.
type retryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func defaultRetryOptions() retryOptions {
	return retryOptions{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

// withRetry runs fn, retrying transient failures with exponential backoff.
// The context deadline always wins over remaining attempts.
func withRetry(ctx context.Context, opts retryOptions, fn func(ctx context.Context) error) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	delay := opts.BaseDelay
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return wrapSentinel(ErrTimeout, lastErr)
				}
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn(ctx)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
