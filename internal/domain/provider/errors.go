package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind classifies provider failures for the retry policy.
type Kind int

const (
	// KindPermanent failures advance to the next fallback step immediately.
	KindPermanent Kind = iota
	// KindTransient failures (network, timeout, quota, 5xx) may be retried.
	KindTransient
	// KindParse means the provider answered with something that is not an embedding.
	KindParse
	// KindUnavailable means the path is not configured; callers skip it silently.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindParse:
		return "parse"
	case KindUnavailable:
		return "unavailable"
	default:
		return "permanent"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrPermanent   = errors.New("provider permanent error")
	ErrTransient   = errors.New("provider transient error")
	ErrParse       = errors.New("provider response parse error")
	ErrUnavailable = errors.New("provider unavailable")

	// ErrEmptyEmbedding is wrapped in a parse error when a provider returns no values.
	ErrEmptyEmbedding = errors.New("empty embedding")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTransient:
		return ErrTransient
	case KindParse:
		return ErrParse
	case KindUnavailable:
		return ErrUnavailable
	default:
		return ErrPermanent
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	// RetryAfter is the server's requested delay, zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool { return target == e.Kind.sentinel() }

// HTTPStatusCode exposes the upstream status, zero when there was none.
func (e *Error) HTTPStatusCode() int { return e.StatusCode }

// Transient wraps err as retryable.
func Transient(op string, err error) error { return &Error{Kind: KindTransient, Op: op, Err: err} }

// Permanent wraps err as non-retryable.
func Permanent(op string, err error) error { return &Error{Kind: KindPermanent, Op: op, Err: err} }

// Parse wraps a response decoding failure.
func Parse(op string, err error) error { return &Error{Kind: KindParse, Op: op, Err: err} }

// Unavailable reports an unconfigured path.
func Unavailable(op string) error { return &Error{Kind: KindUnavailable, Op: op} }

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(op string, code int, retryAfter time.Duration, body string) error {
	kind := KindPermanent
	if IsRetryableStatus(code) {
		kind = KindTransient
	}
	var cause error
	if body != "" {
		cause = errors.New(body)
	}
	return &Error{Kind: kind, Op: op, StatusCode: code, RetryAfter: retryAfter, Err: cause}
}

// Classify returns the kind of err. Unclassified timeouts and network errors are
// transient; anything else is permanent.
func Classify(err error) Kind {
	if err == nil {
		return KindPermanent
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindPermanent
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return err != nil && Classify(err) == KindTransient
}

// RetryAfterOf returns the server-requested delay carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
