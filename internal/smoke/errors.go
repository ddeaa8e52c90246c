package smoke

import "errors"

var (
	// ErrStatus marks a non-2xx response.
	ErrStatus = errors.New("unexpected status")
	// ErrFailed is returned when at least one case failed its checks.
	ErrFailed = errors.New("smoke checks failed")
)
