package seal

import "errors"

var (
	// ErrInvalidToken is returned for any token that fails to parse or authenticate.
	ErrInvalidToken = errors.New("invalid gold token")
	// ErrEmptySecret is returned by New when no secret is configured.
	ErrEmptySecret = errors.New("seal secret is empty")
)
