package vertex

import "errors"

var (
	// ErrNoCredentials is returned by New when neither credentials nor a token source are given.
	ErrNoCredentials = errors.New("vertex credentials missing")
	// ErrNoProject is returned by New without a project ID.
	ErrNoProject = errors.New("vertex project id missing")
	// ErrNoVector means the response parsed but held no usable embedding.
	ErrNoVector = errors.New("no vector in response")
)
