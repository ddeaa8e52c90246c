package model

import "errors"

var (
	// ErrInvalidImage is returned for payloads that are not valid base64.
	ErrInvalidImage = errors.New("invalid image payload")
	// ErrImageTooLarge is returned when a decoded image exceeds the size ceiling.
	ErrImageTooLarge = errors.New("image payload too large")
)
