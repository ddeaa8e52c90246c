package model

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// StripDataURL removes a leading data:image/<type>;base64, prefix.
func StripDataURL(s string) string {
	return dataURLPrefix.ReplaceAllString(s, "")
}

// NormalizeBase64 maps the URL-safe alphabet to the standard one, drops
// whitespace and repairs padding. A length of 1 mod 4 can never be valid.
func NormalizeBase64(s string) (string, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return '+'
		case '_':
			return '/'
		case ' ', '\t', '\n', '\r', '\f', '\v':
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(s, "=")
	switch len(s) % 4 {
	case 1:
		return "", fmt.Errorf("%w: bad base64 length", ErrInvalidImage)
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return s, nil
}

// DecodeImage turns a base64 or data URL payload into bytes. An empty payload
// decodes to nil. maxBytes <= 0 disables the size ceiling.
func DecodeImage(payload string, maxBytes int) ([]byte, error) {
	raw := strings.TrimSpace(StripDataURL(strings.TrimSpace(payload)))
	if raw == "" {
		return nil, nil
	}
	norm, err := NormalizeBase64(raw)
	if err != nil {
		return nil, err
	}
	// Cheap rejection before allocating the decoded buffer.
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(norm)) > maxBytes+2 {
		return nil, fmt.Errorf("%w: over %d bytes", ErrImageTooLarge, maxBytes)
	}
	b, err := base64.StdEncoding.DecodeString(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxBytes > 0 && len(b) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes over %d", ErrImageTooLarge, len(b), maxBytes)
	}
	return b, nil
}
