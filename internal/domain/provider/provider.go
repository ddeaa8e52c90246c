// Package provider defines the embedding provider contract consumed by the
// fallback orchestrator, plus small composable wrappers.
package provider

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Embedder turns images or text into vectors. Errors should be classified with
// the constructors in this package; unclassified errors count as permanent.
type Embedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Capabilities reports which embedding paths are configured.
type Capabilities struct {
	Image bool `json:"image"`
	Text  bool `json:"text"`
}

type capable interface {
	Capabilities() Capabilities
}

// CapabilitiesOf asks e what it can do. Embedders that do not say are assumed capable of both.
func CapabilitiesOf(e Embedder) Capabilities {
	if e == nil {
		return Capabilities{}
	}
	if c, ok := e.(capable); ok {
		return c.Capabilities()
	}
	return Capabilities{Image: true, Text: true}
}

// Split routes images and text to different embedders. A nil side is unavailable.
type Split struct {
	Image Embedder
	Text  Embedder
}

var _ Embedder = Split{}

func (s Split) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if s.Image == nil {
		return nil, Unavailable("embed image")
	}
	return s.Image.EmbedImage(ctx, image)
}

func (s Split) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if s.Text == nil {
		return nil, Unavailable("embed text")
	}
	return s.Text.EmbedText(ctx, text)
}

func (s Split) Capabilities() Capabilities {
	return Capabilities{
		Image: s.Image != nil && CapabilitiesOf(s.Image).Image,
		Text:  s.Text != nil && CapabilitiesOf(s.Text).Text,
	}
}

// Limited throttles an embedder with a token bucket shared by both paths.
type Limited struct {
	next    Embedder
	limiter *rate.Limiter
}

var _ Embedder = (*Limited)(nil)

// NewLimited allows rps calls per second with the given burst. rps <= 0 returns next unchanged.
func NewLimited(next Embedder, rps float64, burst int) Embedder {
	if rps <= 0 || next == nil {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *Limited) wait(ctx context.Context, op string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		// Wait fails when the deadline would pass before a token is free.
		return Transient(op, fmt.Errorf("rate limited: %w", err))
	}
	return nil
}

func (l *Limited) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if err := l.wait(ctx, "embed image"); err != nil {
		return nil, err
	}
	return l.next.EmbedImage(ctx, image)
}

func (l *Limited) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := l.wait(ctx, "embed text"); err != nil {
		return nil, err
	}
	return l.next.EmbedText(ctx, text)
}

func (l *Limited) Capabilities() Capabilities { return CapabilitiesOf(l.next) }

// Float32 narrows a float64 vector.
func Float32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
