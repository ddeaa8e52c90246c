// Package openai embeds text through any OpenAI-compatible embeddings API
// using the eino embedding component.
package openai

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	openaiembedding "github.com/cloudwego/eino-ext/components/embedding/openai"

	"github.com/okian/promptmatch/internal/domain/provider"
)

// ErrUnsupported is wrapped when an image is offered to a text-only embedder.
var ErrUnsupported = errors.New("image embeddings not supported")

// Upstream client errors only expose the status in their message.
var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// Config selects the endpoint and model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Embedder adapts an eino embedder to the provider contract. Text only.
type Embedder struct {
	inner embedding.Embedder
}

var _ provider.Embedder = (*Embedder)(nil)

// New builds an embedder backed by the OpenAI embeddings endpoint.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	inner, err := openaiembedding.NewEmbedder(ctx, &openaiembedding.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	return Wrap(inner), nil
}

// Wrap adapts any eino embedder.
func Wrap(inner embedding.Embedder) *Embedder {
	return &Embedder{inner: inner}
}

// Capabilities reports text only.
func (e *Embedder) Capabilities() provider.Capabilities {
	return provider.Capabilities{Text: true}
}

// EmbedImage always fails permanently.
func (e *Embedder) EmbedImage(context.Context, []byte) ([]float32, error) {
	return nil, provider.Permanent("openai embed image", ErrUnsupported)
}

// EmbedText embeds a single string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	const op = "openai embed text"
	if strings.TrimSpace(text) == "" {
		return nil, provider.Permanent(op, errors.New("empty text"))
	}
	vecs, err := e.inner.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, classify(op, err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, provider.Parse(op, provider.ErrEmptyEmbedding)
	}
	return provider.Float32(vecs[0]), nil
}

func classify(op string, err error) error {
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		fe := provider.FromStatus(op, code, 0, "")
		var pe *provider.Error
		if errors.As(fe, &pe) {
			pe.Err = err
		}
		return fe
	}
	if provider.IsRetryable(err) {
		return provider.Transient(op, err)
	}
	return provider.Permanent(op, err)
}
