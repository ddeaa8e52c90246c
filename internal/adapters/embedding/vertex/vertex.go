// Package vertex embeds images and text with the Vertex AI multimodal
// embedding model over its REST predict endpoint.
package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/okian/promptmatch/internal/domain/provider"
	"github.com/okian/promptmatch/pkg/logger"
)

const (
	// Scope requested for the service account token.
	Scope = "https://www.googleapis.com/auth/cloud-platform"

	defaultLocation = "us-central1"
	defaultModel    = "multimodalembedding@001"
	maxBodySnippet  = 200
	maxResponseSize = 8 << 20
)

// Client calls the predict endpoint, one instance per request.
// Retries are left to the caller.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   oauth2.TokenSource
	log      logger.Logger
}

var _ provider.Embedder = (*Client)(nil)

// Option applies a configuration option to the Client.
type Option func(*config)

type config struct {
	project     string
	location    string
	model       string
	endpoint    string
	credentials []byte
	tokens      oauth2.TokenSource
	httpClient  *http.Client
	log         logger.Logger
}

// WithProject sets the GCP project.
func WithProject(id string) Option { return func(c *config) { c.project = id } }

// WithLocation sets the region, us-central1 by default.
func WithLocation(loc string) Option {
	return func(c *config) {
		if loc != "" {
			c.location = loc
		}
	}
}

// WithModel sets the publisher model, multimodalembedding@001 by default.
func WithModel(m string) Option {
	return func(c *config) {
		if m != "" {
			c.model = m
		}
	}
}

// WithCredentialsJSON sets the service account key.
func WithCredentialsJSON(b []byte) Option { return func(c *config) { c.credentials = b } }

// WithTokenSource bypasses credential parsing.
func WithTokenSource(ts oauth2.TokenSource) Option { return func(c *config) { c.tokens = ts } }

// WithEndpoint overrides the full predict URL.
func WithEndpoint(url string) Option { return func(c *config) { c.endpoint = url } }

// WithHTTPClient sets the HTTP client. Its transport is wrapped for tracing.
func WithHTTPClient(h *http.Client) Option { return func(c *config) { c.httpClient = h } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a Client. Without WithEndpoint a project ID is required; without
// WithTokenSource service account credentials are required.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := config{location: defaultLocation, model: defaultModel, log: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	endpoint := cfg.endpoint
	if endpoint == "" {
		if cfg.project == "" {
			return nil, ErrNoProject
		}
		endpoint = fmt.Sprintf(
			"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
			cfg.location, cfg.project, cfg.location, cfg.model,
		)
	}

	ts := cfg.tokens
	if ts == nil {
		if len(cfg.credentials) == 0 {
			return nil, ErrNoCredentials
		}
		creds, err := google.CredentialsFromJSON(ctx, cfg.credentials, Scope)
		if err != nil {
			return nil, fmt.Errorf("vertex credentials: %w", err)
		}
		ts = creds.TokenSource
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	traced := *hc
	traced.Transport = otelhttp.NewTransport(base)

	return &Client{
		endpoint: endpoint,
		http:     &traced,
		tokens:   oauth2.ReuseTokenSource(nil, ts),
		log:      cfg.log,
	}, nil
}

// Capabilities reports both paths; the multimodal model embeds images and text.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Image: true, Text: true}
}

type imageInstance struct {
	Image struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"image"`
}

type textInstance struct {
	Text string `json:"text"`
}

type predictRequest struct {
	Instances []any `json:"instances"`
}

// EmbedImage embeds raw image bytes.
func (c *Client) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	const op = "vertex embed image"
	if len(image) == 0 {
		return nil, provider.Permanent(op, errors.New("empty image"))
	}
	var inst imageInstance
	inst.Image.BytesBase64Encoded = base64.StdEncoding.EncodeToString(image)
	body, err := c.predict(ctx, op, predictRequest{Instances: []any{inst}})
	if err != nil {
		return nil, err
	}
	vec, err := parseVector(body, imagePaths)
	if err != nil {
		return nil, provider.Parse(op, err)
	}
	return vec, nil
}

// EmbedText embeds a short text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	const op = "vertex embed text"
	if strings.TrimSpace(text) == "" {
		return nil, provider.Permanent(op, errors.New("empty text"))
	}
	body, err := c.predict(ctx, op, predictRequest{Instances: []any{textInstance{Text: text}}})
	if err != nil {
		return nil, err
	}
	vec, err := parseVector(body, textPaths)
	if err != nil {
		return nil, provider.Parse(op, err)
	}
	return vec, nil
}

func (c *Client) predict(ctx context.Context, op string, req predictRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, provider.Permanent(op, err)
	}
	tok, err := c.tokens.Token()
	if err != nil {
		// Token endpoint failures are usually network blips.
		return nil, provider.Transient(op, fmt.Errorf("access token: %w", err))
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, provider.Permanent(op, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(hreq)

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, provider.Transient(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, provider.Transient(op, fmt.Errorf("read body: %w", err))
	}
	c.log.Debug(ctx, "vertex predict",
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.FromStatus(op, resp.StatusCode, retryAfter(resp.Header.Get("Retry-After")), snippet(body))
	}
	if !json.Valid(body) {
		return nil, provider.Parse(op, fmt.Errorf("invalid json: %s", snippet(body)))
	}
	return body, nil
}

// retryAfter reads delta-seconds or an HTTP date.
func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxBodySnippet {
		s = s[:maxBodySnippet]
	}
	return s
}
