package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxErrorBody caps how much of an error body ends up in a message.
const maxErrorBody = 256

// scoreRequest mirrors the POST /score body.
type scoreRequest struct {
	Prompt            string `json:"prompt"`
	Tier              string `json:"tier"`
	TargetDescription string `json:"targetDescription,omitempty"`
	TargetToken       string `json:"targetToken,omitempty"`
}

type feedback struct {
	Note string `json:"note"`
	Tip  string `json:"tip"`
}

// scoreResponse mirrors the POST /score result.
type scoreResponse struct {
	AIScore      int      `json:"aiScore"`
	Similarity01 float64  `json:"similarity01"`
	Bonus        int      `json:"bonus"`
	Penalty      int      `json:"penalty"`
	ScoringMode  string   `json:"scoringMode"`
	Feedback     feedback `json:"feedback"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// client is a thin JSON client for the scoring API.
type client struct {
	base  string
	runID string
	http  *http.Client
}

func newClient(base, runID string, timeout time.Duration) *client {
	return &client{
		base:  base,
		runID: runID,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// do sends body (if any) and decodes a 2xx JSON response into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", c.runID+"-"+uuid.NewString()[:8])

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return fmt.Errorf("%w: %s %s: %d %s", ErrStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *client) seal(ctx context.Context, text string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/seal", map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *client) score(ctx context.Context, req scoreRequest) (scoreResponse, error) {
	var out scoreResponse
	err := c.do(ctx, http.MethodPost, "/score", req, &out)
	return out, err
}
