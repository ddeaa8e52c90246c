// Package orchestrator runs the similarity fallback chain:
// image embeddings, then text embeddings, then lexical overlap.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/promptmatch/internal/domain/embedcache"
	"github.com/okian/promptmatch/internal/domain/provider"
	"github.com/okian/promptmatch/internal/domain/similarity"
	"github.com/okian/promptmatch/internal/domain/types"
	"github.com/okian/promptmatch/pkg/logger"
	"github.com/okian/promptmatch/pkg/metrics"
)

const (
	defaultErrorLimit = 200
	tracerName        = "github.com/okian/promptmatch/internal/domain/orchestrator"
)

// Step outcomes recorded per attempt.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Request is everything the chain may use. Precomputed embeddings take
// precedence over raw images for the same side.
type Request struct {
	Prompt             string
	TargetDescription  string
	TargetImage        []byte
	GeneratedImage     []byte
	TargetEmbedding    []float32
	GeneratedEmbedding []float32
}

// Attempt records one visited state.
type Attempt struct {
	State    State
	Outcome  string
	Error    string
	Duration time.Duration
}

// Outcome is the result of a run. Result.Mode is always valid.
type Outcome struct {
	Result   types.SimilarityResult
	Attempts []Attempt
	// LastError is the most recent failure, truncated. Empty when nothing failed.
	LastError string
}

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the timeout and retry policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTracer sets the tracer used for per-step spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithErrorLimit bounds LastError in runes.
func WithErrorLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.errLimit = n
		}
	}
}

// Orchestrator is safe for concurrent use; the only shared state is the cache.
type Orchestrator struct {
	provider provider.Embedder
	fetcher  *embedcache.Fetcher
	policy   Policy
	log      logger.Logger
	tracer   trace.Tracer
	errLimit int
}

// New builds an orchestrator. A nil provider makes both embedding steps unavailable.
func New(p provider.Embedder, f *embedcache.Fetcher, opts ...Option) *Orchestrator {
	if p == nil {
		p = provider.Split{}
	}
	if f == nil {
		f = embedcache.NewFetcher(embedcache.NewMemory())
	}
	o := &Orchestrator{
		provider: p,
		fetcher:  f,
		policy:   DefaultPolicy(),
		log:      logger.Nop(),
		tracer:   otel.Tracer(tracerName),
		errLimit: defaultErrorLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run walks the chain until a step succeeds. It never fails: the lexical step
// is total and runs even when ctx is already done.
func (o *Orchestrator) Run(ctx context.Context, req Request) Outcome {
	var out Outcome
	for state := TryImageEmbedding; state != Done; {
		start := time.Now()
		value, err := o.runStep(ctx, state, req)
		att := Attempt{State: state, Duration: time.Since(start)}

		switch {
		case err == nil:
			att.Outcome = OutcomeOK
			out.Result = types.SimilarityResult{Value01: value, Mode: modeOf(state)}
		case errors.Is(err, provider.ErrUnavailable):
			att.Outcome = OutcomeSkipped
		default:
			att.Outcome = OutcomeFailed
			att.Error = Truncate(fmt.Sprintf("%s: %v", state, err), o.errLimit)
			out.LastError = att.Error
			metrics.RecordErrorByComponent("orchestrator", provider.Classify(err).String())
			o.log.Warn(ctx, "similarity step failed",
				logger.String("state", state.String()),
				logger.String("kind", provider.Classify(err).String()),
				logger.String("error", att.Error),
			)
		}
		metrics.RecordOrchestratorStep(state.String(), att.Outcome)
		out.Attempts = append(out.Attempts, att)
		state = Next(state, err == nil)
	}
	return out
}

func (o *Orchestrator) runStep(ctx context.Context, state State, req Request) (float64, error) {
	if state == LexicalFallback {
		return similarity.Lexical(req.Prompt, req.TargetDescription), nil
	}
	if err := o.available(state, req); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		// Deadline already gone: abandon embeddings and fall through to lexical.
		return 0, provider.Transient(state.String(), err)
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator."+state.String())
	defer span.End()

	var (
		v   float64
		err error
	)
	switch state {
	case TryImageEmbedding:
		v, err = o.imageSimilarity(ctx, req)
	case TryTextEmbedding:
		v, err = o.textSimilarity(ctx, req)
	default:
		err = fmt.Errorf("unexpected state %s", state)
	}

	span.SetAttributes(attribute.String("step", state.String()))
	switch {
	case err == nil:
		span.SetAttributes(attribute.Float64("similarity01", v))
	case errors.Is(err, provider.ErrUnavailable):
		span.SetAttributes(attribute.Bool("skipped", true))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, provider.Classify(err).String())
	}
	return v, err
}

// available reports ErrUnavailable for an embedding step whose inputs or
// provider path are missing. It never looks at ctx.
func (o *Orchestrator) available(state State, req Request) error {
	switch state {
	case TryImageEmbedding:
		targetReady := len(req.TargetEmbedding) > 0 || len(req.TargetImage) > 0
		genReady := len(req.GeneratedEmbedding) > 0 || len(req.GeneratedImage) > 0
		if !targetReady || !genReady {
			return provider.Unavailable("image step: missing image")
		}
		needsProvider := len(req.TargetEmbedding) == 0 || len(req.GeneratedEmbedding) == 0
		if needsProvider && !provider.CapabilitiesOf(o.provider).Image {
			return provider.Unavailable("image step: provider not configured")
		}
	case TryTextEmbedding:
		if req.Prompt == "" || req.TargetDescription == "" {
			return provider.Unavailable("text step: missing text")
		}
		if !provider.CapabilitiesOf(o.provider).Text {
			return provider.Unavailable("text step: provider not configured")
		}
	}
	return nil
}

func (o *Orchestrator) imageSimilarity(ctx context.Context, req Request) (float64, error) {
	var target, generated []float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		target, err = o.resolveImage(gctx, req.TargetEmbedding, req.TargetImage)
		return err
	})
	g.Go(func() (err error) {
		generated, err = o.resolveImage(gctx, req.GeneratedEmbedding, req.GeneratedImage)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return similarity.ToUnit(similarity.Cosine(target, generated)), nil
}

func (o *Orchestrator) resolveImage(ctx context.Context, pre []float32, raw []byte) ([]float32, error) {
	if len(pre) > 0 {
		return pre, nil
	}
	return o.fetch(ctx, embedcache.Key(embedcache.KindImage, raw), "image", func(c context.Context) ([]float32, error) {
		return o.provider.EmbedImage(c, raw)
	})
}

func (o *Orchestrator) textSimilarity(ctx context.Context, req Request) (float64, error) {
	var p, d []float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = o.resolveText(gctx, req.Prompt)
		return err
	})
	g.Go(func() (err error) {
		d, err = o.resolveText(gctx, req.TargetDescription)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return similarity.ToUnit(similarity.Cosine(p, d)), nil
}

func (o *Orchestrator) resolveText(ctx context.Context, text string) ([]float32, error) {
	return o.fetch(ctx, embedcache.Key(embedcache.KindText, []byte(text)), "text", func(c context.Context) ([]float32, error) {
		return o.provider.EmbedText(c, text)
	})
}

// WarmImage embeds image into the cache ahead of any request, using the same
// retry policy as scoring. cached reports whether the entry already existed.
func (o *Orchestrator) WarmImage(ctx context.Context, image []byte) (cached bool, err error) {
	if len(image) == 0 {
		return false, provider.Permanent("warm image", errors.New("empty image"))
	}
	if !provider.CapabilitiesOf(o.provider).Image {
		return false, provider.Unavailable("warm image")
	}
	_, hit, err := o.fetcher.Fetch(ctx, embedcache.Key(embedcache.KindImage, image), func(c context.Context) ([]float32, error) {
		return o.call(c, "image", func(cc context.Context) ([]float32, error) {
			return o.provider.EmbedImage(cc, image)
		})
	})
	return hit, err
}

// fetch goes through the cache and applies the retry policy on a miss.
func (o *Orchestrator) fetch(ctx context.Context, key, kind string, embed func(context.Context) ([]float32, error)) ([]float32, error) {
	v, _, err := o.fetcher.Fetch(ctx, key, func(c context.Context) ([]float32, error) {
		return o.call(c, kind, embed)
	})
	if errors.Is(err, embedcache.ErrCorrupt) {
		return nil, provider.Permanent("cache", err)
	}
	return v, err
}

// call runs embed with a per-attempt timeout, retrying transient failures only.
func (o *Orchestrator) call(ctx context.Context, kind string, embed func(context.Context) ([]float32, error)) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= o.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordProviderRetry(kind)
			if err := sleepCtx(ctx, o.policy.Backoff(attempt-1, lastErr)); err != nil {
				return nil, lastErr
			}
		}

		actx, cancel := o.attemptContext(ctx)
		start := time.Now()
		v, err := embed(actx)
		cancel()
		metrics.RecordProviderLatency(kind, float64(time.Since(start).Milliseconds()))

		if err == nil && len(v) == 0 {
			err = provider.Parse("embed "+kind, provider.ErrEmptyEmbedding)
		}
		if err == nil {
			metrics.RecordProviderCall(kind, OutcomeOK)
			return v, nil
		}
		metrics.RecordProviderCall(kind, provider.Classify(err).String())
		lastErr = err
		if !provider.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		o.log.Debug(ctx, "retrying embedding call",
			logger.String("kind", kind),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return nil, lastErr
}

func (o *Orchestrator) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.policy.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.policy.Timeout)
}

func modeOf(s State) types.ScoringMode {
	switch s {
	case TryImageEmbedding:
		return types.ModeImageEmbedding
	case TryTextEmbedding:
		return types.ModeTextEmbedding
	default:
		return types.ModeLexicalFallback
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
