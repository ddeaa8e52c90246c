// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/promptmatch/internal/adapters/mq/queue"
	"github.com/okian/promptmatch/internal/adapters/mq/worker"
	"github.com/okian/promptmatch/internal/domain/embedcache"
	"github.com/okian/promptmatch/internal/domain/feedback"
	"github.com/okian/promptmatch/internal/domain/model"
	"github.com/okian/promptmatch/internal/domain/orchestrator"
	"github.com/okian/promptmatch/internal/domain/provider"
	"github.com/okian/promptmatch/internal/domain/scoring"
	"github.com/okian/promptmatch/internal/domain/seal"
	"github.com/okian/promptmatch/internal/domain/tier"
	"github.com/okian/promptmatch/internal/domain/types"
	"github.com/okian/promptmatch/pkg/logger"
	"github.com/okian/promptmatch/pkg/metrics"
)

const (
	defaultMaxImageBytes  = 1_500_000
	defaultRequestTimeout = 30 * time.Second
	defaultErrorLimit     = 200
	defaultGoldSecret     = "promptmatch-dev-secret"
	defaultWarmupQueue    = 256
	warmupWatchDebounce   = 500 * time.Millisecond
)

// Service scores prompts against targets.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider     provider.Embedder
	cache        embedcache.Cache
	fetcher      *embedcache.Fetcher
	orchestrator *orchestrator.Orchestrator
	shaper       *scoring.Shaper
	feedback     *feedback.Generator
	sealer       *seal.Sealer

	// Configuration
	policy          orchestrator.Policy
	rules           *tier.Table
	tips            feedback.Option
	goldSecret      string
	production      bool
	maxImageBytes   int
	requestTimeout  time.Duration
	errLimit        int
	cacheBackend    string
	warmupDir       string
	warmupWorkers   int
	warmupQueueSize int
	warmupWatch     bool

	// Warm-up
	warmupQueue *queue.InMemoryQueue
	warmupPool  *worker.Pool
	warmupScan  WarmupStatus
	warmupMu    sync.Mutex

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a Service. Scoring works immediately; Start only launches
// the background warm-up.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		policy:          orchestrator.DefaultPolicy(),
		goldSecret:      defaultGoldSecret,
		maxImageBytes:   defaultMaxImageBytes,
		requestTimeout:  defaultRequestTimeout,
		errLimit:        defaultErrorLimit,
		cacheBackend:    "memory",
		warmupWorkers:   runtime.NumCPU(),
		warmupQueueSize: defaultWarmupQueue,
		logger:          logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = embedcache.NewMemory()
	}

	sealer, err := seal.New(s.goldSecret)
	if err != nil {
		return nil, fmt.Errorf("gold secret: %w", err)
	}
	s.sealer = sealer

	s.fetcher = embedcache.NewFetcher(s.cache,
		embedcache.WithLogger(s.logger.Named("cache")),
		embedcache.WithComputeTimeout(jobTimeout(s.policy)),
	)
	s.orchestrator = orchestrator.New(s.provider, s.fetcher,
		orchestrator.WithPolicy(s.policy),
		orchestrator.WithLogger(s.logger.Named("orchestrator")),
		orchestrator.WithErrorLimit(s.errLimit),
	)

	var shapeOpts []scoring.Option
	var fbOpts []feedback.Option
	if s.rules != nil {
		shapeOpts = append(shapeOpts, scoring.WithRules(*s.rules))
		fbOpts = append(fbOpts, feedback.WithRules(*s.rules))
	}
	if s.tips != nil {
		fbOpts = append(fbOpts, s.tips)
	}
	s.shaper = scoring.NewShaper(shapeOpts...)
	s.feedback = feedback.NewGenerator(fbOpts...)
	return s, nil
}

// Start launches the warm-up pipeline when a directory is configured. It
// never blocks on the scan.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoring service...",
		logger.Bool("imageEmbedding", s.Capabilities().Image),
		logger.Bool("textEmbedding", s.Capabilities().Text),
		logger.String("cache", s.cacheBackend),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true
	s.startedAt = time.Now()

	if s.warmupDir != "" {
		if err := s.startWarmup(runCtx); err != nil {
			s.logger.Warn(ctx, "warm-up disabled", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "scoring service started")
	return nil
}

// Stop cancels background work and waits for warm-up workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	if s.cancel != nil {
		s.cancel()
	}
	if s.warmupPool != nil {
		_ = s.warmupPool.Shutdown(ctx)
	}
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "closing cache", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// Capabilities reports which embedding paths are configured.
func (s *Service) Capabilities() provider.Capabilities {
	return provider.CapabilitiesOf(s.provider)
}

// scoreInput is a validated request.
type scoreInput struct {
	tier   types.Tier
	target string
	label  string
	req    orchestrator.Request
}

// Validate checks a request without scoring it.
func (s *Service) Validate(req model.ScoreRequest) error {
	_, err := s.prepare(req)
	return err
}

func (s *Service) prepare(req model.ScoreRequest) (scoreInput, error) {
	var in scoreInput

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return in, invalid("prompt", "must not be empty")
	}

	t := types.Easy
	if strings.TrimSpace(req.Tier) != "" {
		parsed, err := types.ParseTier(req.Tier)
		if err != nil {
			return in, invalid("tier", "must be one of easy, medium, hard, advanced, expert")
		}
		t = parsed
	}

	if !req.HasTarget() {
		return in, invalid("target", "one of targetDescription, targetToken, targetImage or targetEmbedding is required")
	}

	target := strings.TrimSpace(req.TargetDescription)
	if tok := strings.TrimSpace(req.TargetToken); tok != "" {
		plain, err := s.sealer.Open(tok)
		if err != nil {
			return in, invalid("targetToken", "invalid gold token")
		}
		target = plain
	}

	targetImg, err := model.DecodeImage(req.TargetImage, s.maxImageBytes)
	if err != nil {
		return in, imageError("targetImage", err)
	}
	genImg, err := model.DecodeImage(req.GeneratedImage, s.maxImageBytes)
	if err != nil {
		return in, imageError("generatedImage", err)
	}

	label := req.LabelOr(target)

	in = scoreInput{
		tier:   t,
		target: target,
		label:  label,
		req: orchestrator.Request{
			Prompt:             prompt,
			TargetDescription:  target,
			TargetImage:        targetImg,
			GeneratedImage:     genImg,
			TargetEmbedding:    req.TargetEmbedding,
			GeneratedEmbedding: req.GeneratedEmbedding,
		},
	}
	return in, nil
}

func imageError(field string, err error) error {
	if errors.Is(err, model.ErrImageTooLarge) {
		return invalid(field, "image exceeds size limit")
	}
	return invalid(field, "not valid base64 image data")
}

// Score validates req, runs the similarity fallback chain and shapes the result.
// Once validation passes it always returns a result.
func (s *Service) Score(ctx context.Context, req model.ScoreRequest) (types.ScoreResult, error) {
	start := time.Now()
	in, err := s.prepare(req)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			metrics.RecordValidationError(ve.Field)
		}
		return types.ScoreResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	out := s.orchestrator.Run(ctx, in.req)

	shaped := s.shaper.Shape(scoring.Input{
		Similarity01: out.Result.Value01,
		Prompt:       in.req.Prompt,
		Label:        in.label,
		Tier:         in.tier,
	})
	fb := s.feedback.Generate(feedback.Input{
		Target: in.target,
		Label:  in.label,
		Prompt: in.req.Prompt,
		Score:  shaped.Score,
		Tier:   in.tier,
	})

	res := types.ScoreResult{
		AIScore:      shaped.Score,
		Similarity01: out.Result.Value01,
		Bonus:        shaped.Bonus,
		Penalty:      shaped.Penalty,
		ScoringMode:  out.Result.Mode,
		Feedback:     fb,
	}
	if !s.production && out.LastError != "" {
		res.ErrorMessage = orchestrator.Truncate(out.LastError, s.errLimit)
	}

	elapsed := time.Since(start)
	metrics.RecordScoreRequest(string(res.ScoringMode), in.tier.String())
	metrics.RecordScoreValue(in.tier.String(), res.AIScore)
	metrics.RecordScoringLatency(float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "scored prompt",
		logger.String("tier", in.tier.String()),
		logger.String("mode", string(res.ScoringMode)),
		logger.Int("score", res.AIScore),
		logger.Float64("similarity01", res.Similarity01),
		logger.Int("bonus", shaped.Bonus),
		logger.Int("penalty", shaped.Penalty),
		logger.Any("awarded", shaped.Awarded),
		logger.Int("attempts", len(out.Attempts)),
		logger.Duration("took", elapsed),
	)
	return res, nil
}

// Seal encrypts a target prompt into a gold token.
func (s *Service) Seal(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", invalid("text", "must not be empty")
	}
	return s.sealer.Seal(text)
}

// Reveal opens tokens in order. Invalid tokens yield nil entries.
func (s *Service) Reveal(_ context.Context, tokens []string) []*string {
	out := make([]*string, len(tokens))
	for i, tok := range tokens {
		plain, err := s.sealer.Open(tok)
		if err != nil {
			continue
		}
		out[i] = &plain
	}
	return out
}

// ClearCache drops every cached embedding.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.fetcher.Clear(ctx); err != nil {
		metrics.RecordErrorByComponent("embedcache", "clear")
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info(ctx, "embedding cache cleared")
	return nil
}

// Health is the readiness summary. It never includes secrets.
type Health struct {
	Status       string                `json:"status"`
	Environment  string                `json:"environment"`
	Providers    provider.Capabilities `json:"providers"`
	CacheBackend string                `json:"cacheBackend"`
	Started      bool                  `json:"started"`
}

// Health reports which scoring paths are reachable.
func (s *Service) Health(_ context.Context) Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env := "development"
	if s.production {
		env = "production"
	}
	return Health{
		Status:       "ok",
		Environment:  env,
		Providers:    s.Capabilities(),
		CacheBackend: s.cacheBackend,
		Started:      s.started,
	}
}

// Stats is a monitoring snapshot.
type Stats struct {
	Started       bool          `json:"started"`
	UptimeSeconds float64       `json:"uptimeSeconds"`
	CacheBackend  string        `json:"cacheBackend"`
	CacheEntries  int           `json:"cacheEntries"`
	CacheHits     int64         `json:"cacheHits,omitempty"`
	CacheMisses   int64         `json:"cacheMisses,omitempty"`
	Warmup        *WarmupStatus `json:"warmup,omitempty"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Started: s.started, CacheBackend: s.cacheBackend}
	if s.started {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	if n, err := s.cache.Len(ctx); err == nil {
		st.CacheEntries = n
		metrics.UpdateCacheSize(n)
	} else {
		s.logger.Warn(ctx, "cache size unavailable", logger.Error(err))
	}
	if m, ok := s.cache.(*embedcache.Memory); ok {
		st.CacheHits, st.CacheMisses = m.Stats()
	}
	if s.warmupPool != nil {
		w := s.warmupStatus()
		st.Warmup = &w
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return st
}
