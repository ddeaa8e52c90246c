package service

import (
	"time"

	"github.com/okian/promptmatch/internal/domain/embedcache"
	"github.com/okian/promptmatch/internal/domain/feedback"
	"github.com/okian/promptmatch/internal/domain/orchestrator"
	"github.com/okian/promptmatch/internal/domain/provider"
	"github.com/okian/promptmatch/internal/domain/tier"
	"github.com/okian/promptmatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the embedding provider. Without one only lexical scoring runs.
func WithProvider(p provider.Embedder) Option {
	return func(s *Service) { s.provider = p }
}

// WithCache sets the embedding cache backend.
func WithCache(c embedcache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheBackend names the backend for health output.
func WithCacheBackend(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.cacheBackend = name
		}
	}
}

// WithPolicy sets the provider timeout and retry policy.
func WithPolicy(p orchestrator.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithGoldSecret sets the secret used to seal target prompts.
func WithGoldSecret(secret string) Option {
	return func(s *Service) {
		if secret != "" {
			s.goldSecret = secret
		}
	}
}

// WithProduction hides diagnostics from callers.
func WithProduction(v bool) Option {
	return func(s *Service) { s.production = v }
}

// WithMaxImageBytes sets the decoded image ceiling.
func WithMaxImageBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// WithRequestTimeout bounds a whole score request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithErrorLimit bounds errorMessage in runes.
func WithErrorLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.errLimit = n
		}
	}
}

// WithRules overrides the tier table for both shaping and feedback.
func WithRules(t tier.Table) Option {
	return func(s *Service) { s.rules = &t }
}

// WithTips overrides the generic tip pool.
func WithTips(tips []string) Option {
	return func(s *Service) { s.tips = feedback.WithTips(tips) }
}

// WithWarmup scans dir for target images at Start.
func WithWarmup(dir string, workers, queueSize int) Option {
	return func(s *Service) {
		s.warmupDir = dir
		if workers > 0 {
			s.warmupWorkers = workers
		}
		if queueSize > 0 {
			s.warmupQueueSize = queueSize
		}
	}
}

// WithWarmupWatch keeps watching the warm-up directory after the first scan.
func WithWarmupWatch(v bool) Option {
	return func(s *Service) { s.warmupWatch = v }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
