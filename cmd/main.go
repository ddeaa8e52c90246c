package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/promptmatch/internal/adapters/cache/rediscache"
	"github.com/okian/promptmatch/internal/adapters/embedding/openai"
	"github.com/okian/promptmatch/internal/adapters/embedding/vertex"
	"github.com/okian/promptmatch/internal/adapters/http/api"
	"github.com/okian/promptmatch/internal/adapters/http/swagger"
	service "github.com/okian/promptmatch/internal/app"
	"github.com/okian/promptmatch/internal/config"
	"github.com/okian/promptmatch/internal/domain/embedcache"
	"github.com/okian/promptmatch/internal/domain/orchestrator"
	"github.com/okian/promptmatch/internal/domain/provider"
	"github.com/okian/promptmatch/pkg/logger"
	"github.com/okian/promptmatch/pkg/metrics"
	"github.com/okian/promptmatch/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeoutSlack     = 5 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	serviceName           = "promptmatch"
)

var version = "dev"

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	shutdownTracing, err := tracing.Init(ctx,
		tracing.WithEnabled(cfg.TracingEnabled),
		tracing.WithService(serviceName),
		tracing.WithEnvironment(cfg.Environment),
		tracing.WithVersion(version),
		tracing.WithOTLPEndpoint(cfg.TracingEndpoint, cfg.TracingInsecure),
		tracing.WithSampleRatio(cfg.TracingSampleRatio),
	)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		svc.Stop()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RequestTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("environment", cfg.Environment),
			logger.Bool("image_embeddings", svc.Capabilities().Image),
			logger.Bool("text_embeddings", svc.Capabilities().Text),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService assembles the scoring service from configuration.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	emb, err := buildProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	cache, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	policy := orchestrator.DefaultPolicy()
	policy.Timeout = cfg.ProviderTimeout()
	policy.MaxRetries = cfg.ProviderMaxRetries
	policy.BaseDelay = cfg.RetryBaseDelay()
	policy.MaxDelay = cfg.RetryMaxDelay()

	svc, err := service.New(
		service.WithLogger(log.Named("service")),
		service.WithProvider(emb),
		service.WithCache(cache),
		service.WithCacheBackend(cfg.CacheBackend),
		service.WithPolicy(policy),
		service.WithGoldSecret(cfg.GoldSecret),
		service.WithProduction(cfg.IsProduction()),
		service.WithMaxImageBytes(cfg.MaxImageBytes),
		service.WithRequestTimeout(cfg.RequestTimeout()),
		service.WithErrorLimit(cfg.ErrorMessageLimit),
		service.WithWarmup(cfg.WarmupDir, cfg.WarmupWorkers, cfg.WarmupQueueSize),
		service.WithWarmupWatch(cfg.WarmupWatch),
	)
	if err != nil {
		if c, ok := cache.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("new service: %w", err)
	}
	return svc, nil
}

// buildProvider wires Vertex for images (and text unless another text
// provider is chosen). Missing credentials leave a path unavailable rather
// than failing startup.
func buildProvider(ctx context.Context, cfg *config.Config, log logger.Logger) (provider.Embedder, error) {
	var split provider.Split

	if cfg.ImageEmbeddingEnabled() {
		vc, err := vertex.New(ctx,
			vertex.WithProject(cfg.VertexProjectID),
			vertex.WithLocation(cfg.VertexLocation),
			vertex.WithModel(cfg.VertexModel),
			vertex.WithCredentialsJSON(cfg.VertexCredentials()),
			vertex.WithLogger(log.Named("vertex")),
		)
		if err != nil {
			return nil, fmt.Errorf("vertex: %w", err)
		}
		split.Image = vc
		if cfg.TextProvider == config.TextProviderVertex {
			split.Text = vc
		}
	} else {
		log.Warn(ctx, "vertex credentials not configured; image embeddings disabled")
	}

	if cfg.TextProvider == config.TextProviderOpenAI {
		oe, err := openai.New(ctx, openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		split.Text = oe
	}

	return provider.NewLimited(split, cfg.ProviderRateLimit, cfg.ProviderBurst), nil
}

func buildCache(ctx context.Context, cfg *config.Config) (embedcache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		c, err := rediscache.Dial(ctx, cfg.RedisAddr,
			rediscache.WithPrefix(cfg.RedisPrefix),
			rediscache.WithTTL(time.Duration(cfg.RedisTTLSeconds)*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return embedcache.NewMemory(embedcache.WithMaxEntries(cfg.CacheMaxEntries)), nil
	}
}

// newHandler registers every route and wraps the mux with request ids and tracing.
func newHandler(ctx context.Context, svc api.Dependencies) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return otelhttp.NewHandler(api.RequestIDMiddleware(mux), serviceName)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
