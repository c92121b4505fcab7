// Command ratelimitd runs the per-IP admission controller as a standalone
// HTTP service: a token-bucket rate limiter with grace windows, malicious
// pattern screening, block windows, and post-response cost adjustment in
// front of a minimal demo API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cavebatsofware/rate-limiter/internal/actioncheck"
	"github.com/cavebatsofware/rate-limiter/internal/api"
	"github.com/cavebatsofware/rate-limiter/internal/config"
	"github.com/cavebatsofware/rate-limiter/internal/logger"
	"github.com/cavebatsofware/rate-limiter/internal/models"
	"github.com/cavebatsofware/rate-limiter/internal/observability"
	"github.com/cavebatsofware/rate-limiter/internal/ratelimit"
	"github.com/cavebatsofware/rate-limiter/internal/screener"
	"github.com/cavebatsofware/rate-limiter/internal/version"

	"github.com/prometheus/client_golang/prometheus"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ver := version.GetInfo()

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		slog.Error("failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown observability", "error", err)
		}
	}()

	checker, err := initializeActionChecker(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize action checker", "error", err)
		os.Exit(1)
	}
	defer checker.Close()

	var activeChecker actioncheck.Checker = checker
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedActionChecker(checker)
		if err != nil {
			slog.Error("failed to instrument action checker", "error", err)
			os.Exit(1)
		}
		activeChecker = instrumented
	}

	screen, err := screener.New(screener.Config{
		PathPatterns:      cfg.Security.Screening.PathPatterns,
		UserAgentPatterns: cfg.Security.Screening.UserAgentPatterns,
	})
	if err != nil {
		slog.Error("failed to compile pattern screener", "error", err)
		os.Exit(1)
	}
	if !cfg.Security.Screening.Enabled {
		screen, _ = screener.New(screener.Config{})
	}

	rateCfg := ratelimit.DefaultRateConfig().
		WithRatePerMinute(cfg.Security.RateLimit.RequestsPerMinute).
		WithBlockDuration(cfg.Security.RateLimit.BlockDuration).
		WithGracePeriod(cfg.Security.RateLimit.GracePeriod).
		WithCacheRefundRatio(cfg.Security.RateLimit.CacheRefundRatio).
		WithErrorPenalty(cfg.Security.RateLimit.ErrorPenalty)

	evictAfter := cfg.Security.RateLimit.BucketEvictAfter
	if evictAfter <= 0 {
		evictAfter = 30 * time.Minute
	}
	registry := ratelimit.NewBucketRegistry(rateCfg, evictAfter)
	cleanupInterval := cfg.Security.RateLimit.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	registry.StartCleanup(cleanupInterval)
	defer registry.Stop()

	resolver, err := resolveIpStrategy(cfg.Security.IpResolver)
	if err != nil {
		slog.Error("failed to configure ip resolver", "error", err)
		os.Exit(1)
	}

	callbacks := ratelimit.Callbacks{
		OnBlocked: ratelimit.OnBlockedFunc(func(ctx context.Context, ip, path string, sc *ratelimit.SecurityContext) {
			slog.Warn("request blocked", "ip", ip, "path", path)
		}),
		ActionChecker: activeChecker,
	}

	var rateLimitMetrics *observability.RateLimitMetrics
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		rateLimitMetrics = observability.NewRateLimitMetrics(prometheus.DefaultRegisterer)

		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	engineOpts := []ratelimit.EngineOption{}
	adjusterOpts := []ratelimit.AdjusterOption{}
	// metricsRecorder stays an untyped nil interface when metrics are
	// disabled: passing the *observability.RateLimitMetrics nil pointer
	// directly would produce a non-nil MetricsRecorder interface value,
	// defeating the nil checks in the ratelimit package.
	var metricsRecorder ratelimit.MetricsRecorder
	if rateLimitMetrics != nil {
		metricsRecorder = rateLimitMetrics
		engineOpts = append(engineOpts, ratelimit.WithMetrics(metricsRecorder))
		adjusterOpts = append(adjusterOpts, ratelimit.WithAdjusterMetrics(metricsRecorder))
	}

	engine := ratelimit.NewAdmissionEngine(registry, screen, rateCfg, resolver, callbacks, engineOpts...)
	adjuster := ratelimit.NewPostResponseAdjuster(registry, rateCfg, adjusterOpts...)

	handlers := api.NewHandlers(activeChecker)

	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	// Per spec, rate_limit_middleware (admission only) wraps
	// security_context_middleware (context attach + post-response
	// adjustment), which wraps the handler.
	rateLimitMiddleware := ratelimit.RateLimitMiddleware(engine, 0)
	securityMiddleware := ratelimit.SecurityContextMiddleware(resolver, adjuster, metricsRecorder)

	router := api.SetupRoutes(handlers, chainMiddleware(rateLimitMiddleware, securityMiddleware), routeOpts...)

	if cfg.Metrics.Enabled {
		stopGauges := make(chan struct{})
		defer close(stopGauges)
		go reportBucketGauges(registry, rateLimitMetrics, stopGauges)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", server.Addr)

		var err error
		if cfg.Server.TLSEnabled {
			if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
				slog.Error("TLS is enabled but cert file or key file is not specified")
				os.Exit(1)
			}
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server shutdown complete")
}

// initializeActionChecker builds the backend named by cfg.Security.ActionCheck.
func initializeActionChecker(ctx context.Context, cfg *models.Config) (actioncheck.Checker, error) {
	ac := cfg.Security.ActionCheck
	factory := actioncheck.NewFactory()
	return factory.Create(ctx, actioncheck.Config{
		Type:            ac.Type,
		Path:            ac.Path,
		DSN:             ac.DSN,
		RedisAddr:       ac.RedisAddr,
		RedisPassword:   ac.RedisPassword,
		RedisDB:         ac.RedisDB,
		RedisKeyPrefix:  ac.RedisKeyPrefix,
		CleanupInterval: ac.CleanupInterval,
		MaxAge:          ac.MaxAge,
		FlushInterval:   ac.FlushInterval,
	})
}

// resolveIpStrategy builds the configured IpResolver from its strategy name.
func resolveIpStrategy(cfg models.IpResolverConfig) (ratelimit.IpResolver, error) {
	switch cfg.Strategy {
	case models.IpResolverXForwardedFor:
		return ratelimit.XForwardedFor(), nil
	case models.IpResolverXRealIP:
		return ratelimit.XRealIP(), nil
	case models.IpResolverCloudflare:
		return ratelimit.Cloudflare(), nil
	case models.IpResolverCustomHeader:
		return ratelimit.CustomHeader(cfg.HeaderName), nil
	case models.IpResolverSocketAddr:
		return ratelimit.NewSocketAddrResolver(), nil
	default:
		return nil, fmt.Errorf("unsupported ip resolver strategy: %s", cfg.Strategy)
	}
}

// chainMiddleware composes RateLimitMiddleware and SecurityContextMiddleware
// into the single mux.MiddlewareFunc SetupRoutes expects: rateLimit performs
// admission and wraps security, which attaches the SecurityContext (reusing
// the one admission built) and runs post-response adjustment next to the
// handler.
func chainMiddleware(rateLimit, security func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return rateLimit(security(next))
	}
}

// reportBucketGauges periodically publishes the registry's live bucket
// count and blocked-IP count to the cache-size and blocked-IPs gauges,
// until stop is closed.
func reportBucketGauges(registry *ratelimit.BucketRegistry, metrics *observability.RateLimitMetrics, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateCacheSize(registry.Size())
			metrics.UpdateBlockedIPs(registry.BlockedCount(time.Now()))
		case <-stop:
			return
		}
	}
}
