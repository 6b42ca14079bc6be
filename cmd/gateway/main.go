package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ufcstats-gateway/internal/logging"
	"ufcstats-gateway/middleware/httplog"
	"ufcstats-gateway/middleware/ratelimit"
	"ufcstats-gateway/middleware/ratelimit/domain"
	"ufcstats-gateway/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := loadConfig(os.Getenv("GATEWAY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.ServiceName, cfg.Env)

	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		logger.Error("invalid upstream url", slog.Any("error", err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stats := infra.MultiStatsStore{infra.NewPrometheusStatsStore(registry)}
	if cfg.Stats.Redis.Addr != "" {
		rdb, err := connectRedis(cfg.Stats.Redis)
		if err != nil {
			logger.Error("redis stats ping failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()

		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Redis.Prefix),
			infra.WithStatsTTL(cfg.Stats.Redis.TTL),
			infra.WithStatsBucket(cfg.Stats.Redis.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.Redis.TrackKeys),
		))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	quotas := infra.NewWindowStore(infra.WithSweepThreshold(cfg.SweepThreshold))

	var burst domain.QuotaStore
	if cfg.Burst.Enabled {
		bs := infra.NewBurstStore(
			infra.WithIdleTTL(cfg.Burst.IdleTTL),
			infra.WithCleanupEvery(cfg.Burst.CleanupEvery),
		)
		bs.StartJanitor(ctx)
		burst = bs
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newHandler(cfg, target, quotas, burst, stats, registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutdown started")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	logger.Info("gateway listening",
		slog.String("addr", cfg.ListenAddr),
		slog.String("upstream", target.String()),
		slog.String("signin_prefix", cfg.SignIn.PathPrefix),
		slog.Int("signin_limit", cfg.SignIn.Limit),
		slog.Duration("signin_window", cfg.SignIn.Window),
		slog.Bool("burst", cfg.Burst.Enabled),
		slog.Int("concurrency_max", cfg.Concurrency.Max),
		slog.Bool("redis_stats", cfg.Stats.Redis.Addr != ""),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// newHandler monta o gateway:
//
//	request-id -> access log -> concorrência -> [burst] -> mux
//	mux: POST {signin prefix} -> cota de login -> proxy
//	     /healthz, /metrics locais; o resto vai direto para o proxy
func newHandler(cfg config, target *url.URL, quotas, burst domain.QuotaStore, stats domain.StatsStore, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", slog.Any("error", err), slog.String("path", r.URL.Path))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	// já validado em loadConfig
	trusted, _ := cfg.trustedProxies()
	clientIP := ratelimit.TrustedClientIP(trusted)

	signin := ratelimit.Middleware(ratelimit.Options{
		Store:  quotas,
		Policy: cfg.signInPolicy(),
		Stats:  stats,
		Logger: logger,
		KeyFn:  ratelimit.TrustedProxyKeyFunc(cfg.SignIn.KeyPrefix, trusted),
		Route:  cfg.SignIn.PathPrefix,
	})(proxy)

	mux := http.NewServeMux()
	mux.Handle("POST "+cfg.SignIn.PathPrefix, signin)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", proxy)

	h := http.Handler(mux)
	if burst != nil {
		h = ratelimit.Middleware(ratelimit.Options{
			Store:          burst,
			Policy:         cfg.burstPolicy(),
			Logger:         logger,
			KeyFn:          ratelimit.TrustedProxyKeyFunc("burst:", trusted),
			DisableHeaders: true,
		})(h)
	}
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Concurrency.Timeout,
		Logger:         logger,
	})(h)
	h = httplog.AccessLog(logger, clientIP)(h)
	return httplog.RequestID(h)
}

func connectRedis(rc redisStatsConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
