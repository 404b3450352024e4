package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/agendaclinica/agenda/libs/config"
	"github.com/agendaclinica/agenda/libs/db"
	"github.com/agendaclinica/agenda/libs/httpx"
	otelx "github.com/agendaclinica/agenda/libs/otel"
	"github.com/agendaclinica/agenda/libs/runtime"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/availability"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/handlers"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/storage"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := ConfigFromEnv()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	calc := availability.NewCalculator(storage.NewRepository(pool), logger, availability.Options{
		Mode: cfg.ConflictMode,
		Zone: cfg.Zone,
	})
	logger.Info("availability calculator ready", "conflict_mode", cfg.ConflictMode, "zone", cfg.Zone.String())

	router := mux.NewRouter()
	handlers.NewSlotsHandler(calc, logger).Register(router, publicMiddleware(cfg, rdb, logger))

	base := runtime.NewBaseMuxWithReady(checks...)
	base.Handle("/api/", router)

	handler := httpx.Chain(base,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(cfg.BodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	handler = otelhttp.NewHandler(handler, "agenda")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	_ = runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}

// publicMiddleware guards the self-service booking route with CORS and a
// rate limit, shared through Redis when it is configured.
func publicMiddleware(cfg Config, rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	var rateLimit httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.RateLimitPrefix)
		rateLimit = rl.Middleware(logger, cfg.RateLimitFailOpen)
		logger.Info("public rate limiting enabled (redis)", "per_minute", cfg.RateLimitPerMinute)
	} else {
		rateLimit = httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware()
		logger.Info("public rate limiting enabled (in-memory)", "per_minute", cfg.RateLimitPerMinute)
	}
	cors := httpx.WithCORS(httpx.CORSPolicy{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
		MaxAge:         10 * time.Minute,
	})
	return func(next http.Handler) http.Handler {
		return httpx.Chain(next, cors, rateLimit)
	}
}
