package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/agendaclinica/agenda/libs/config"
	"github.com/agendaclinica/agenda/libs/db"
	"github.com/agendaclinica/agenda/libs/grpcx"
	"github.com/agendaclinica/agenda/libs/httpx"
	"github.com/agendaclinica/agenda/libs/kafkax"
	otelx "github.com/agendaclinica/agenda/libs/otel"
	"github.com/agendaclinica/agenda/libs/runtime"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/handlers"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/lock"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/outbox"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/relay"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/reminder"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/storage"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/worker"
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

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if cfg.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	}

	var locker reminder.Locker = reminder.NoopLocker{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, "reminder:lock", logger)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("reminder locking enabled (redis)", "ttl", cfg.LockTTL.String())
	} else {
		logger.Warn("reminder locking disabled (no REDIS_ADDR); overlapping cycles may double-send")
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo, logger, cfg.RelayURL)
	evaluator := reminder.NewEvaluator(reminder.Deps{
		Candidates: repo,
		Log:        repo,
		RelayURL:   repo,
		Dispatcher: relay.NewWebhookSender(cfg.RelayToken, cfg.RelayTimeout),
		Locker:     locker,
		Logger:     logger,
		Zone:       cfg.Zone,
	})

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if cfg.Interval > 0 {
		w := worker.New(evaluator, logger, worker.Config{Interval: cfg.Interval, CycleTimeout: cfg.CycleTimeout})
		go w.Run(ctx)
	} else {
		logger.Info("reminder worker disabled; waiting for external triggers")
	}

	health := grpcx.NewHealthServer(logger, cfg.Service)
	go func() {
		if err := health.Serve(ctx, net.JoinHostPort("", cfg.GRPCPort)); err != nil {
			logger.Error("grpc health server error", "err", err)
		}
	}()

	reminderHandler := handlers.NewReminderHandler(evaluator, logger, cfg.CycleTimeout)
	mux := runtime.NewBaseMuxWithReady(checks...)
	protect := httpx.RequireAPIKey(cfg.APIKey)
	if protect == nil {
		logger.Warn("reminder endpoints are unauthenticated (no REMINDER_API_KEY)")
	}
	mux.Handle("/api/v1/reminders/trigger", httpx.Chain(http.HandlerFunc(reminderHandler.Trigger), protect))
	mux.Handle("/api/v1/reminders/preview", httpx.Chain(http.HandlerFunc(reminderHandler.Preview), protect))

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "reminder")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	_ = runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
	health.SetServing(cfg.Service, false)
}
