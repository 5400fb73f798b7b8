package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/config"
	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/handlers"
	"github.com/keisuke70/tasklazy/internal/logger"
	"github.com/keisuke70/tasklazy/internal/middleware"
	"github.com/keisuke70/tasklazy/internal/queue"
	"github.com/keisuke70/tasklazy/internal/services/calendar"
	"github.com/keisuke70/tasklazy/internal/services/oidc"
	"github.com/keisuke70/tasklazy/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Bool("calendar_enabled", cfg.CalendarEnabled()),
	)

	if err := cfg.RequireAuth(); err != nil {
		zapLogger.Fatal("auth_not_configured", zap.Error(err))
	}
	if err := cfg.RequireQueue(); err != nil {
		zapLogger.Fatal("queue_not_configured", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, err := telemetry.InitTracer(ctx, handlers.ServiceName, version, cfg.OTELEndpoint); err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracingEnabled = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	rateLimit, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("invalid_rate_limit", zap.String("rate", cfg.RateLimit), zap.Error(err))
	}

	jobQueue, err := queue.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	source, err := calendar.NewSource(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, cfg.GoogleCalendarID, zapLogger)
	if err != nil {
		zapLogger.Warn("calendar_disabled", zap.Error(err))
		source = calendar.NoopSource{}
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:   zapLogger,
		Version:  version,
		Tasks:    database.NewTaskRepository(db),
		Users:    database.NewUserRepository(db),
		Queue:    jobQueue,
		Calendar: source,
		Verifier: oidc.NewVerifier(oidc.NewJWKSManager(), cfg.OIDCIssuer, cfg.OIDCJWKSURL),
		Schedule: cfg.Schedule,
		Health: map[string]handlers.Checker{
			"database": db,
			"redis":    handlers.RedisChecker(redisClient),
			"queue":    jobQueue,
		},
		FrontendURL:    cfg.FrontendURL,
		EnableHSTS:     cfg.EnableHSTS,
		EnableTracing:  tracingEnabled,
		RequestTimeout: 30 * time.Second,
		RateLimit:      rateLimit,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   35 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}
