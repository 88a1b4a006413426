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

	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/auth"
	"github.com/benvon/todoms/internal/config"
	"github.com/benvon/todoms/internal/database"
	"github.com/benvon/todoms/internal/handlers"
	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/middleware"
	"github.com/benvon/todoms/internal/queue"
	"github.com/benvon/todoms/internal/server"
	"github.com/benvon/todoms/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewServiceLogger(logger.ServiceAPI, debugMode)
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
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("rabbitmq", cfg.RabbitMQURL != ""),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, cfg.OTELEnabled, cfg.OTELEndpoint, zapLogger)
	if shutdownTracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	checks := map[string]handlers.CheckFunc{}

	// Storage: Postgres when configured, process memory otherwise
	var users database.UserRepositoryInterface
	var todoRepo database.TodoRepositoryInterface
	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
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

		pgTodos := database.NewTodoRepository(db)
		pgTodos.SetLogger(zapLogger)
		users, todoRepo = database.NewUserRepository(db), pgTodos
		checks["database"] = db.PingContext
	} else {
		zapLogger.Warn("database_url_not_set_using_memory_store")
		users, todoRepo = database.NewMemoryUserRepository(), database.NewMemoryTodoRepository()
	}

	rateStore, err := middleware.NewRateLimitStore(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := rateStore.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	if cfg.RedisURL != "" {
		zapLogger.Info("connected_to_redis")
		checks["redis"] = rateStore.Ping
	}

	var events queue.Publisher = queue.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		eventQueue, err := queue.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, queue.DefaultConnectAttempts, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		defer func() {
			if err := eventQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		events = eventQueue
		checks["rabbitmq"] = eventQueue.HealthCheck
	}

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, users, todoRepo, zapLogger); err != nil {
			zapLogger.Fatal("failed_to_seed_demo_data", zap.Error(err))
		}
	}

	router, err := server.NewRouter(server.Deps{
		Users:          users,
		Todos:          todoRepo,
		Tokens:         auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Events:         events,
		RateLimitStore: rateStore,
		RateLimit:      cfg.RateLimit,
		FrontendURL:    cfg.FrontendURL,
		EnableHSTS:     cfg.EnableHSTS,
		Tracing:        shutdownTracing != nil,
		Version:        version,
		Checks:         checks,
		Logger:         zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_build_router", zap.Error(err))
	}

	srv := server.NewHTTPServer(cfg.ServerPort, router)

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
