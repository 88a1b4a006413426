package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/config"
	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/queue"
	"github.com/benvon/todoms/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewServiceLogger(logger.ServiceWorker, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventQueue, err := queue.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, queue.DefaultConnectAttempts, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := eventQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	sweeper := queue.NewDeadLetterSweeper(eventQueue, cfg.DLQSweepInterval, cfg.DLQRetention, zapLogger)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_sweeper_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_sweeper",
		zap.Duration("interval", cfg.DLQSweepInterval),
		zap.Duration("retention", cfg.DLQRetention),
	)

	msgChan, errChan, err := eventQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	recorder := workers.NewActivityRecorder(workers.NewLogSink(zapLogger), eventQueue, zapLogger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		recorder.Run(ctx, msgChan)
	}()

	go func() {
		for err := range errChan {
			zapLogger.Error("queue_error", zap.Error(err))
		}
	}()

	zapLogger.Info("worker_started")

	select {
	case <-ctx.Done():
		zapLogger.Info("shutdown_signal_received")
	case <-done:
		zapLogger.Warn("consumer_stopped")
	}
	stop()
	<-done

	zapLogger.Info("worker_stopped")
}
