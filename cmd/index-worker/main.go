// Package main 向量索引重建 worker 入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shifat71/350/internal/config"
	"github.com/shifat71/350/internal/infrastructure/messaging"
	einoobs "github.com/shifat71/350/internal/observability/eino"
	"github.com/shifat71/350/internal/wire"
	"github.com/shifat71/350/pkg/logger"
	"github.com/shifat71/350/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Messaging.ConsumerName == "" {
		cfg.Messaging.ConsumerName = hostnameConsumerName()
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()
	log := logger.FromContext(ctx)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "index-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	einoobs.Init()

	worker, cleanup, err := wire.NewWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	// 启动前确保商品集合就绪，避免首个任务因集合缺失失败
	if err := worker.Data.MilvusRepo.EnsureProductsCollection(ctx); err != nil {
		logger.Fatal(ctx, "failed to ensure products collection", err)
	}

	worker.Consumer.RegisterHandler(messaging.MsgTypeRebuildEmbeddings, func(msgCtx context.Context, msg *messaging.Message) error {
		var payload messaging.RebuildJobMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}

		runCtx := msgCtx
		if cfg.Index.RebuildTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(msgCtx, cfg.Index.RebuildTimeout)
			defer cancel()
		}

		return worker.Rebuilder.Run(runCtx, payload.TaskID)
	})

	if err := worker.Consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	log.Info("index-worker started",
		"stream", string(messaging.StreamIndexRebuild),
		"group", cfg.Messaging.ConsumerGroup,
		"consumer", cfg.Messaging.ConsumerName,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	worker.Consumer.Stop()
	log.Info("worker exited")
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
