package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgeteer/internal/amqp"
	"budgeteer/internal/cli"
	"budgeteer/internal/log"
	"budgeteer/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	slogger := cli.SetupLogger()

	slogger.Info("Starting budgeteer-worker")

	cfg := cli.LoadAndValidateConfig(slogger)
	if cfg.AMQPURL == "" {
		slogger.Error("AMQP_URL is required for the notification worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(slogger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slogger.Error("Failed to connect to AMQP", "error", err, "exchange", cfg.AMQPExchange)
		os.Exit(1)
	}
	slogger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	logger := log.New(log.DefaultConfig())
	notifier := worker.NewNotificationWorker(repo, logger)

	ctx, done := cli.GracefulShutdown(slogger, 30*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			slogger.Error("AMQP close error", "error", err)
		}
	})

	go func() {
		err := amqpClient.ConsumeEvents(ctx, func(event *amqp.AutomationEvent) error {
			return notifier.HandleEvent(ctx, event)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slogger.Error("Consumer stopped", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
