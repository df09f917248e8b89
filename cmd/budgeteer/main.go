package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgeteer/internal/amqp"
	"budgeteer/internal/cli"
	apphttp "budgeteer/internal/http"
	"budgeteer/internal/log"
	"budgeteer/internal/services"
)

func main() {
	cli.LoadEnvFile()
	slogger := cli.SetupLogger()

	slogger.Info("Starting budgeteer")

	cfg := cli.LoadAndValidateConfig(slogger)

	repo := cli.InitSQLite(slogger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional; without it automation events are simply not published.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slogger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
		} else {
			events = amqpClient
			slogger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		slogger.Info("AMQP disabled - no AMQP_URL provided")
	}

	logger := log.New(log.DefaultConfig())

	evaluator := services.NewEvaluator(repo, events, logger)
	streaks := services.NewStreakTracker(repo, cfg.DiscretionaryCategories, logger)
	badges := services.NewBadgeAwarder(repo, events, cfg.DiscretionaryCategories, logger)
	service := services.NewBudgetService(repo, evaluator, streaks, badges, cfg.LeaderboardConcurrency, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		LeaderboardSize:   cfg.LeaderboardSize,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, service, repo, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(slogger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slogger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				slogger.Error("AMQP close error", "error", err)
			}
		}
	})

	go func() {
		slogger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("Server error", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
