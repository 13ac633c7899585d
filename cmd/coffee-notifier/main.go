package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"coffeecounter/internal/amqp"
	"coffeecounter/internal/cli"
	applog "coffeecounter/internal/log"
	"coffeecounter/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting coffee-notifier")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifier := worker.NewNotifier(repo)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := amqpClient.ConsumeUnlocks(gctx, func(msg *amqp.UnlockMessage) error {
			return notifier.HandleUnlock(gctx, worker.Unlock{
				RuleID:     msg.RuleID,
				Name:       msg.Name,
				Icon:       msg.Icon,
				UnlockedAt: msg.UnlockedAt,
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				notifier.LogStatus(gctx)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
