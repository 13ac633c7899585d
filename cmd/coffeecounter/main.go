package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"coffeecounter/internal/achievements"
	"coffeecounter/internal/amqp"
	"coffeecounter/internal/backend"
	"coffeecounter/internal/cli"
	apphttp "coffeecounter/internal/http"
	applog "coffeecounter/internal/log"
	"coffeecounter/internal/service"
	appsync "coffeecounter/internal/sync"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	// Persistence backend (memory, sqlite or remote with local fallback)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	result, err := factory.CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	}()
	logger.Info("Initialized data backend", "backend", cfg.DataBackend)

	state, err := service.LoadState(ctx, result.Store)
	if err != nil {
		logger.Error("Failed to load state", "error", err)
		os.Exit(1)
	}

	// Unlock notifications are optional: without a broker the tracker
	// just skips publishing.
	var publisher service.UnlockPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP notifications disabled - no AMQP_URL provided")
	}

	debouncer := appsync.NewDebouncer(result.Store, cfg.SaveDebounce)
	tracker := service.New(state, achievements.NewEngine(), debouncer, publisher,
		service.WithHistoryLimit(cfg.HistoryLimit))

	srv := apphttp.NewServer(":"+cfg.Port, tracker)
	srv.Handler = applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(srv.Handler)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info("Starting coffeecounter server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Flush any pending snapshot before the listener goes away.
		if err := debouncer.Close(shutdownCtx); err != nil {
			logger.Error("Final save failed", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
