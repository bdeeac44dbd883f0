package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"filemarket-bot/internal/bot"
	"filemarket-bot/internal/config"
	"filemarket-bot/internal/payment"
	"filemarket-bot/internal/storage"
	redisstorage "filemarket-bot/internal/storage/redis"
	"filemarket-bot/internal/sweep"
	"filemarket-bot/internal/ticker"
	"filemarket-bot/internal/webhook"
	"filemarket-bot/pkg/exchange"
	"filemarket-bot/pkg/logger"
	"filemarket-bot/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	redisStore := redisstorage.New(redisClient, cfg.DialogTTL, cfg.CorrelationTTL)

	pgStorage, err := storage.NewPostgresStorage(ctx, storage.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	if err := storage.RunMigrations(ctx, pgStorage.DB(), zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	gateway := payment.NewClient(
		cfg.GatewayBaseURL,
		cfg.GatewayPayURL,
		cfg.GatewayMerchantID,
		cfg.HTTPRequestTimeout,
		zapLogger,
	)

	tgBot, err := bot.New(
		cfg,
		redisStore,
		pgStorage,
		pgStorage,
		redisStore,
		redisStore,
		gateway,
		zapLogger,
	)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	callback := webhook.NewCallbackHandler(pgStorage, redisStore, gateway, tgBot.API(), zapLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/payment_callback", callback.HandleCallback)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		zapLogger.Info("Starting callback server", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Callback server stopped", zap.Error(err))
			cancel()
		}
	}()

	if cfg.TickerChannelID != 0 {
		exchangeClient := exchange.NewClient(cfg.ExchangeBaseURL, cfg.HTTPRequestTimeout, zapLogger)
		priceTicker := ticker.New(
			exchangeClient,
			redisStore,
			tgBot.API(),
			cfg.TickerChannelID,
			cfg.TickerSymbols,
			cfg.TickerInterval,
			zapLogger,
		)
		go priceTicker.Run(ctx)
	}

	sweeper := sweep.New(pgStorage, cfg.SweepInterval, cfg.OrderMaxAge, zapLogger)
	go sweeper.Run(ctx)

	if err := tgBot.Start(ctx); err != nil {
		zapLogger.Fatal("Bot stopped with error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Callback server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}
