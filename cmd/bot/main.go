package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tagstash/internal/bot"
	"tagstash/internal/config"
	"tagstash/internal/observability"
	"tagstash/internal/registry"
	"tagstash/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := observability.InitLogger(cfg.IsDev())
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracerProvider(ctx, logger)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer observability.ShutdownTracerProvider(context.Background(), tp, logger)

	metrics, err := observability.InitMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("metrics init failed", zap.Error(err))
	}
	observability.StartMetricsServer(cfg.MetricsPort, logger)

	// One HTTP client with a hard timeout backs every Telegram call, so no
	// single resolution or delivery can block forever.
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, &http.Client{
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal("could not connect to Telegram", zap.Error(err))
	}
	logger.Info("bot authorized", zap.String("username", api.Self.UserName))

	b := bot.New(api, cfg.AdminChatID, registry.New(), session.NewStore(), metrics, cfg.BroadcastConcurrency, logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	logger.Info("bot is running", zap.Int64("admin_chat_id", cfg.AdminChatID))
	b.Run(ctx, updates)
	logger.Info("shutdown complete")
}
