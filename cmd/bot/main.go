package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Protocol-Lattice/quizbot/src/app"
	"github.com/Protocol-Lattice/quizbot/src/config"
	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(config.ModeBot); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logger.New(cfg.LogMode, cfg.LogRedact)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to build pipeline", "error", err)
	}
	defer a.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		lg.Fatal("failed to connect to telegram", "error", err)
	}
	api.Debug = cfg.Telegram.Debug
	lg.Info("authorized on telegram", "account", api.Self.UserName)

	if err := telegram.New(api, a.Pipeline, cfg.RequestTimeout, lg).Run(ctx); err != nil {
		lg.Error("bot stopped with error", "error", err)
	}
}
