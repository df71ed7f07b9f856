package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/Protocol-Lattice/quizbot/src/app"
	"github.com/Protocol-Lattice/quizbot/src/config"
	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(config.ModeServer); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
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

	if err := server.Serve(ctx, cfg.HTTP.Addr, server.NewRouter(a.Pipeline, lg), lg); err != nil {
		lg.Error("http server stopped with error", "error", err)
	}
}
