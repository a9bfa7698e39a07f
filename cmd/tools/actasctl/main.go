package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/voxcliente/backend/config/actas"
	"github.com/voxcliente/backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		Output:     os.Stderr,
		JSONFormat: cfg.LogJSON,
	})
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(logger.WithContext(context.Background(), log), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(&dependencies{Config: cfg, Log: log}).ExecuteContext(ctx)
}
