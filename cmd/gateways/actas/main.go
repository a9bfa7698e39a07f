package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/voxcliente/backend/config/actas"
	"github.com/voxcliente/backend/gateways/actas"
	"github.com/voxcliente/backend/pkg/logger"
)

func main() {
	log := logger.Default()
	log.Info("initializing actas gateway")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log = logger.New(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		Output:     os.Stderr,
		AddSource:  cfg.Debug,
		JSONFormat: cfg.LogJSON,
	}).With(slog.String("app", cfg.AppName), slog.String("version", cfg.AppVersion))
	slog.SetDefault(log)

	log.Info("configuration loaded",
		slog.Int("port", cfg.Port),
		slog.String("summarization_provider", cfg.Summarization.Provider),
		slog.Bool("assemblyai_api_key_set", cfg.AssemblyAI.APIKey != ""),
		slog.Bool("resend_api_key_set", cfg.Resend.APIKey != ""),
		slog.Bool("database_set", cfg.DatabaseURL != ""),
		slog.Bool("debug", cfg.Debug))

	ctx := logger.WithContext(context.Background(), log)
	rootCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("application terminated with error", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
	log.Info("application terminated successfully")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	srv, err := actas.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	return srv.Start(ctx)
}
