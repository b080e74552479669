package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"qabot/internal/app"
	"qabot/internal/chat/slack"
	"qabot/internal/config"
	"qabot/internal/logging"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, botKind, dataDir string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML or TOML config file (optional; uses ./config.yaml or ~/.config/qabot/config.yaml if not provided)")
	flag.StringVar(&botKind, "bot", "", "Bot to serve: rag or fuzzy (overrides config)")
	flag.StringVar(&dataDir, "data", "", "Directory of documents to index (overrides config)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if botKind != "" {
		cfg.Bot = botKind
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	if err := serve(ctx, cfg, a, logger); err != nil {
		logger.Error("slack connection ended", "error", err)
		if cerr := a.Close(context.Background()); cerr != nil {
			logger.Warn("shutdown incomplete", "error", cerr)
		}
		os.Exit(1)
	}
	if err := a.Close(context.Background()); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, a *app.App, logger *slog.Logger) error {
	adapter, err := slack.New(slack.Config{
		BotToken: cfg.Slack.BotToken,
		AppToken: cfg.Slack.AppToken,
		Debug:    cfg.Slack.Debug,
	}, a.Bot, logger)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	logger.Info("serving slack", "bot", cfg.Bot, "model", a.Model)
	if err := adapter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
