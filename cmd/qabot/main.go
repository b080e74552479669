package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"qabot/internal/app"
	"qabot/internal/config"
	"qabot/internal/console"
	"qabot/internal/logging"
	"qabot/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath, botKind, dataDir, model, qaFile, logPath string
		plain                                              bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML or TOML config file (optional; uses ./config.yaml or ~/.config/qabot/config.yaml if not provided)")
	flag.StringVar(&botKind, "bot", "", "Bot to run: rag or fuzzy (overrides config)")
	flag.StringVar(&dataDir, "data", "", "Directory of documents to index (overrides config)")
	flag.StringVar(&model, "model", "", "Generation model name (overrides config)")
	flag.StringVar(&qaFile, "qa", "", "Question/answer file for the fuzzy bot (overrides config)")
	flag.StringVar(&logPath, "log", "", "Write logs to this file instead of stderr")
	flag.BoolVar(&plain, "plain", false, "Use the plain line-oriented console instead of the terminal UI")
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
	if model != "" {
		cfg.Generation.Model = model
	}
	if qaFile != "" {
		cfg.Fuzzy.QAFile = qaFile
	}

	interactive := !plain && isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	var logOut io.Writer = os.Stderr
	switch {
	case logPath != "":
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	case interactive:
		// stderr would draw over the terminal UI
		logOut = io.Discard
	}
	logger, err := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if interactive {
		title := "qabot (" + cfg.Bot + ")"
		if a.Model != "" {
			title = "qabot (" + cfg.Bot + ", " + a.Model + ")"
		}
		err = tui.Run(ctx, a.Bot, title, a.Summary)
	} else {
		err = console.Run(ctx, os.Stdin, os.Stdout, a.Bot)
	}
	if cerr := a.Close(context.Background()); cerr != nil {
		logger.Warn("shutdown incomplete", "error", cerr)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("session ended with error", "error", err)
		os.Exit(1)
	}
}
