package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/tearleads/rapidvault/internal/buildinfo"
	"github.com/tearleads/rapidvault/internal/cli"
	"github.com/tearleads/rapidvault/internal/config"
	"github.com/tearleads/rapidvault/internal/logging"
)

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	handler := tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      parseLevel(cfg.LogLevel),
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	log := logging.NewSlogLogger(slog.New(handler))

	app := cli.NewApp(cfg, log)
	app.Run(ctx)
}
