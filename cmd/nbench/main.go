// Command nbench runs the BYTEmark CPU and FPU benchmark suite.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/utkarsh5026/nbench/internal/report"
)

var version = "2.2.3"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&options{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		report.Failure(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !report.IsTerminal(os.Stderr),
	}))
}
