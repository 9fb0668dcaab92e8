package main

import (
	"log/slog"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"fave_relay/internal/app"
)

func main() {
	a := fx.New(
		app.Module,
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),
	)
	if err := a.Err(); err != nil {
		slog.Error("start", "error", err)
		os.Exit(1)
	}

	a.Run()
}
