// Package logger builds the application's slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	slogzerolog "github.com/samber/slog-zerolog/v2"

	"fave_relay/internal/config"
)

// Logger owns the slog logger and the resources behind its handlers.
type Logger struct {
	*slog.Logger
	closers []io.Closer
	sentry  bool
}

// Options selects the handlers of a Logger.
type Options struct {
	Level     string
	Format    string
	Output    io.Writer
	File      string
	SentryDSN string
}

// FromConfig converts application config into Options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		File:      cfg.LogFile,
		SentryDSN: cfg.SentryDSN,
	}
}

// New creates a Logger writing to the console, plus the log file and Sentry
// when they are configured.
func New(opts Options) (*Logger, error) {
	lvl := ParseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	l := &Logger{}
	handlers := []slog.Handler{consoleHandler(out, opts.Format, lvl)}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.closers = append(l.closers, f)
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	}

	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: opts.SentryDSN}); err != nil {
			l.Close()
			return nil, fmt.Errorf("init sentry: %w", err)
		}
		l.sentry = true
		handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
	}

	if len(handlers) == 1 {
		l.Logger = slog.New(handlers[0])
	} else {
		l.Logger = slog.New(slogmulti.Fanout(handlers...))
	}
	return l, nil
}

// Close flushes Sentry and closes the log file.
func (l *Logger) Close() {
	if l.sentry {
		sentry.Flush(2 * time.Second)
	}
	for _, c := range l.closers {
		_ = c.Close()
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func consoleHandler(out io.Writer, format string, lvl slog.Level) slog.Handler {
	if format == "json" {
		zl := zerolog.New(out).With().Timestamp().Logger()
		return slogzerolog.Option{Level: lvl, Logger: &zl}.NewZerologHandler()
	}
	return slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})
}
