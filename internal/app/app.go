// Package app wires the relay's components together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"fave_relay/internal/bot"
	"fave_relay/internal/config"
	"fave_relay/internal/dispatch"
	"fave_relay/internal/fetcher"
	"fave_relay/internal/logger"
	"fave_relay/internal/metrics"
	"fave_relay/internal/scheduler"
	"fave_relay/internal/storage"
)

// Module provides every component and starts the polling loops. Any
// constructor error aborts startup before either loop runs.
var Module = fx.Options(
	fx.Provide(
		config.Load,
		loadCredentials,
		newLogger,
		metrics.New,
		func(m *metrics.Metrics) metrics.Recorder { return m },
	),
	fx.Provide(
		openSubscriptions,
		openCursor,
		openSeenFile,
	),
	fx.Provide(
		newSource,
		scheduler.NewHandoff,
		newFeedPoller,
		newTelegramAPI,
		fx.Annotate(bot.NewSender, fx.As(new(dispatch.Sender))),
		newDispatcher,
		newBot,
	),
	fx.Invoke(run),
)

func loadCredentials(cfg *config.Config) (*config.Credentials, error) {
	return cfg.LoadCredentials()
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.New(logger.FromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	lc.Append(fx.StopHook(l.Close))
	return l.Logger, nil
}

func openSubscriptions(cfg *config.Config, log *slog.Logger) (*storage.Subscriptions, error) {
	subs, err := storage.OpenSubscriptions(cfg.ChatsPath)
	if err != nil {
		return nil, fmt.Errorf("open subscriptions: %w", err)
	}
	log.Info("loaded subscriptions", "path", cfg.ChatsPath, "count", subs.Len())
	return subs, nil
}

func openCursor(cfg *config.Config) (*storage.Cursor, error) {
	return storage.OpenCursor(cfg.OffsetPath)
}

func openSeenFile(cfg *config.Config) (*storage.SeenFile, error) {
	return storage.NewSeenFile(cfg.ImagesPath)
}

func newSource(cfg *config.Config, creds *config.Credentials) fetcher.Source {
	if cfg.Feed.Kind == config.FeedRSS {
		return fetcher.NewRSS(http.DefaultClient, cfg.Feed.RSSURL)
	}
	return fetcher.NewBooru(http.DefaultClient, cfg.Feed.BaseURL, cfg.Feed.SearchPath, cfg.Feed.Query, creds.FeedAPIKey)
}

func newFeedPoller(
	cfg *config.Config,
	src fetcher.Source,
	seen *storage.SeenFile,
	h *scheduler.Handoff,
	rec metrics.Recorder,
	log *slog.Logger,
) (*scheduler.FeedPoller, error) {
	policy := fetcher.DefaultRetryPolicy(cfg.Feed.MaxBackoff)
	return scheduler.NewFeedPoller(src, seen, h, cfg.Feed.Interval, policy, rec, log)
}

func newTelegramAPI(creds *config.Credentials) (*tgbotapi.BotAPI, error) {
	return bot.NewAPI(creds.TelegramToken)
}

func newDispatcher(
	cfg *config.Config,
	subs *storage.Subscriptions,
	sender dispatch.Sender,
	rec metrics.Recorder,
	log *slog.Logger,
) *dispatch.Dispatcher {
	return dispatch.New(subs, sender, cfg.Telegram.SendRate, rec, log)
}

func newBot(
	cfg *config.Config,
	api *tgbotapi.BotAPI,
	subs *storage.Subscriptions,
	cursor *storage.Cursor,
	h *scheduler.Handoff,
	d *dispatch.Dispatcher,
	rec metrics.Recorder,
	log *slog.Logger,
) *bot.Bot {
	opts := bot.Options{
		Interval: cfg.Telegram.UpdateInterval,
		Timeout:  cfg.Telegram.UpdateTimeout,
	}
	return bot.New(api, subs, cursor, h, d, opts, rec, log)
}

type runParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Bot        *bot.Bot
	Poller     *scheduler.FeedPoller
	Metrics    *metrics.Metrics
	Log        *slog.Logger
}

func run(p runParams) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Log.Info("starting bot", "feed", p.Config.Feed.Kind)

			wg.Add(2)
			go func() {
				defer wg.Done()
				p.Bot.Run(ctx)
			}()
			go func() {
				defer wg.Done()
				p.Poller.Bootstrap(ctx)
				if err := p.Poller.Run(ctx); err != nil {
					p.Log.Error("feed poller stopped", "error", err)
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			if p.Config.MetricsAddr != "" {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := p.Metrics.Serve(ctx, p.Config.MetricsAddr, p.Log); err != nil {
						p.Log.Error("metrics server", "addr", p.Config.MetricsAddr, "error", err)
					}
				}()
			}
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				p.Log.Info("bot stopped")
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
