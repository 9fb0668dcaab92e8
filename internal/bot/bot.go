// Package bot implements the Telegram side of the relay: the command loop
// that manages subscriptions and the photo sender used by the dispatcher.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fave_relay/internal/metrics"
	"fave_relay/internal/model"
	"fave_relay/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Inbox yields batches of new images without blocking.
type Inbox interface {
	TryTake() ([]model.Image, bool)
}

// Dispatcher delivers a batch of new images to matching subscriptions.
type Dispatcher interface {
	Dispatch(ctx context.Context, images []model.Image) int
}

// Options configures the command loop.
type Options struct {
	Interval time.Duration
	Timeout  int
}

// Bot polls Telegram for commands, maintains the subscriptions and hands
// new image batches to the dispatcher.
type Bot struct {
	api        telegramAPI
	subs       *storage.Subscriptions
	cursor     *storage.Cursor
	inbox      Inbox
	dispatcher Dispatcher
	metrics    metrics.Recorder
	log        *slog.Logger
	interval   time.Duration
	timeout    int
}

// NewAPI connects to Telegram with the given token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return api, nil
}

// New creates the command loop.
func New(
	api *tgbotapi.BotAPI,
	subs *storage.Subscriptions,
	cursor *storage.Cursor,
	inbox Inbox,
	dispatcher Dispatcher,
	opts Options,
	rec metrics.Recorder,
	log *slog.Logger,
) *Bot {
	rec.SetSubscriptions(subs.Len())
	return &Bot{
		api:        api,
		subs:       subs,
		cursor:     cursor,
		inbox:      inbox,
		dispatcher: dispatcher,
		metrics:    rec,
		log:        log,
		interval:   opts.Interval,
		timeout:    opts.Timeout,
	}
}

// Run polls for updates every interval, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.log.Info("command loop started", "interval", b.interval, "offset", b.cursor.Next())

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.pollOnce(ctx)
		}
	}
}

func (b *Bot) pollOnce(ctx context.Context) {
	b.metrics.IncPolls(metrics.LoopCommands)

	updates, err := b.api.GetUpdates(tgbotapi.UpdateConfig{
		Offset:         b.cursor.Next(),
		Timeout:        b.timeout,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		b.metrics.IncPollErrors(metrics.LoopCommands)
		b.log.Error("get updates", "offset", b.cursor.Next(), "error", err)
	} else {
		b.handleUpdates(ctx, updates)
	}

	if batch, ok := b.inbox.TryTake(); ok {
		b.dispatcher.Dispatch(ctx, batch)
	}
}

// handleUpdates moves the cursor past the whole batch and saves it before
// any command runs, so a restart never replays a command.
func (b *Bot) handleUpdates(ctx context.Context, updates []tgbotapi.Update) {
	start := b.cursor.Next()

	advanced := false
	for _, u := range updates {
		if b.cursor.Advance(u.UpdateID) {
			advanced = true
		}
	}
	if advanced {
		if err := b.cursor.Save(); err != nil {
			b.log.Error("save update cursor", "error", err)
		}
	}

	for _, u := range updates {
		if u.UpdateID < start {
			continue
		}
		msg := u.Message
		if msg == nil || msg.Text == "" || msg.From == nil || msg.Chat == nil {
			continue
		}
		b.handleMessage(msg)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func chatDestination(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
