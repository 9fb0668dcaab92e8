package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fave_relay/internal/model"
)

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	cmd := ParseCommand(msg.Text)
	chatID := msg.Chat.ID
	owner := msg.From.ID

	b.log.Debug("command", "kind", cmd.Kind, "filter", cmd.Filter, "destination", cmd.Destination,
		"chat_id", chatID, "user_id", owner)
	b.metrics.IncCommands(string(cmd.Kind))

	switch cmd.Kind {
	case CommandAdd:
		b.handleAdd(chatID, owner, cmd)
	case CommandRemove:
		b.handleRemove(chatID, owner, cmd)
	default:
		b.reply(chatID, msgInvalidCommand)
	}
}

// handleAdd confirms first and then stores the subscription.
func (b *Bot) handleAdd(chatID, owner int64, cmd Command) {
	if cmd.Filter == "" {
		b.reply(chatID, msgMissingFilter)
		return
	}

	dest := cmd.Destination
	ownChat := dest == ""
	if ownChat {
		dest = chatDestination(chatID)
	}
	b.reply(chatID, formatAdded(dest, cmd.Filter, ownChat))

	sub := model.Subscription{Destination: dest, Filter: cmd.Filter, Owner: owner}
	added, err := b.subs.Add(sub)
	if err != nil {
		b.log.Error("save subscriptions", "error", err)
	}
	if added {
		b.log.Info("subscription added", "destination", dest, "filter", cmd.Filter, "owner", owner)
	}
	b.metrics.SetSubscriptions(b.subs.Len())
}

func (b *Bot) handleRemove(chatID, owner int64, cmd Command) {
	if cmd.Filter == "" {
		b.handleRemoveAll(chatID, owner)
		return
	}

	dest := cmd.Destination
	if dest == "" {
		dest = chatDestination(chatID)
	}

	removed, err := b.subs.Remove(dest, cmd.Filter, owner)
	if err != nil {
		b.log.Error("save subscriptions", "error", err)
	}
	b.metrics.SetSubscriptions(b.subs.Len())

	if !removed {
		b.reply(chatID, msgNoMatch)
		return
	}
	b.log.Info("subscription removed", "destination", dest, "filter", cmd.Filter, "owner", owner)
	b.reply(chatID, formatRemoved(dest, cmd.Filter))
}

func (b *Bot) handleRemoveAll(chatID, owner int64) {
	n, err := b.subs.RemoveAll(chatDestination(chatID), owner)
	if err != nil {
		b.log.Error("save subscriptions", "error", err)
	}
	b.metrics.SetSubscriptions(b.subs.Len())

	if n == 0 {
		b.reply(chatID, msgNoMatch)
		return
	}
	b.log.Info("subscriptions removed", "chat_id", chatID, "owner", owner, "count", n)
	b.reply(chatID, formatRemovedAll(n))
}
