package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender posts photos by URL. Numeric destinations are chat IDs; anything
// else is treated as a channel username such as "@channel".
type Sender struct {
	api telegramAPI
}

// NewSender creates a Sender using api.
func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

// SendPhoto sends photoURL with caption to destination.
func (s *Sender) SendPhoto(_ context.Context, destination, photoURL, caption string) error {
	var photo tgbotapi.PhotoConfig
	if id, err := strconv.ParseInt(destination, 10, 64); err == nil {
		photo = tgbotapi.NewPhoto(id, tgbotapi.FileURL(photoURL))
	} else {
		photo = tgbotapi.NewPhotoToChannel(destination, tgbotapi.FileURL(photoURL))
	}
	photo.Caption = caption

	if _, err := s.api.Send(photo); err != nil {
		return fmt.Errorf("send photo to %s: %w", destination, err)
	}
	return nil
}
