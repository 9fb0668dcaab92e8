// Package dispatch matches new images against subscriptions and sends the
// resulting photos.
package dispatch

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"fave_relay/internal/filter"
	"fave_relay/internal/metrics"
	"fave_relay/internal/model"
)

// Delivery is one photo to send: Image to Destination.
type Delivery struct {
	Destination string
	Image       model.Image
}

// Sender posts a photo with a caption to a destination.
type Sender interface {
	SendPhoto(ctx context.Context, destination, photoURL, caption string) error
}

// SubscriptionSource provides a point-in-time copy of the subscriptions.
type SubscriptionSource interface {
	Snapshot() []model.Subscription
}

// Match returns one delivery per (subscription, image) pair whose filter
// accepts the image's tags.
func Match(images []model.Image, subs []model.Subscription) []Delivery {
	var out []Delivery
	for _, img := range images {
		for _, sub := range subs {
			if filter.Match(img.Tags, sub.Filter) {
				out = append(out, Delivery{Destination: sub.Destination, Image: img})
			}
		}
	}
	return out
}

// Dispatcher sends every delivery for a batch of new images, paced by a
// rate limiter.
type Dispatcher struct {
	subs    SubscriptionSource
	sender  Sender
	limiter *rate.Limiter
	metrics metrics.Recorder
	log     *slog.Logger
}

// New creates a Dispatcher sending at most perSecond photos per second.
// A non-positive rate disables pacing.
func New(subs SubscriptionSource, sender Sender, perSecond float64, rec metrics.Recorder, log *slog.Logger) *Dispatcher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Dispatcher{
		subs:    subs,
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		metrics: rec,
		log:     log,
	}
}

// Dispatch matches images against a single subscription snapshot and sends
// the resulting photos. Send failures are logged and skipped. It returns the
// number of photos sent successfully.
func (d *Dispatcher) Dispatch(ctx context.Context, images []model.Image) int {
	if len(images) == 0 {
		return 0
	}

	deliveries := Match(images, d.subs.Snapshot())
	sent := 0
	for i, dl := range deliveries {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn("dispatch interrupted", "pending", len(deliveries)-i, "error", err)
			return sent
		}

		err := d.sender.SendPhoto(ctx, dl.Destination, PhotoURL(dl.Image), Caption(dl.Image))
		d.metrics.IncDeliveries(err == nil)
		if err != nil {
			d.log.Error("send photo", "destination", dl.Destination, "image_id", dl.Image.ID, "error", err)
			continue
		}
		sent++
	}

	if len(deliveries) > 0 {
		d.log.Info("dispatched images", "images", len(images), "deliveries", len(deliveries), "sent", sent)
	}
	return sent
}
