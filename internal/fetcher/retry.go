package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"fave_relay/internal/model"
)

// RetryPolicy describes the startup fetch retry: waits start at Initial and
// double until the next wait would exceed Max.
type RetryPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultRetryPolicy starts at one second and gives up past max.
func DefaultRetryPolicy(max time.Duration) RetryPolicy {
	return RetryPolicy{Initial: time.Second, Max: max}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = 2 * p.Max
	eb.MaxElapsedTime = 0
	eb.Reset()
	return &boundedBackOff{BackOff: eb, max: p.Max}
}

// boundedBackOff stops as soon as the wrapped policy asks for a wait longer
// than max.
type boundedBackOff struct {
	backoff.BackOff
	max time.Duration
}

func (b *boundedBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop || d > b.max {
		return backoff.Stop
	}
	return d
}

// FetchWithRetry fetches favourites from src, retrying failures according
// to policy. It returns the last fetch error once the policy is exhausted,
// or the context error if ctx is done first.
func FetchWithRetry(ctx context.Context, src Source, policy RetryPolicy, log *slog.Logger) ([]model.Image, error) {
	var images []model.Image
	op := func() error {
		var err error
		images, err = src.Favorites(ctx)
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("fetch favourites failed, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(policy.backOff(), ctx), notify); err != nil {
		return nil, fmt.Errorf("fetch favourites with retry: %w", err)
	}
	return images, nil
}
