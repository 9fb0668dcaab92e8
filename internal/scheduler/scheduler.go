// Package scheduler runs the favourites feed poller and hands new images to
// the command loop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"fave_relay/internal/dedup"
	"fave_relay/internal/fetcher"
	"fave_relay/internal/metrics"
	"fave_relay/internal/model"
	"fave_relay/internal/storage"
)

// FeedPoller periodically fetches the favourites feed and offers every
// image not seen before to the Handoff.
type FeedPoller struct {
	source   fetcher.Source
	seenFile *storage.SeenFile
	handoff  *Handoff
	metrics  metrics.Recorder
	log      *slog.Logger
	interval time.Duration
	policy   fetcher.RetryPolicy

	mu      sync.Mutex
	seen    model.SeenSet
	seeding bool
}

// NewFeedPoller loads the seen set from seenFile. If no snapshot exists yet,
// the first successful fetch only seeds the set and delivers nothing.
func NewFeedPoller(
	source fetcher.Source,
	seenFile *storage.SeenFile,
	handoff *Handoff,
	interval time.Duration,
	policy fetcher.RetryPolicy,
	rec metrics.Recorder,
	log *slog.Logger,
) (*FeedPoller, error) {
	seen, ok, err := seenFile.Load()
	if err != nil {
		return nil, fmt.Errorf("load seen images: %w", err)
	}
	rec.SetSeenImages(len(seen))

	return &FeedPoller{
		source:   source,
		seenFile: seenFile,
		handoff:  handoff,
		metrics:  rec,
		log:      log,
		interval: interval,
		policy:   policy,
		seen:     seen,
		seeding:  !ok,
	}, nil
}

// Bootstrap seeds the seen set when no snapshot was found, retrying the
// fetch according to the poller's retry policy. If the retries run out the
// poller stays in seeding mode and the next successful poll seeds instead.
func (p *FeedPoller) Bootstrap(ctx context.Context) {
	p.mu.Lock()
	seeding := p.seeding
	p.mu.Unlock()
	if !seeding {
		return
	}

	p.log.Info("no seen images snapshot, seeding from current favourites")
	images, err := fetcher.FetchWithRetry(ctx, p.source, p.policy, p.log)
	if err != nil {
		p.log.Error("bootstrap fetch failed", "error", err)
		return
	}
	p.seed(images)
}

// Run polls the feed every interval until ctx is cancelled.
func (p *FeedPoller) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			p.Poll(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule feed poll: %w", err)
	}

	p.log.Info("feed poller started", "interval", p.interval)
	s.Start()

	<-ctx.Done()
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

// Poll runs one fetch cycle. Fetch errors are logged and the cycle ends
// without touching the seen set.
func (p *FeedPoller) Poll(ctx context.Context) {
	p.metrics.IncPolls(metrics.LoopFeed)

	images, err := p.source.Favorites(ctx)
	if err != nil {
		p.metrics.IncPollErrors(metrics.LoopFeed)
		p.log.Error("fetch favourites", "error", err)
		return
	}

	p.mu.Lock()
	if p.seeding {
		p.mu.Unlock()
		p.seed(images)
		return
	}
	fresh, updated := dedup.Filter(images, p.seen)
	grew := len(updated) > len(p.seen)
	p.seen = updated
	p.mu.Unlock()

	if grew {
		p.save(updated)
	}
	if len(fresh) == 0 {
		return
	}

	p.metrics.AddNewImages(len(fresh))
	p.log.Info("new favourites", "count", len(fresh))
	p.handoff.Offer(fresh)
}

// Seen returns a copy of the current seen set.
func (p *FeedPoller) Seen() model.SeenSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen.Clone()
}

func (p *FeedPoller) seed(images []model.Image) {
	p.mu.Lock()
	_, updated := dedup.Filter(images, p.seen)
	p.seen = updated
	p.seeding = false
	p.mu.Unlock()

	p.save(updated)
	p.log.Info("seeded seen images", "count", len(updated))
}

// save writes the snapshot. The in-memory set stays authoritative when the
// write fails.
func (p *FeedPoller) save(seen model.SeenSet) {
	p.metrics.SetSeenImages(len(seen))
	if err := p.seenFile.Save(seen); err != nil {
		p.log.Error("save seen images", "error", err)
	}
}
