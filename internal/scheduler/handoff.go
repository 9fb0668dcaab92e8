package scheduler

import (
	"sync"

	"fave_relay/internal/model"
)

// Handoff passes batches of new images from the feed poller to the command
// loop. It holds at most one pending batch: offering while a batch is still
// pending merges the two, so the producer never blocks and nothing is lost.
type Handoff struct {
	mu   sync.Mutex
	slot chan []model.Image
}

// NewHandoff creates an empty Handoff.
func NewHandoff() *Handoff {
	return &Handoff{slot: make(chan []model.Image, 1)}
}

// Offer queues batch for the consumer. Empty batches are ignored.
func (h *Handoff) Offer(batch []model.Image) {
	if len(batch) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case pending := <-h.slot:
		batch = append(pending, batch...)
	default:
	}
	h.slot <- batch
}

// TryTake returns the pending batch, if any, without blocking.
func (h *Handoff) TryTake() ([]model.Image, bool) {
	select {
	case batch := <-h.slot:
		return batch, true
	default:
		return nil, false
	}
}
