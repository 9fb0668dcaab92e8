package storage

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	json "github.com/goccy/go-json"

	"fave_relay/internal/model"
)

// Subscriptions is the set of chat subscriptions, persisted to a snapshot
// file after every mutation. It is safe for concurrent use; readers get a
// point-in-time copy from Snapshot.
type Subscriptions struct {
	mu    sync.RWMutex
	items map[model.Subscription]struct{}
	file  *snapshotFile
}

// OpenSubscriptions loads the subscription snapshot at path. A missing file
// yields an empty set; an unreadable or corrupt one is an error.
func OpenSubscriptions(path string) (*Subscriptions, error) {
	file, err := newSnapshotFile(path)
	if err != nil {
		return nil, err
	}

	s := &Subscriptions{
		items: make(map[model.Subscription]struct{}),
		file:  file,
	}

	data, err := file.read()
	if err != nil {
		if isNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var subs []model.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions %s: %w", path, err)
	}
	for _, sub := range subs {
		s.items[sub] = struct{}{}
	}
	return s, nil
}

// Add inserts sub and reports whether it was not already present. Adding an
// existing subscription is a no-op. A returned error means the snapshot could
// not be written; the in-memory set is updated regardless.
func (s *Subscriptions) Add(sub model.Subscription) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[sub]; ok {
		return false, nil
	}
	s.items[sub] = struct{}{}
	return true, s.save()
}

// Remove deletes the subscription with exactly this triple and reports
// whether one was removed.
func (s *Subscriptions) Remove(destination, filter string, owner int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.Subscription{Destination: destination, Filter: filter, Owner: owner}
	if _, ok := s.items[key]; !ok {
		return false, nil
	}
	delete(s.items, key)
	return true, s.save()
}

// RemoveAll deletes every subscription of owner for destination, whatever its
// filter, and returns how many were removed.
func (s *Subscriptions) RemoveAll(destination string, owner int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for sub := range s.items {
		if sub.Destination == destination && sub.Owner == owner {
			delete(s.items, sub)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.save()
}

// Snapshot returns a copy of the current subscriptions, ordered by
// destination, filter and owner.
func (s *Subscriptions) Snapshot() []model.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Len returns the number of subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Subscriptions) sorted() []model.Subscription {
	out := make([]model.Subscription, 0, len(s.items))
	for sub := range s.items {
		out = append(out, sub)
	}
	slices.SortFunc(out, func(a, b model.Subscription) int {
		return cmp.Or(
			cmp.Compare(a.Destination, b.Destination),
			cmp.Compare(a.Filter, b.Filter),
			cmp.Compare(a.Owner, b.Owner),
		)
	})
	return out
}

// save must be called with mu held.
func (s *Subscriptions) save() error {
	data, err := json.Marshal(s.sorted())
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}
	if err := s.file.write(data); err != nil {
		return fmt.Errorf("save subscriptions: %w", err)
	}
	return nil
}
