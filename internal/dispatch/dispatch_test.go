package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"fave_relay/internal/metrics"
	"fave_relay/internal/model"
)

type sentPhoto struct {
	Destination string
	PhotoURL    string
	Caption     string
}

type mockSender struct {
	mu     sync.Mutex
	sent   []sentPhoto
	failTo map[string]bool
}

func (m *mockSender) SendPhoto(_ context.Context, destination, photoURL, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[destination] {
		return errors.New("chat not found")
	}
	m.sent = append(m.sent, sentPhoto{Destination: destination, PhotoURL: photoURL, Caption: caption})
	return nil
}

type staticSubs []model.Subscription

func (s staticSubs) Snapshot() []model.Subscription { return s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sortDeliveries(a, b Delivery) bool {
	if a.Destination != b.Destination {
		return a.Destination < b.Destination
	}
	return a.Image.ContentHash < b.Image.ContentHash
}

func TestMatch(t *testing.T) {
	subs := []model.Subscription{
		{Destination: "chatA", Filter: "foo", Owner: 1},
		{Destination: "chatB", Filter: model.MatchAll, Owner: 2},
	}
	fooBar := model.Image{ID: "1", Tags: "foo, bar", ContentHash: "h1"}
	baz := model.Image{ID: "2", Tags: "baz", ContentHash: "h2"}

	tests := []struct {
		name   string
		images []model.Image
		subs   []model.Subscription
		want   []Delivery
	}{
		{
			name:   "image matching both subscriptions",
			images: []model.Image{fooBar},
			subs:   subs,
			want: []Delivery{
				{Destination: "chatA", Image: fooBar},
				{Destination: "chatB", Image: fooBar},
			},
		},
		{
			name:   "image matching only the match-all subscription",
			images: []model.Image{baz},
			subs:   subs,
			want:   []Delivery{{Destination: "chatB", Image: baz}},
		},
		{
			name:   "batch of two",
			images: []model.Image{fooBar, baz},
			subs:   subs,
			want: []Delivery{
				{Destination: "chatA", Image: fooBar},
				{Destination: "chatB", Image: fooBar},
				{Destination: "chatB", Image: baz},
			},
		},
		{
			name:   "no subscriptions",
			images: []model.Image{fooBar},
			want:   nil,
		},
		{
			name: "no images",
			subs: subs,
			want: nil,
		},
		{
			name:   "partial tag does not match",
			images: []model.Image{{ID: "3", Tags: "food, foobar", ContentHash: "h3"}},
			subs:   subs[:1],
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.images, tt.subs)
			if diff := cmp.Diff(tt.want, got, cmpopts.SortSlices(sortDeliveries), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("deliveries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	subs := staticSubs{
		{Destination: "100", Filter: "foo", Owner: 1},
		{Destination: "@channel", Filter: model.MatchAll, Owner: 2},
	}
	img := model.Image{
		ID:          "7",
		Tags:        "foo, artist:someone",
		PageURL:     "https://booru.example.com/images/7",
		SourceURL:   "https://artist.example.com/7",
		Previews:    model.Representations{Medium: "https://cdn.example.com/7/m.png", Large: "https://cdn.example.com/7/l.png"},
		ContentHash: "h7",
	}
	caption := "https://booru.example.com/images/7\nartist:someone\nhttps://artist.example.com/7"

	sender := &mockSender{}
	d := New(subs, sender, 0, metrics.Noop{}, discardLogger())

	if got := d.Dispatch(context.Background(), []model.Image{img}); got != 2 {
		t.Errorf("expected 2 sent, got %d", got)
	}

	want := []sentPhoto{
		{Destination: "100", PhotoURL: "https://cdn.example.com/7/l.png", Caption: caption},
		{Destination: "@channel", PhotoURL: "https://cdn.example.com/7/l.png", Caption: caption},
	}
	less := func(a, b sentPhoto) bool { return a.Destination < b.Destination }
	if diff := cmp.Diff(want, sender.sent, cmpopts.SortSlices(less)); diff != "" {
		t.Errorf("sent photos mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchSendFailure(t *testing.T) {
	subs := staticSubs{
		{Destination: "100", Filter: model.MatchAll, Owner: 1},
		{Destination: "200", Filter: model.MatchAll, Owner: 1},
	}
	sender := &mockSender{failTo: map[string]bool{"100": true}}
	m := metrics.New()
	d := New(subs, sender, 0, m, discardLogger())

	got := d.Dispatch(context.Background(), []model.Image{{ID: "1", ContentHash: "h1"}})
	if got != 1 {
		t.Errorf("expected 1 sent, got %d", got)
	}
	if len(sender.sent) != 1 || sender.sent[0].Destination != "200" {
		t.Errorf("unexpected sends: %+v", sender.sent)
	}
}

func TestDispatchEmptyBatch(t *testing.T) {
	sender := &mockSender{}
	d := New(staticSubs{{Destination: "1", Filter: model.MatchAll}}, sender, 0, metrics.Noop{}, discardLogger())

	if got := d.Dispatch(context.Background(), nil); got != 0 {
		t.Errorf("expected 0 sent, got %d", got)
	}
	if len(sender.sent) != 0 {
		t.Errorf("unexpected sends: %+v", sender.sent)
	}
}

func TestDispatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &mockSender{}
	d := New(staticSubs{{Destination: "1", Filter: model.MatchAll}}, sender, 1, metrics.Noop{}, discardLogger())

	if got := d.Dispatch(ctx, []model.Image{{ID: "1", ContentHash: "h1"}}); got != 0 {
		t.Errorf("expected 0 sent, got %d", got)
	}
}

func TestCaption(t *testing.T) {
	tests := []struct {
		name string
		img  model.Image
		want string
	}{
		{
			name: "all parts",
			img:  model.Image{PageURL: "https://b/images/1", Tags: "safe, artist:x", SourceURL: "https://src/1"},
			want: "https://b/images/1\nartist:x\nhttps://src/1",
		},
		{
			name: "no artist",
			img:  model.Image{PageURL: "https://b/images/1", Tags: "safe", SourceURL: "https://src/1"},
			want: "https://b/images/1\nhttps://src/1",
		},
		{
			name: "no source",
			img:  model.Image{PageURL: "https://b/images/1", Tags: "artist:x"},
			want: "https://b/images/1\nartist:x",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Caption(tt.img)); diff != "" {
				t.Errorf("caption mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPhotoURL(t *testing.T) {
	tests := []struct {
		name string
		prev model.Representations
		want string
	}{
		{name: "large", prev: model.Representations{Small: "s", Medium: "m", Large: "l"}, want: "l"},
		{name: "medium", prev: model.Representations{Small: "s", Medium: "m"}, want: "m"},
		{name: "small", prev: model.Representations{Small: "s"}, want: "s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, PhotoURL(model.Image{Previews: tt.prev})); diff != "" {
				t.Errorf("photo url mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
