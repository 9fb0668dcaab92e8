package fetcher

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"fave_relay/internal/model"
)

// RSS reads favourites from an RSS or Atom feed whose items carry an image
// enclosure. Item categories are used as tags.
type RSS struct {
	client  HTTPClient
	url     string
	timeout time.Duration
}

// NewRSS creates an RSS source for feedURL.
func NewRSS(client HTTPClient, feedURL string) *RSS {
	return &RSS{client: client, url: feedURL, timeout: 30 * time.Second}
}

// Favorites fetches the feed and converts every item that has an image.
func (r *RSS) Favorites(ctx context.Context) ([]model.Image, error) {
	body, err := get(ctx, r.client, r.url, r.timeout)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	images := make([]model.Image, 0, len(feed.Items))
	for _, item := range feed.Items {
		imageURL := itemImage(item)
		if imageURL == "" {
			continue
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}
		sum := sha512.Sum512([]byte(imageURL))

		images = append(images, model.Image{
			ID:          id,
			Tags:        strings.Join(item.Categories, ", "),
			PageURL:     item.Link,
			Previews:    model.Representations{Large: imageURL},
			ContentHash: "sha512:" + hex.EncodeToString(sum[:]),
		})
	}
	return images, nil
}

func itemImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}
