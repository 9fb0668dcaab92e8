package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"fave_relay/internal/model"
)

// Booru reads favourites from a Philomena-style image board search API.
type Booru struct {
	client     HTTPClient
	baseURL    string
	searchPath string
	query      string
	key        string
	timeout    time.Duration
}

// NewBooru creates a Booru source for the board at baseURL.
func NewBooru(client HTTPClient, baseURL, searchPath, query, key string) *Booru {
	return &Booru{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		searchPath: searchPath,
		query:      query,
		key:        key,
		timeout:    30 * time.Second,
	}
}

// searchResponse accepts both the legacy "search" and the current "images"
// envelope.
type searchResponse struct {
	Search []wireImage `json:"search"`
	Images []wireImage `json:"images"`
}

type wireImage struct {
	ID              int64                 `json:"id"`
	Tags            json.RawMessage       `json:"tags"`
	SourceURL       *string               `json:"source_url"`
	ViewURL         string                `json:"view_url"`
	Representations model.Representations `json:"representations"`
	SHA512Hash      string                `json:"sha512_hash"`
	OrigSHA512Hash  string                `json:"orig_sha512_hash"`
}

// Favorites fetches and decodes the favourites search.
func (b *Booru) Favorites(ctx context.Context) ([]model.Image, error) {
	body, err := get(ctx, b.client, b.searchURL(), b.timeout)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	wire := resp.Images
	if wire == nil {
		wire = resp.Search
	}

	images := make([]model.Image, 0, len(wire))
	for _, w := range wire {
		img, err := b.convert(w)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", w.ID, err)
		}
		if img.ContentHash == "" {
			continue
		}
		images = append(images, img)
	}
	return images, nil
}

func (b *Booru) searchURL() string {
	q := url.Values{}
	q.Set("q", b.query)
	if b.key != "" {
		q.Set("key", b.key)
	}
	return b.baseURL + b.searchPath + "?" + q.Encode()
}

func (b *Booru) convert(w wireImage) (model.Image, error) {
	tags, err := decodeTags(w.Tags)
	if err != nil {
		return model.Image{}, err
	}

	id := strconv.FormatInt(w.ID, 10)
	hash := w.SHA512Hash
	if hash == "" {
		hash = w.OrigSHA512Hash
	}

	img := model.Image{
		ID:          id,
		Tags:        tags,
		PageURL:     b.baseURL + "/images/" + id,
		ContentHash: hash,
		Previews: model.Representations{
			Small:  b.absolute(w.Representations.Small),
			Medium: b.absolute(w.Representations.Medium),
			Large:  b.absolute(w.Representations.Large),
		},
	}
	if w.SourceURL != nil {
		img.SourceURL = *w.SourceURL
	}
	return img, nil
}

// absolute resolves protocol-relative and host-relative URLs.
func (b *Booru) absolute(u string) string {
	switch {
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return b.baseURL + u
	default:
		return u
	}
}

// decodeTags accepts either a comma-separated string or an array of tags.
func decodeTags(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("decode tags: %w", err)
	}
	return strings.Join(list, ", "), nil
}
