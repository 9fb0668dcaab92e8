// Package fetcher downloads the favourites feed and converts it to images.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fave_relay/internal/model"
)

// ErrStatus is returned when the feed answers with a non-success status.
var ErrStatus = errors.New("unexpected status")

const maxBodySize = 10 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source returns the full current favourites collection. There is no
// incremental mode: every call fetches everything.
type Source interface {
	Favorites(ctx context.Context) ([]model.Image, error)
}

// get downloads rawURL and returns the body of a 200 response.
func get(ctx context.Context, client HTTPClient, rawURL string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", redact(err))
	}
	req.Header.Set("User-Agent", "FaveRelayBot/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// redact strips the request URL, which may carry an API key, from err.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
