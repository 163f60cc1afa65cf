package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10 MB
	fetchTimeout = 10 * time.Second
	userAgent    = "volt/1.0"
)

var (
	// ErrNotImage is returned when the response is not an image
	ErrNotImage = errors.New("url is not an image")
	// ErrTooLarge is returned when the artwork exceeds the size cap
	ErrTooLarge = errors.New("artwork exceeds size limit")
)

// HTTPFetcher downloads artwork over HTTP(S)
type HTTPFetcher struct {
	logger *zap.Logger
	client *retryablehttp.Client
	limit  int64
}

// NewHTTPFetcher creates a new HTTP-based fetcher instance
func NewHTTPFetcher(logger *zap.Logger) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = fetchTimeout
	client.RetryMax = 1
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{
		logger: logger,
		client: client,
		limit:  maxImageSize,
	}
}

// Fetch downloads image data from the given URL
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("unsupported artwork url: %q", url)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.limit)
	}

	f.logger.Debug("Artwork fetched", zap.Int("bytes", len(data)), zap.String("url", url))
	return data, nil
}
