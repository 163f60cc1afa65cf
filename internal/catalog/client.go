package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	// MaxQueryLength is the longest query or search term the backend accepts
	MaxQueryLength = 200
	// hasMoreThreshold is the page size at which more results are assumed to exist
	hasMoreThreshold = 50

	maxResponseSize = 4 * 1024 * 1024
)

// Client talks to the backend API.
// Browse lookups retry with backoff; stream resolution never retries.
type Client struct {
	logger  *zap.Logger
	baseURL *url.URL

	lookups  *retryablehttp.Client
	resolves *retryablehttp.Client
	breaker  *gobreaker.CircuitBreaker
}

// Options tunes retry and breaker behaviour
type Options struct {
	Timeout      time.Duration
	MaxRetries   int
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	TripAfter    uint32
	BreakerReset time.Duration
}

// DefaultOptions returns the settings used by the daemon
func DefaultOptions() Options {
	return Options{
		Timeout:      15 * time.Second,
		MaxRetries:   2,
		MinBackoff:   500 * time.Millisecond,
		MaxBackoff:   3 * time.Second,
		TripAfter:    5,
		BreakerReset: 30 * time.Second,
	}
}

// NewClient creates a backend client using the configured API base URL
func NewClient(logger *zap.Logger, cfg domain.Config) (*Client, error) {
	return NewClientWithOptions(logger, cfg.GetAPIBaseURL(), DefaultOptions())
}

// NewClientWithOptions creates a backend client rooted at baseURL
func NewClientWithOptions(logger *zap.Logger, baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}

	leveled := &leveledLogger{s: logger.Named("http").Sugar()}

	lookups := retryablehttp.NewClient()
	lookups.RetryMax = opts.MaxRetries
	lookups.RetryWaitMin = opts.MinBackoff
	lookups.RetryWaitMax = opts.MaxBackoff
	lookups.HTTPClient.Timeout = opts.Timeout
	lookups.Logger = leveled
	lookups.ErrorHandler = retryablehttp.PassthroughErrorHandler

	resolves := retryablehttp.NewClient()
	resolves.RetryMax = 0
	resolves.HTTPClient.Timeout = opts.Timeout
	resolves.Logger = leveled
	resolves.ErrorHandler = retryablehttp.PassthroughErrorHandler

	tripAfter := opts.TripAfter
	settings := gobreaker.Settings{
		Name:        "volt-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		// Only an unreachable backend counts against the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrNetwork)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Backend circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		logger:   logger,
		baseURL:  base,
		lookups:  lookups,
		resolves: resolves,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

type playRequest struct {
	SearchTerm string `json:"search_term"`
}

// Resolve asks the backend for a playable stream. It is never retried.
func (c *Client) Resolve(ctx context.Context, searchTerm string) (domain.StreamSource, error) {
	term := strings.TrimSpace(searchTerm)
	if term == "" || len(term) > MaxQueryLength {
		return domain.StreamSource{}, &domain.ResolutionError{
			SearchTerm: searchTerm,
			Kind:       domain.KindStream,
			Err:        fmt.Errorf("search term must be 1-%d characters: %w", MaxQueryLength, domain.ErrStream),
		}
	}

	var src domain.StreamSource
	err := c.execute(func() error {
		status, err := c.doJSON(ctx, c.resolves, http.MethodPost, "play", nil, playRequest{SearchTerm: term}, &src)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("play returned status %d: %w", status, domain.ErrStream)
		}
		return nil
	})
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return domain.StreamSource{}, fmt.Errorf("resolve %q: %w", term, ctxErr)
	}
	if err != nil {
		return domain.StreamSource{}, &domain.ResolutionError{
			SearchTerm: term,
			Kind:       domain.ClassifyResolution(err),
			Err:        err,
		}
	}

	if src.URL == "" {
		return domain.StreamSource{}, &domain.ResolutionError{
			SearchTerm: term,
			Kind:       domain.KindStream,
			Err:        fmt.Errorf("empty stream url: %w", domain.ErrStream),
		}
	}
	src.URL = c.absolute(src.URL)

	c.logger.Debug("Stream resolved",
		zap.String("searchTerm", term),
		zap.String("source", src.Source))
	return src, nil
}

// absolute resolves proxy paths such as /api/stream?q= against the API host
func (c *Client) absolute(raw string) string {
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return c.baseURL.ResolveReference(ref).String()
}

type searchRequest struct {
	Query  string `json:"query"`
	Offset int    `json:"offset"`
}

// Search runs a categorized search
func (c *Client) Search(ctx context.Context, query string, offset int) (*domain.SearchResult, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	var result domain.SearchResult
	if err := c.lookup(ctx, http.MethodPost, "search", nil, searchRequest{Query: q, Offset: offset}, &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	result.HasMore = result.Total() >= hasMoreThreshold
	return &result, nil
}

// Album fetches an album page
func (c *Client) Album(ctx context.Context, albumID string) (*domain.AlbumDetail, error) {
	var album domain.AlbumDetail
	if err := c.lookup(ctx, http.MethodGet, "album/"+url.PathEscape(albumID), nil, nil, &album); err != nil {
		return nil, fmt.Errorf("album %s: %w", albumID, err)
	}
	return &album, nil
}

// Artist fetches an artist page
func (c *Client) Artist(ctx context.Context, name string) (*domain.ArtistDetail, error) {
	var artist domain.ArtistDetail
	if err := c.lookup(ctx, http.MethodGet, "artist/"+url.PathEscape(name), nil, nil, &artist); err != nil {
		return nil, fmt.Errorf("artist %s: %w", name, err)
	}
	return &artist, nil
}

// Category fetches a curated category
func (c *Client) Category(ctx context.Context, categoryID string) (*domain.Category, error) {
	var cat domain.Category
	if err := c.lookup(ctx, http.MethodGet, "category/"+url.PathEscape(categoryID), nil, nil, &cat); err != nil {
		return nil, fmt.Errorf("category %s: %w", categoryID, err)
	}
	return &cat, nil
}

type previewResponse struct {
	VideoURL string `json:"video_url"`
}

// VideoPreview returns a preview clip URL, or "" on any failure
func (c *Client) VideoPreview(ctx context.Context, query string) string {
	q, err := normalizeQuery(query)
	if err != nil {
		return ""
	}
	var resp previewResponse
	if err := c.lookup(ctx, http.MethodGet, "video-preview", url.Values{"q": {q}}, nil, &resp); err != nil {
		c.logger.Debug("No video preview", zap.String("query", q), zap.Error(err))
		return ""
	}
	if resp.VideoURL == "" {
		return ""
	}
	return c.absolute(resp.VideoURL)
}

// lookup runs a retried request through the breaker and requires a 200 response
func (c *Client) lookup(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	return c.execute(func() error {
		status, err := c.doJSON(ctx, c.lookups, method, path, query, body, out)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return ErrNotFound
		}
		if status != http.StatusOK {
			return fmt.Errorf("unexpected status %d", status)
		}
		return nil
	})
}

func (c *Client) execute(fn func() error) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%v: %w", err, domain.ErrNetwork)
	}
	return err
}

// doJSON sends body as JSON and decodes a 200 response into out.
// Transport failures are wrapped in domain.ErrNetwork unless ctx ended; the status code is returned otherwise.
func (c *Client) doJSON(ctx context.Context, client *retryablehttp.Client, method, path string, query url.Values, body, out interface{}) (int, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return 0, fmt.Errorf("build url for %s: %w", path, err)
	}
	target := c.baseURL.ResolveReference(ref)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var payload interface{}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		// a caller giving up says nothing about connectivity
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return 0, fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp.StatusCode, fmt.Errorf("read %s: %w", path, ctxErr)
		}
		return resp.StatusCode, fmt.Errorf("read %s: %v: %w", path, err, domain.ErrNetwork)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Backend returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", errorMessage(data)))
		return resp.StatusCode, nil
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// errorMessage extracts {"error": "..."} from a backend error body
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}

func normalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuery
	}
	if len(q) > MaxQueryLength {
		return "", ErrQueryTooLong
	}
	return q, nil
}

var (
	// ErrNotFound is returned when the backend has no such album, artist or category
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery is returned for blank queries
	ErrEmptyQuery = errors.New("query is required")
	// ErrQueryTooLong is returned for queries over MaxQueryLength characters
	ErrQueryTooLong = fmt.Errorf("query must be at most %d characters", MaxQueryLength)
)
