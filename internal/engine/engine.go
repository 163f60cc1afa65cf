package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Engine orchestrates the artwork pipeline.
// It follows session snapshots, fetches the current track's artwork and renders
// the thumbnail and backdrop into the cache dir.
type Engine struct {
	logger    *zap.Logger
	session   domain.SessionSource
	fetcher   domain.Fetcher
	processor domain.ArtworkProcessor
	debounce  time.Duration

	mu      sync.RWMutex
	current domain.ArtworkFiles
	events  chan domain.ArtworkFiles

	cancel func()
	done   chan struct{}
}

// NewEngine creates a new artwork engine
func NewEngine(
	logger *zap.Logger,
	session domain.SessionSource,
	fetch domain.Fetcher,
	proc domain.ArtworkProcessor,
) *Engine {
	return &Engine{
		logger:    logger,
		session:   session,
		fetcher:   fetch,
		processor: proc,
		debounce:  defaultDebounce,
		events:    make(chan domain.ArtworkFiles, 4),
	}
}

// Events returns a channel that receives the artwork files after every change
func (e *Engine) Events() <-chan domain.ArtworkFiles {
	return e.events
}

// ArtworkPath returns the file for "thumb" or "backdrop", or "" when none is ready
func (e *Engine) ArtworkPath(kind string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current.Path(kind)
}

// Start launches the engine's event processing loop in a goroutine.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Artwork engine starting...")

	snapshots, cancel := e.session.Subscribe(8)
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.runLoop(ctx, snapshots)
	return nil
}

// runLoop debounces artwork changes so rapid skipping only renders the last track
func (e *Engine) runLoop(ctx context.Context, snapshots <-chan domain.Session) {
	defer close(e.done)

	timer := time.NewTimer(e.debounce)
	timer.Stop()

	seen := artworkURL(e.session.Snapshot())
	var pending *string
	if seen != "" {
		pending = &seen
		timer.Reset(0)
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Artwork engine loop stopped")
			return

		case s, ok := <-snapshots:
			if !ok {
				e.logger.Info("Session subscription closed")
				return
			}
			url := artworkURL(s)
			if url == seen {
				continue
			}
			seen = url
			e.logger.Debug("Artwork changed, debouncing...", zap.String("url", url))
			pending = &url
			timer.Reset(e.debounce)

		case <-timer.C:
			if pending != nil {
				e.process(ctx, *pending)
				pending = nil
			}
		}
	}
}

func artworkURL(s domain.Session) string {
	if s.Track == nil {
		return ""
	}
	return s.Track.Img
}

// process runs fetch and render for a single artwork URL
func (e *Engine) process(ctx context.Context, url string) {
	if url == "" {
		e.replace(domain.ArtworkFiles{})
		return
	}

	data, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.logger.Error("Failed to fetch artwork", zap.String("url", url), zap.Error(err))
		e.replace(domain.ArtworkFiles{})
		return
	}

	files, err := e.processor.Generate(ctx, data, artworkKey(url))
	if err != nil {
		e.logger.Error("Failed to render artwork", zap.String("url", url), zap.Error(err))
		e.replace(domain.ArtworkFiles{})
		return
	}

	e.replace(files)
	e.logger.Info("Artwork updated", zap.String("backdrop", files.Backdrop))
}

// replace swaps the current files, removes the stale ones and notifies listeners
func (e *Engine) replace(files domain.ArtworkFiles) {
	e.mu.Lock()
	old := e.current
	e.current = files
	e.mu.Unlock()

	if old == files {
		return
	}
	for _, path := range []string{old.Thumb, old.Backdrop} {
		if path == "" || path == files.Thumb || path == files.Backdrop {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Debug("Could not remove stale artwork", zap.String("path", path), zap.Error(err))
		}
	}

	select {
	case e.events <- files:
	default:
		e.logger.Warn("Artwork events channel full, dropping update")
	}
}

// artworkKey names cached files after their source URL
func artworkKey(url string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(url))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Stop ends the loop and removes the generated files
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Artwork engine stopping...")

	if e.cancel != nil {
		e.cancel()
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.replace(domain.ArtworkFiles{})
	return nil
}
