package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/zap"
)

// resolveTimeout bounds a resolution that no longer has a caller waiting on it
const resolveTimeout = 30 * time.Second

// Controller is the single authority over what should be playing and at what position.
// It owns the media backend; every mutation is published to the store before the call returns.
type Controller struct {
	logger   *zap.Logger
	resolver domain.Resolver
	backend  domain.MediaBackend
	store    *Store
	persist  *persister
	intn     func(n int) int

	mu         sync.Mutex
	state      domain.Session
	lastVolume float64
	// pending is applied on the next loaded-metadata event after a restore
	pending *savedSession
}

// Option configures a Controller
type Option func(*Controller)

// WithShuffleSource replaces the random source used by ShuffleRemaining
func WithShuffleSource(intn func(n int) int) Option {
	return func(c *Controller) {
		c.intn = intn
	}
}

// NewController creates the playback session controller
func NewController(
	logger *zap.Logger,
	resolver domain.Resolver,
	backend domain.MediaBackend,
	store *Store,
	kv domain.KVStore,
	opts ...Option,
) *Controller {
	c := &Controller{
		logger:     logger,
		resolver:   resolver,
		backend:    backend,
		store:      store,
		persist:    newPersister(kv, logger),
		intn:       rand.IntN,
		state:      domain.Session{Status: domain.StatusEmpty, Volume: 1},
		lastVolume: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current session
func (c *Controller) Snapshot() domain.Session {
	return c.store.Snapshot()
}

// Subscribe delegates to the session store
func (c *Controller) Subscribe(buffer int) (<-chan domain.Session, func()) {
	return c.store.Subscribe(buffer)
}

// publishLocked must be called with c.mu held
func (c *Controller) publishLocked() {
	c.store.Publish(c.state)
}

// Restore rebuilds the session persisted by a previous run.
// The track is loaded paused; position and play state are applied once metadata arrives.
func (c *Controller) Restore(ctx context.Context) {
	saved := c.persist.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Volume = saved.volume
	c.lastVolume = saved.lastVolume
	if err := c.backend.SetVolume(saved.volume); err != nil {
		c.logger.Warn("Failed to apply restored volume", zap.Error(err))
	}

	if saved.track == nil {
		c.logger.Info("No saved session to restore")
		c.publishLocked()
		return
	}

	c.state.Generation++
	c.state.Track = saved.track
	c.state.Queue = saved.queue
	c.state.Index = saved.index
	c.state.Position = saved.position
	c.state.Status = domain.StatusPaused
	c.state.Error = nil
	c.pending = &saved

	if err := c.backend.Load(saved.track.StreamURL); err != nil {
		c.failPlaybackLocked(err)
	}

	c.logger.Info("Session restored",
		zap.String("title", saved.track.Title),
		zap.Int("index", saved.index),
		zap.Int("queueLength", len(saved.queue)),
		zap.Float64("position", saved.position),
		zap.Bool("wasPlaying", saved.wasPlaying))
	c.publishLocked()
}

// Play resolves song and, unless a newer request superseded it, makes it the current track.
// An empty queue plays song alone. Resolution outlives ctx, bounded by resolveTimeout.
func (c *Controller) Play(ctx context.Context, song domain.Song, queue []domain.Song, index int) error {
	return c.play(ctx, song, queue, index, nil)
}

// play is Play with an optional guard checked under the lock before the generation moves.
// A false guard drops the request as superseded.
func (c *Controller) play(ctx context.Context, song domain.Song, queue []domain.Song, index int, guard func() bool) error {
	key := song.SearchKey()
	if key == "" {
		return domain.ErrNoSearchKey
	}
	if len(queue) == 0 {
		queue = []domain.Song{song}
		index = 0
	}
	if index < 0 || index >= len(queue) {
		return fmt.Errorf("index %d of %d: %w", index, len(queue), domain.ErrQueueBoundary)
	}
	queue = slices.Clone(queue)

	c.mu.Lock()
	if guard != nil && !guard() {
		c.mu.Unlock()
		return domain.ErrSuperseded
	}
	prevStatus, prevError := c.state.Status, c.state.Error
	c.state.Generation++
	gen := c.state.Generation
	c.state.Status = domain.StatusLoading
	c.state.Error = nil
	c.pending = nil
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("Resolving stream",
		zap.String("searchTerm", key),
		zap.Uint64("generation", gen))

	resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
	src, err := c.resolver.Resolve(resolveCtx, key)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.state.Generation {
		c.logger.Debug("Discarding stale resolution",
			zap.String("searchTerm", key),
			zap.Uint64("generation", gen),
			zap.Uint64("current", c.state.Generation))
		return domain.ErrSuperseded
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Info("Stream resolution abandoned",
			zap.String("searchTerm", key),
			zap.Error(err))
		c.state.Status = prevStatus
		c.state.Error = prevError
		c.publishLocked()
		return err
	}

	if err != nil {
		kind := domain.ClassifyResolution(err)
		c.logger.Warn("Stream resolution failed",
			zap.String("searchTerm", key),
			zap.String("kind", string(kind)),
			zap.Error(err))

		if c.state.Track != nil && !c.backend.Paused() {
			if perr := c.backend.Pause(); perr != nil {
				c.logger.Debug("Failed to pause after resolution failure", zap.Error(perr))
			}
		}
		c.state.Status = domain.StatusError
		c.state.Error = &domain.SessionError{Kind: kind, Song: song, Queue: queue, Index: index}
		c.publishLocked()

		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			return err
		}
		return &domain.ResolutionError{SearchTerm: key, Kind: kind, Err: err}
	}

	track := domain.NewTrack(song, src)
	c.state.Track = track
	c.state.Queue = queue
	c.state.Index = index
	c.state.Position = 0
	c.state.Duration = float64(song.DurationMs) / 1000
	c.state.Error = nil
	c.persist.saveTrack(context.WithoutCancel(ctx), track, queue, index)

	c.logger.Info("Now loading",
		zap.String("title", track.Title),
		zap.String("artist", track.Artist),
		zap.String("source", track.Source),
		zap.Int("index", index))

	if err := c.backend.Load(track.StreamURL); err != nil {
		c.failPlaybackLocked(err)
		c.publishLocked()
		return fmt.Errorf("load %s: %w", track.StreamURL, domain.ErrPlayback)
	}
	if err := c.backend.Play(); err != nil {
		c.logger.Debug("Play request failed", zap.Error(err))
	}
	c.publishLocked()
	return nil
}

// PlayFromQueue plays an arbitrary entry of the current queue
func (c *Controller) PlayFromQueue(ctx context.Context, index int) error {
	c.mu.Lock()
	queue := c.activeQueueLocked()
	c.mu.Unlock()

	if index < 0 || index >= len(queue) {
		return domain.ErrQueueBoundary
	}
	return c.Play(ctx, queue[index], queue, index)
}

// SkipNext plays the entry after the current one, or after the failed one while in error
func (c *Controller) SkipNext(ctx context.Context) error {
	return c.skip(ctx, 1)
}

// SkipPrevious plays the entry before the current one
func (c *Controller) SkipPrevious(ctx context.Context) error {
	return c.skip(ctx, -1)
}

func (c *Controller) skip(ctx context.Context, delta int) error {
	c.mu.Lock()
	queue := c.activeQueueLocked()
	target := c.activeIndexLocked() + delta
	c.mu.Unlock()

	if target < 0 || target >= len(queue) {
		return domain.ErrQueueBoundary
	}
	return c.Play(ctx, queue[target], queue, target)
}

func (c *Controller) activeQueueLocked() []domain.Song {
	if c.state.Error != nil && len(c.state.Error.Queue) > 0 {
		return c.state.Error.Queue
	}
	return c.state.Queue
}

func (c *Controller) activeIndexLocked() int {
	if c.state.Error != nil {
		return c.state.Error.Index
	}
	return c.state.Index
}

// Retry re-attempts the failed song at the same queue position
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	failed := c.state.Error
	c.mu.Unlock()

	if failed == nil {
		return domain.ErrNothingToRetry
	}
	return c.Play(ctx, failed.Song, failed.Queue, failed.Index)
}

// TogglePlayback asks the backend to play or pause. The playing flag follows backend events only.
func (c *Controller) TogglePlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Track == nil {
		return domain.ErrNoTrack
	}
	if c.backend.Paused() {
		return c.backend.Play()
	}
	return c.backend.Pause()
}

// Restart seeks to the beginning and requests playback
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Track == nil {
		return domain.ErrNoTrack
	}
	if err := c.backend.Seek(0); err != nil {
		return err
	}
	c.state.Position = 0
	c.publishLocked()
	if c.backend.Paused() {
		return c.backend.Play()
	}
	return nil
}

// Seek moves the playhead to seconds, clamped to [0, duration]
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Track == nil {
		return domain.ErrNoTrack
	}
	target := clamp(seconds, 0, c.state.Duration)
	if err := c.backend.Seek(target); err != nil {
		return err
	}
	c.state.Position = target
	c.persist.savePosition(context.Background(), target, c.state.Playing, true)
	c.publishLocked()
	return nil
}

// ShuffleRemaining permutes the entries strictly after the current index
func (c *Controller) ShuffleRemaining() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.state.Index + 1
	if len(c.state.Queue)-start <= 1 {
		return nil
	}

	queue := slices.Clone(c.state.Queue)
	rest := queue[start:]
	for i := len(rest) - 1; i > 0; i-- {
		j := c.intn(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}

	c.state.Queue = queue
	c.persist.saveQueue(context.Background(), queue)
	c.publishLocked()
	return nil
}

// SetVolume sets the output volume, clamped to [0,1]
func (c *Controller) SetVolume(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVolumeLocked(clamp(v, 0, 1))
}

func (c *Controller) setVolumeLocked(v float64) error {
	if err := c.backend.SetVolume(v); err != nil {
		return err
	}
	c.state.Volume = v
	c.persist.saveVolume(context.Background(), v)
	c.publishLocked()
	return nil
}

// ToggleMute silences output, or restores the exact volume in effect before muting
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Volume > 0 {
		c.lastVolume = c.state.Volume
		c.persist.saveLastVolume(context.Background(), c.lastVolume)
		return c.setVolumeLocked(0)
	}
	restore := c.lastVolume
	if restore <= 0 {
		restore = 1
	}
	return c.setVolumeLocked(restore)
}

// Close stops playback, forgets the session and invalidates in-flight resolutions
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.backend.Stop()
	c.state = domain.Session{
		Status:     domain.StatusEmpty,
		Volume:     c.state.Volume,
		Generation: c.state.Generation + 1,
	}
	c.pending = nil
	c.persist.clear(context.Background())
	c.publishLocked()

	c.logger.Info("Session closed")
	return err
}

// Run consumes backend lifecycle events until ctx is done
func (c *Controller) Run(ctx context.Context) {
	events := c.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.logger.Info("Media backend events channel closed")
				return
			}
			if gen, next := c.handleEvent(ev); next {
				go c.playNextIfGeneration(ctx, gen)
			}
		}
	}
}

// playNextIfGeneration plays the entry after the ended track, unless anything
// moved the session on since generation gen ended
func (c *Controller) playNextIfGeneration(ctx context.Context, gen uint64) {
	unchanged := func() bool {
		return c.state.Generation == gen && c.state.Status == domain.StatusEnded
	}

	c.mu.Lock()
	if !unchanged() {
		c.mu.Unlock()
		c.logger.Debug("Skipping auto-advance, session moved on", zap.Uint64("generation", gen))
		return
	}
	queue := c.state.Queue
	next := c.state.Index + 1
	c.mu.Unlock()

	if next >= len(queue) {
		return
	}
	err := c.play(ctx, queue[next], queue, next, unchanged)
	if err == nil || errors.Is(err, domain.ErrSuperseded) {
		return
	}
	c.logger.Warn("Auto-advance failed", zap.Error(err))
}

// handleEvent applies one backend event. When the queue should advance it
// reports true with the generation of the track that ended.
func (c *Controller) handleEvent(ev domain.MediaEvent) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Track == nil || (ev.URL != "" && ev.URL != c.state.Track.StreamURL) {
		c.logger.Debug("Ignoring event for inactive source",
			zap.String("type", string(ev.Type)),
			zap.String("url", ev.URL))
		return 0, false
	}
	ctx := context.Background()

	switch ev.Type {
	case domain.EventLoadedMetadata:
		c.state.Duration = ev.Duration
		if p := c.pending; p != nil {
			c.pending = nil
			if p.position > 0 {
				target := clamp(p.position, 0, ev.Duration)
				if err := c.backend.Seek(target); err == nil {
					c.state.Position = target
				}
			}
			if p.wasPlaying {
				if err := c.backend.Play(); err != nil {
					c.logger.Debug("Resume after restore failed", zap.Error(err))
				}
			}
		}

	case domain.EventTimeUpdate:
		c.state.Position = ev.Position
		c.persist.savePosition(ctx, ev.Position, c.state.Playing, false)

	case domain.EventPlay:
		c.state.Playing = true
		// a failed session leaves Error only through retry or skip
		if c.state.Error == nil {
			c.state.Status = domain.StatusPlaying
		}
		c.persist.savePosition(ctx, c.state.Position, true, true)

	case domain.EventPause:
		c.state.Playing = false
		if c.state.Status == domain.StatusPlaying || c.state.Status == domain.StatusLoading {
			c.state.Status = domain.StatusPaused
		}
		c.persist.savePosition(ctx, c.state.Position, false, true)

	case domain.EventEnded:
		c.state.Playing = false
		if c.state.Status == domain.StatusLoading {
			// the next track is already being resolved
			break
		}
		c.state.Position = c.state.Duration
		if c.state.Index+1 < len(c.state.Queue) {
			c.state.Status = domain.StatusEnded
			c.publishLocked()
			return c.state.Generation, true
		}
		c.state.Status = domain.StatusEmpty
		c.persist.savePosition(ctx, c.state.Position, false, true)

	case domain.EventError:
		c.failPlaybackLocked(ev.Err)

	default:
		return 0, false
	}

	c.publishLocked()
	return 0, false
}

// failPlaybackLocked records a backend failure for the current track
func (c *Controller) failPlaybackLocked(err error) {
	c.logger.Error("Playback failed", zap.Error(err))

	c.state.Playing = false
	c.state.Status = domain.StatusError
	c.state.Error = &domain.SessionError{
		Kind:  domain.KindPlayback,
		Song:  trackSong(c.state.Track),
		Queue: c.state.Queue,
		Index: c.state.Index,
	}
}

func trackSong(t *domain.Track) domain.Song {
	if t == nil {
		return domain.Song{}
	}
	return domain.Song{
		Title:      t.Title,
		Artist:     t.Artist,
		Img:        t.Img,
		Album:      t.Album,
		AlbumID:    t.AlbumID,
		SearchTerm: t.SearchTerm,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
