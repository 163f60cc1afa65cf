package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	// OutputSampleRate is the rate the audio device is opened at
	OutputSampleRate beep.SampleRate = 44100

	maxStreamSize   = 64 * 1024 * 1024
	resampleQuality = 4
	tickInterval    = 250 * time.Millisecond
)

// loadedTrack is a decoded source wired into the output chain:
// source -> resampler -> tap -> ctrl -> volume
type loadedTrack struct {
	url    string
	source beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume
	ended  atomic.Bool
}

func (t *loadedTrack) seconds(samples int) float64 {
	return t.format.SampleRate.D(samples).Seconds()
}

// Backend is a MediaBackend playing through beep.
// Lock order is b.mu then the output lock; output callbacks never take b.mu.
type Backend struct {
	logger *zap.Logger
	client *retryablehttp.Client
	out    Output
	tap    *Tap
	events chan domain.MediaEvent
	tick   time.Duration

	initOnce sync.Once
	initErr  error

	mu         sync.Mutex
	seq        uint64
	cancelLoad context.CancelFunc
	cur        *loadedTrack
	wantPlay   bool
	volume     float64

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Rate limiting for channel full warnings, in unix nanoseconds
	lastWarning atomic.Int64
}

// NewBackend creates a backend on the system speaker
func NewBackend(logger *zap.Logger) *Backend {
	return newBackend(logger, speakerOutput{})
}

func newBackend(logger *zap.Logger, out Output) *Backend {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 60 * time.Second
	client.Logger = nil

	return &Backend{
		logger: logger,
		client: client,
		out:    out,
		tap:    NewTap(),
		events: make(chan domain.MediaEvent, 32),
		tick:   tickInterval,
		volume: 1,
	}
}

func (b *Backend) init() error {
	b.initOnce.Do(func() {
		b.initErr = b.out.Init(OutputSampleRate)
		if b.initErr != nil {
			b.logger.Error("Failed to open audio output", zap.Error(b.initErr))
		}
	})
	return b.initErr
}

// Start launches the time-update ticker. It returns immediately.
func (b *Backend) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.emitTimeUpdate()
			}
		}
	}()
	return nil
}

// Shutdown stops the ticker and releases the current source
func (b *Backend) Shutdown(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return b.Stop()
}

// Events returns a read-only channel of lifecycle events
func (b *Backend) Events() <-chan domain.MediaEvent {
	return b.events
}

// Analyser returns the spectrum tap on the output
func (b *Backend) Analyser() domain.Analyser {
	return b.tap
}

// Load replaces the current source. Fetching and decoding happen in the background;
// a later Load supersedes this one.
func (b *Backend) Load(url string) error {
	if url == "" {
		return fmt.Errorf("empty source url: %w", domain.ErrPlayback)
	}
	if err := b.init(); err != nil {
		return fmt.Errorf("audio output: %v: %w", err, domain.ErrPlayback)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.unloadLocked()
	b.seq++
	seq := b.seq
	ctx, cancel := context.WithCancel(context.Background())
	b.cancelLoad = cancel

	go b.load(ctx, seq, url)
	return nil
}

func (b *Backend) load(ctx context.Context, seq uint64, url string) {
	start := time.Now()
	source, format, err := b.open(ctx, url)

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq {
		if source != nil {
			source.Close()
		}
		return
	}
	if err != nil {
		b.logger.Warn("Failed to load stream", zap.String("url", url), zap.Error(err))
		b.emit(domain.MediaEvent{Type: domain.EventError, Err: err, URL: url})
		return
	}

	t := &loadedTrack{url: url, source: source, format: format}
	var s beep.Streamer = source
	if format.SampleRate != OutputSampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, OutputSampleRate, s)
	}
	t.ctrl = &beep.Ctrl{Streamer: b.tap.Wrap(s), Paused: !b.wantPlay}
	t.volume = &effects.Volume{Streamer: t.ctrl, Base: 2}
	applyVolume(t.volume, b.volume)
	b.cur = t

	duration := t.seconds(source.Len())
	b.logger.Debug("Stream loaded",
		zap.String("url", url),
		zap.Int("sampleRate", int(format.SampleRate)),
		zap.Float64("duration", duration),
		zap.Duration("elapsed", time.Since(start)))

	b.emit(domain.MediaEvent{Type: domain.EventLoadedMetadata, Duration: duration, URL: url})
	b.queueLocked(t)
	if b.wantPlay {
		b.emit(domain.MediaEvent{Type: domain.EventPlay, URL: url})
	}
}

// open fetches and decodes url fully into memory so the stream can seek
func (b *Backend) open(ctx context.Context, url string) (beep.StreamSeekCloser, beep.Format, error) {
	data, err := b.fetch(ctx, url)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("fetch: %v: %w", err, domain.ErrPlayback)
	}
	s, format, err := decode(data)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%v: %w", err, domain.ErrPlayback)
	}
	return s, format, nil
}

func (b *Backend) fetch(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		return os.ReadFile(path)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStreamSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxStreamSize {
		return nil, errors.New("stream exceeds size limit")
	}
	return data, nil
}

// queueLocked hands the track chain to the output, followed by the end-of-stream callback
func (b *Backend) queueLocked(t *loadedTrack) {
	t.ended.Store(false)
	b.out.Play(beep.Seq(t.volume, beep.Callback(func() {
		// Runs under the output lock
		if t.ended.CompareAndSwap(false, true) {
			b.emit(domain.MediaEvent{Type: domain.EventEnded, URL: t.url})
		}
	})))
}

// unloadLocked cancels any pending load and drops the current source
func (b *Backend) unloadLocked() {
	if b.cancelLoad != nil {
		b.cancelLoad()
		b.cancelLoad = nil
	}
	b.wantPlay = false
	if b.cur == nil {
		return
	}
	b.out.Clear()
	if err := b.cur.source.Close(); err != nil {
		b.logger.Debug("Failed to close source", zap.Error(err))
	}
	b.cur = nil
}

// Play starts or resumes playback; before a load completes it marks the load to start playing
func (b *Backend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wantPlay = true
	t := b.cur
	if t == nil {
		return nil
	}

	if t.ended.Load() {
		b.out.Lock()
		err := t.source.Seek(0)
		t.ctrl.Paused = false
		b.out.Unlock()
		if err != nil {
			return fmt.Errorf("rewind: %w", err)
		}
		b.queueLocked(t)
	} else {
		b.out.Lock()
		wasPaused := t.ctrl.Paused
		t.ctrl.Paused = false
		b.out.Unlock()
		if !wasPaused {
			return nil
		}
	}

	b.emit(domain.MediaEvent{Type: domain.EventPlay, URL: t.url})
	return nil
}

// Pause halts output, keeping the position
func (b *Backend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wantPlay = false
	t := b.cur
	if t == nil || t.ended.Load() {
		return nil
	}

	b.out.Lock()
	wasPaused := t.ctrl.Paused
	t.ctrl.Paused = true
	b.out.Unlock()

	if !wasPaused {
		b.emit(domain.MediaEvent{Type: domain.EventPause, URL: t.url})
	}
	return nil
}

// Paused reports whether output is halted (including before load and after the end)
func (b *Backend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.cur
	if t == nil {
		return !b.wantPlay
	}
	if t.ended.Load() {
		return true
	}
	b.out.Lock()
	defer b.out.Unlock()
	return t.ctrl.Paused
}

// Seek moves the playhead, in seconds
func (b *Backend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.cur
	if t == nil {
		return domain.ErrNoTrack
	}

	b.out.Lock()
	last := t.source.Len() - 1
	if last < 0 {
		last = 0
	}
	pos := t.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if pos < 0 {
		pos = 0
	}
	if pos > last {
		pos = last
	}
	err := t.source.Seek(pos)
	position := t.seconds(t.source.Position())
	b.out.Unlock()
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	if t.ended.Load() {
		// Seeking after the end leaves the track paused at the new position
		b.out.Lock()
		t.ctrl.Paused = true
		b.out.Unlock()
		b.wantPlay = false
		b.queueLocked(t)
	}

	b.emit(domain.MediaEvent{Type: domain.EventTimeUpdate, Position: position, URL: t.url})
	return nil
}

// SetVolume sets the output gain in [0,1]
func (b *Backend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.volume = math.Max(0, math.Min(1, v))
	if t := b.cur; t != nil {
		b.out.Lock()
		applyVolume(t.volume, b.volume)
		b.out.Unlock()
	}
	return nil
}

// applyVolume maps a linear level onto the base-2 gain of effects.Volume
func applyVolume(vol *effects.Volume, v float64) {
	if v <= 0 {
		vol.Silent = true
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(v)
}

// Stop pauses and unloads the current source
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.unloadLocked()
	return nil
}

func (b *Backend) emitTimeUpdate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.cur
	if t == nil || t.ended.Load() {
		return
	}
	b.out.Lock()
	paused := t.ctrl.Paused
	position := t.seconds(t.source.Position())
	b.out.Unlock()

	if !paused {
		b.emit(domain.MediaEvent{Type: domain.EventTimeUpdate, Position: position, URL: t.url})
	}
}

// emit sends without blocking; may run under the output lock
func (b *Backend) emit(ev domain.MediaEvent) {
	select {
	case b.events <- ev:
	default:
		// Rate limit warning to at most once every 5 seconds
		now := time.Now().UnixNano()
		last := b.lastWarning.Load()
		if now-last > int64(5*time.Second) && b.lastWarning.CompareAndSwap(last, now) {
			b.logger.Warn("Media events channel full, dropping event",
				zap.String("type", string(ev.Type)))
		}
	}
}
