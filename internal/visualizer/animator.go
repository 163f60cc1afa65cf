package visualizer

import (
	"bytes"
	"context"
	"image"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/zap"
)

// Animator keeps the latest spectrum frame for the current viewport.
// It runs one frame loop while the session plays and renders a single idle
// frame otherwise.
type Animator struct {
	logger   *zap.Logger
	session  domain.SessionSource
	analyser domain.Analyser
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	viewport domain.ScreenResolution
	bands    []float64
	frame    *image.NRGBA
	signal   []byte
	playing  bool
	stopLoop context.CancelFunc
	loopDone chan struct{}
	cancel   func()
	done     chan struct{}
}

// NewAnimator creates a frame animator for the given viewport
func NewAnimator(
	logger *zap.Logger,
	cfg domain.Config,
	session domain.SessionSource,
	analyser domain.Analyser,
	viewport domain.ScreenResolution,
) *Animator {
	rate := cfg.GetRefreshRate()
	if rate <= 0 {
		rate = 60
	}
	a := &Animator{
		logger:   logger,
		session:  session,
		analyser: analyser,
		interval: time.Second / time.Duration(rate),
		now:      time.Now,
		viewport: viewport,
	}
	a.frame = RenderIdle(viewport.Width, viewport.Height, BandCount(viewport.Width))
	return a
}

// Start follows session snapshots until Stop or ctx is cancelled.
// It returns immediately (non-blocking).
func (a *Animator) Start(ctx context.Context) error {
	snapshots, cancel := a.session.Subscribe(4)
	a.mu.Lock()
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	a.setPlaying(ctx, a.session.Snapshot().Playing)
	go a.follow(ctx, snapshots)

	a.logger.Info("Visualizer started",
		zap.Int("width", a.viewport.Width),
		zap.Int("height", a.viewport.Height),
		zap.Duration("interval", a.interval))
	return nil
}

func (a *Animator) follow(ctx context.Context, snapshots <-chan domain.Session) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.setPlaying(ctx, false)
			return
		case s, ok := <-snapshots:
			if !ok {
				a.setPlaying(ctx, false)
				return
			}
			a.setPlaying(ctx, s.Playing)
		}
	}
}

// Stop ends the subscription and any running frame loop
func (a *Animator) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	a.logger.Info("Visualizer stopped")
	return nil
}

func (a *Animator) setPlaying(ctx context.Context, playing bool) {
	a.mu.Lock()
	if playing == a.playing && (playing == (a.stopLoop != nil)) {
		a.mu.Unlock()
		return
	}
	a.playing = playing

	if playing {
		loopCtx, stop := context.WithCancel(ctx)
		a.stopLoop = stop
		a.loopDone = make(chan struct{})
		go a.loop(loopCtx, a.loopDone)
		a.mu.Unlock()
		return
	}

	stop, done := a.stopLoop, a.loopDone
	a.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}

	a.mu.Lock()
	a.stopLoop, a.loopDone = nil, nil
	a.frame = RenderIdle(a.viewport.Width, a.viewport.Height, BandCount(a.viewport.Width))
	a.mu.Unlock()
}

func (a *Animator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick advances the animation by one frame
func (a *Animator) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	vp := a.viewport
	if a.signal == nil && a.analyser != nil {
		a.signal = make([]byte, a.analyser.FrequencyBinCount())
	}
	signal := Signal(a.analyser, a.signal)
	a.bands = ComputeFrame(BandCount(vp.Width), float64(vp.Height), signal, a.playing, a.bands, a.now())
	a.frame = Render(vp.Width, vp.Height, a.bands)
}

// SetViewport resizes the canvas. A change in band count restarts band history.
func (a *Animator) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if BandCount(width) != len(a.bands) {
		a.bands = nil
	}
	a.viewport = domain.ScreenResolution{Width: width, Height: height}
	if a.playing {
		a.frame = Render(width, height, a.bands)
	} else {
		a.frame = RenderIdle(width, height, BandCount(width))
	}
}

// Viewport returns the current canvas size
func (a *Animator) Viewport() domain.ScreenResolution {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewport
}

// Bands returns a copy of the latest band heights
func (a *Animator) Bands() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.bands...)
}

// Playing reports whether the frame loop is running
func (a *Animator) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopLoop != nil
}

// Frame returns the latest rendered frame
func (a *Animator) Frame() image.Image {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame
}

// PNG returns the latest frame encoded as PNG
func (a *Animator) PNG() ([]byte, error) {
	frame := a.Frame()
	var buf bytes.Buffer
	if err := EncodePNG(&buf, frame); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
