package visualizer

import (
	"context"
	"testing"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/genricoloni/volt/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubConfig struct {
	domain.Config
	refresh int
	vp      domain.ScreenResolution
}

func (c stubConfig) GetRefreshRate() int                  { return c.refresh }
func (c stubConfig) GetViewport() domain.ScreenResolution { return c.vp }

func newTestAnimator(store *session.Store, a domain.Analyser) *Animator {
	return NewAnimator(zap.NewNop(), stubConfig{refresh: 100}, store, a,
		domain.ScreenResolution{Width: 800, Height: 64})
}

func TestAnimator_TickUsesLiveSignal(t *testing.T) {
	an := &fakeAnalyser{data: make([]byte, 1024)}
	for i := range an.data {
		an.data[i] = 255
	}
	a := newTestAnimator(session.NewStore(), an)
	a.now = func() time.Time { return time.UnixMilli(0) }
	a.playing = true

	a.Tick()
	bands := a.Bands()
	require.Len(t, bands, 70)
	assert.Greater(t, bands[0], RestingHeight)
}

func TestAnimator_FollowsSession(t *testing.T) {
	store := session.NewStore()
	a := newTestAnimator(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	assert.False(t, a.Playing())

	store.Publish(domain.Session{Status: domain.StatusPlaying, Playing: true})
	require.Eventually(t, a.Playing, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(a.Bands()) == 70 }, time.Second, 5*time.Millisecond,
		"the loop should produce synthesized frames")

	store.Publish(domain.Session{Status: domain.StatusPaused})
	require.Eventually(t, func() bool { return !a.Playing() }, time.Second, 5*time.Millisecond)

	// idle frame: faint resting bars
	px := a.Frame().At(1, 63)
	_, _, _, alpha := px.RGBA()
	assert.InDelta(t, 51, int(alpha>>8), 3)

	require.NoError(t, a.Stop(context.Background()))
	require.NoError(t, a.Stop(context.Background()), "second stop is a no-op")
}

func TestAnimator_SetViewportResetsHistory(t *testing.T) {
	a := newTestAnimator(session.NewStore(), nil)
	a.playing = true
	a.Tick()
	require.Len(t, a.Bands(), 70)

	a.SetViewport(500, 48)
	assert.Empty(t, a.Bands())
	assert.Equal(t, domain.ScreenResolution{Width: 500, Height: 48}, a.Viewport())

	a.Tick()
	assert.Len(t, a.Bands(), 40)

	a.SetViewport(0, 10)
	assert.Equal(t, 500, a.Viewport().Width, "invalid sizes are ignored")
}

func TestAnimator_PNG(t *testing.T) {
	a := newTestAnimator(session.NewStore(), nil)
	data, err := a.PNG()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestViewportFor(t *testing.T) {
	screen := &domain.ScreenResolution{Width: 2560, Height: 1440}

	vp := ViewportFor(screen, stubConfig{})
	assert.Equal(t, domain.ScreenResolution{Width: 2560, Height: DefaultHeight}, vp)

	vp = ViewportFor(screen, stubConfig{vp: domain.ScreenResolution{Width: 600, Height: 80}})
	assert.Equal(t, domain.ScreenResolution{Width: 600, Height: 80}, vp)
}
