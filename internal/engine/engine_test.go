package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/genricoloni/volt/internal/domain/mocks"
	"github.com/genricoloni/volt/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type harness struct {
	engine    *Engine
	store     *session.Store
	fetcher   *mocks.MockFetcher
	processor *mocks.MockArtworkProcessor
	dir       string
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	h := &harness{
		store:     session.NewStore(),
		fetcher:   mocks.NewMockFetcher(ctrl),
		processor: mocks.NewMockArtworkProcessor(ctrl),
		dir:       t.TempDir(),
	}
	h.engine = NewEngine(zap.NewNop(), h.store, h.fetcher, h.processor)
	h.engine.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.engine.Start(ctx))
	t.Cleanup(func() {
		_ = h.engine.Stop(context.Background())
		cancel()
	})
	return h
}

// files creates real artwork files so removal can be observed
func (h *harness) files(t *testing.T, key string) domain.ArtworkFiles {
	f := domain.ArtworkFiles{
		Thumb:    filepath.Join(h.dir, key+"-thumb.jpg"),
		Backdrop: filepath.Join(h.dir, key+"-backdrop.jpg"),
	}
	require.NoError(t, os.WriteFile(f.Thumb, []byte("t"), 0644))
	require.NoError(t, os.WriteFile(f.Backdrop, []byte("b"), 0644))
	return f
}

func playing(img string) domain.Session {
	return domain.Session{
		Status:  domain.StatusPlaying,
		Playing: true,
		Track:   &domain.Track{Title: "Song", Img: img, StreamURL: "http://s/1"},
	}
}

func waitEvent(t *testing.T, e *Engine) domain.ArtworkFiles {
	t.Helper()
	select {
	case f := <-e.Events():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for artwork event")
		return domain.ArtworkFiles{}
	}
}

func TestEngine_RendersCurrentArtwork(t *testing.T) {
	h := newHarness(t)
	want := domain.ArtworkFiles{Thumb: "/c/a-thumb.jpg", Backdrop: "/c/a-backdrop.jpg"}

	h.fetcher.EXPECT().Fetch(gomock.Any(), "http://img/a.jpg").Return([]byte("jpeg"), nil)
	h.processor.EXPECT().Generate(gomock.Any(), []byte("jpeg"), artworkKey("http://img/a.jpg")).Return(want, nil)

	h.store.Publish(playing("http://img/a.jpg"))

	assert.Equal(t, want, waitEvent(t, h.engine))
	assert.Equal(t, want.Thumb, h.engine.ArtworkPath("thumb"))
	assert.Equal(t, want.Backdrop, h.engine.ArtworkPath("backdrop"))
	assert.Empty(t, h.engine.ArtworkPath("poster"))
}

func TestEngine_DebouncesRapidSkips(t *testing.T) {
	h := newHarness(t)
	want := domain.ArtworkFiles{Thumb: "/c/c-thumb.jpg", Backdrop: "/c/c-backdrop.jpg"}

	h.fetcher.EXPECT().Fetch(gomock.Any(), "http://img/c.jpg").Return([]byte("c"), nil).Times(1)
	h.processor.EXPECT().Generate(gomock.Any(), []byte("c"), gomock.Any()).Return(want, nil).Times(1)

	h.store.Publish(playing("http://img/a.jpg"))
	h.store.Publish(playing("http://img/b.jpg"))
	h.store.Publish(playing("http://img/c.jpg"))

	assert.Equal(t, want, waitEvent(t, h.engine))
}

func TestEngine_IgnoresUnchangedArtwork(t *testing.T) {
	h := newHarness(t)
	want := domain.ArtworkFiles{Thumb: "/c/a-thumb.jpg", Backdrop: "/c/a-backdrop.jpg"}

	h.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]byte("a"), nil).Times(1)
	h.processor.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(want, nil).Times(1)

	h.store.Publish(playing("http://img/a.jpg"))
	waitEvent(t, h.engine)

	paused := playing("http://img/a.jpg")
	paused.Playing = false
	paused.Status = domain.StatusPaused
	h.store.Publish(paused)
	h.store.Publish(playing("http://img/a.jpg"))

	select {
	case f := <-h.engine.Events():
		t.Fatalf("unexpected artwork event %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEngine_FailuresClearArtwork(t *testing.T) {
	h := newHarness(t)
	first := h.files(t, "a")

	h.fetcher.EXPECT().Fetch(gomock.Any(), "http://img/a.jpg").Return([]byte("a"), nil)
	h.processor.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(first, nil)
	h.fetcher.EXPECT().Fetch(gomock.Any(), "http://img/b.jpg").Return(nil, errors.New("url is not an image"))

	h.store.Publish(playing("http://img/a.jpg"))
	waitEvent(t, h.engine)

	h.store.Publish(playing("http://img/b.jpg"))
	assert.Equal(t, domain.ArtworkFiles{}, waitEvent(t, h.engine))
	assert.Empty(t, h.engine.ArtworkPath("thumb"))

	_, err := os.Stat(first.Thumb)
	assert.True(t, os.IsNotExist(err), "stale artwork is removed")
}

func TestEngine_ProcessorErrorClearsArtwork(t *testing.T) {
	h := newHarness(t)
	h.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]byte("x"), nil)
	h.processor.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.ArtworkFiles{}, errors.New("failed to decode image"))

	h.store.Publish(playing("http://img/x.jpg"))

	select {
	case f := <-h.engine.Events():
		t.Fatalf("no change expected, got %+v", f)
	case <-time.After(150 * time.Millisecond):
	}
	assert.Empty(t, h.engine.ArtworkPath("backdrop"))
}

func TestEngine_ClosedSessionClearsArtwork(t *testing.T) {
	h := newHarness(t)
	files := h.files(t, "a")

	h.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]byte("a"), nil)
	h.processor.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(files, nil)

	h.store.Publish(playing("http://img/a.jpg"))
	waitEvent(t, h.engine)

	h.store.Publish(domain.Session{Status: domain.StatusEmpty})
	assert.Equal(t, domain.ArtworkFiles{}, waitEvent(t, h.engine))

	_, err := os.Stat(files.Backdrop)
	assert.True(t, os.IsNotExist(err))
}

func TestEngine_StopRemovesFiles(t *testing.T) {
	h := newHarness(t)
	files := h.files(t, "s")

	h.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]byte("s"), nil)
	h.processor.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(files, nil)

	h.store.Publish(playing("http://img/s.jpg"))
	waitEvent(t, h.engine)

	require.NoError(t, h.engine.Stop(context.Background()))
	_, err := os.Stat(files.Thumb)
	assert.True(t, os.IsNotExist(err))
}

func TestArtworkKey(t *testing.T) {
	assert.Len(t, artworkKey("http://img/a.jpg"), 16)
	assert.Equal(t, artworkKey("http://img/a.jpg"), artworkKey("http://img/a.jpg"))
	assert.NotEqual(t, artworkKey("http://img/a.jpg"), artworkKey("http://img/b.jpg"))
}
