package media

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOutput mimics the speaker mixer; pump drives it by hand
type fakeOutput struct {
	mu        sync.Mutex
	streamers []beep.Streamer
}

func (f *fakeOutput) Init(beep.SampleRate) error { return nil }

func (f *fakeOutput) Play(s beep.Streamer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamers = append(f.streamers, s)
}

func (f *fakeOutput) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamers = nil
}

func (f *fakeOutput) Lock()   { f.mu.Lock() }
func (f *fakeOutput) Unlock() { f.mu.Unlock() }

// pump streams one buffer from every active streamer and drops finished ones
func (f *fakeOutput) pump(frames int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([][2]float64, frames)
	active := f.streamers[:0]
	for _, s := range f.streamers {
		if _, ok := s.Stream(buf); ok {
			active = append(active, s)
		}
	}
	f.streamers = active
}

// toneWAV encodes a short sine tone at a rate different from the output
func toneWAV(t *testing.T, length time.Duration) []byte {
	t.Helper()
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	tone, err := generators.SineTone(format.SampleRate, 440)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, beep.Take(format.SampleRate.N(length), tone), format))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func waitFor(t *testing.T, events <-chan domain.MediaEvent, want domain.MediaEventType, pump func()) domain.MediaEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		default:
			if pump != nil {
				pump()
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func TestBackend_LoadPlayEnd(t *testing.T) {
	data := toneWAV(t, 500*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(data)
	}))
	defer srv.Close()

	out := &fakeOutput{}
	b := newBackend(zap.NewNop(), out)
	url := srv.URL + "/tone.wav"

	require.NoError(t, b.Load(url))
	require.NoError(t, b.Play())
	assert.False(t, b.Paused(), "a play request before load completes is remembered")

	meta := waitFor(t, b.Events(), domain.EventLoadedMetadata, nil)
	assert.InDelta(t, 0.5, meta.Duration, 0.01)
	assert.Equal(t, url, meta.URL)
	waitFor(t, b.Events(), domain.EventPlay, nil)

	out.pump(1024)
	dst := make([]byte, b.Analyser().FrequencyBinCount())
	b.Analyser().ByteFrequencyData(dst)
	nonZero := false
	for _, v := range dst {
		if v > 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "tap should see the tone while playing")

	require.NoError(t, b.Pause())
	waitFor(t, b.Events(), domain.EventPause, nil)
	assert.True(t, b.Paused())

	require.NoError(t, b.Play())
	waitFor(t, b.Events(), domain.EventPlay, nil)
	waitFor(t, b.Events(), domain.EventEnded, func() { out.pump(4096) })
	assert.True(t, b.Paused(), "an ended track reports paused")

	require.NoError(t, b.Seek(0.1))
	ev := waitFor(t, b.Events(), domain.EventTimeUpdate, nil)
	assert.InDelta(t, 0.1, ev.Position, 0.01)
}

func TestBackend_SeekClampsToLength(t *testing.T) {
	data := toneWAV(t, 200*time.Millisecond)
	path := filepath.Join(t.TempDir(), "short.wav")
	require.NoError(t, os.WriteFile(path, data, 0644))

	b := newBackend(zap.NewNop(), &fakeOutput{})
	assert.ErrorIs(t, b.Seek(1), domain.ErrNoTrack)

	require.NoError(t, b.Load("file://"+path))
	waitFor(t, b.Events(), domain.EventLoadedMetadata, nil)

	require.NoError(t, b.Seek(30))
	ev := waitFor(t, b.Events(), domain.EventTimeUpdate, nil)
	assert.LessOrEqual(t, ev.Position, 0.2)
}

func TestBackend_HTTPFailureEmitsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	b := newBackend(zap.NewNop(), &fakeOutput{})
	require.NoError(t, b.Load(srv.URL+"/missing.mp3"))

	ev := waitFor(t, b.Events(), domain.EventError, nil)
	assert.ErrorIs(t, ev.Err, domain.ErrPlayback)
}

func TestBackend_LoadRejectsEmptyURL(t *testing.T) {
	b := newBackend(zap.NewNop(), &fakeOutput{})
	assert.ErrorIs(t, b.Load(""), domain.ErrPlayback)
}

func TestBackend_VolumeMapping(t *testing.T) {
	data := toneWAV(t, 100*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	b := newBackend(zap.NewNop(), &fakeOutput{})
	require.NoError(t, b.SetVolume(0.5))
	require.NoError(t, b.Load(srv.URL))
	waitFor(t, b.Events(), domain.EventLoadedMetadata, nil)

	b.mu.Lock()
	vol := b.cur.volume
	b.mu.Unlock()
	assert.InDelta(t, -1.0, vol.Volume, 1e-9)
	assert.False(t, vol.Silent)

	require.NoError(t, b.SetVolume(0))
	assert.True(t, vol.Silent)
}

func TestBackend_StopUnloads(t *testing.T) {
	data := toneWAV(t, 100*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	out := &fakeOutput{}
	b := newBackend(zap.NewNop(), out)
	require.NoError(t, b.Load(srv.URL))
	waitFor(t, b.Events(), domain.EventLoadedMetadata, nil)

	require.NoError(t, b.Stop())
	assert.True(t, b.Paused())
	assert.Empty(t, out.streamers)
	assert.ErrorIs(t, b.Seek(0), domain.ErrNoTrack)
}

func TestBackend_TickerEmitsTimeUpdates(t *testing.T) {
	data := toneWAV(t, 2*time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	b := newBackend(zap.NewNop(), &fakeOutput{})
	b.tick = 5 * time.Millisecond
	require.NoError(t, b.Start(t.Context()))
	defer b.Shutdown(t.Context())

	require.NoError(t, b.Load(srv.URL))
	require.NoError(t, b.Play())
	waitFor(t, b.Events(), domain.EventTimeUpdate, nil)
}
