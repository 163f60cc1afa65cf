package session

import (
	"context"
	"errors"
	"sync"

	"github.com/genricoloni/volt/internal/domain"
)

// fakeBackend records requests; tests drive lifecycle events by hand
type fakeBackend struct {
	mu      sync.Mutex
	paused  bool
	loaded  string
	seeks   []float64
	volume  float64
	plays   int
	pauses  int
	stops   int
	loadErr error
	events  chan domain.MediaEvent
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{paused: true, volume: 1, events: make(chan domain.MediaEvent, 16)}
}

func (b *fakeBackend) Load(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return b.loadErr
	}
	b.loaded = url
	b.paused = true
	return nil
}

func (b *fakeBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays++
	b.paused = false
	return nil
}

func (b *fakeBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	b.paused = true
	return nil
}

func (b *fakeBackend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seeks = append(b.seeks, seconds)
	return nil
}

func (b *fakeBackend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = v
	return nil
}

func (b *fakeBackend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *fakeBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.paused = true
	b.loaded = ""
	return nil
}

func (b *fakeBackend) Events() <-chan domain.MediaEvent { return b.events }

func (b *fakeBackend) Analyser() domain.Analyser { return nil }

func (b *fakeBackend) lastSeek() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.seeks) == 0 {
		return 0, false
	}
	return b.seeks[len(b.seeks)-1], true
}

// memKV is an in-memory KVStore that can be switched into failure mode
type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	broken bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

var errDiskFull = errors.New("disk full")

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return "", errDiskFull
	}
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return errDiskFull
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken {
		return errDiskFull
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}
