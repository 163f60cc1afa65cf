package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageKey holds every playlist as one JSON array, newest first
const StorageKey = "volt_playlists"

// DefaultName is used when a playlist is created or renamed with a blank name
const DefaultName = "My Playlist"

// Service manages user playlists in durable storage
type Service struct {
	logger   *zap.Logger
	kv       domain.KVStore
	notifier domain.ChangeNotifier
	events   chan []domain.Playlist
	now      func() time.Time

	// mu serializes read-modify-write cycles on the single storage key
	mu sync.Mutex
}

// NewService creates a playlist service. notifier may be nil.
func NewService(logger *zap.Logger, kv domain.KVStore, notifier domain.ChangeNotifier) *Service {
	return &Service{
		logger:   logger,
		kv:       kv,
		notifier: notifier,
		events:   make(chan []domain.Playlist, 4),
		now:      time.Now,
	}
}

// Events publishes the full playlist set after every change, including external ones
func (s *Service) Events() <-chan []domain.Playlist {
	return s.events
}

// Start refreshes subscribers whenever storage is modified by another process
func (s *Service) Start(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	changes := s.notifier.Changes()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				lists := s.List(ctx)
				s.logger.Info("Playlists changed externally, refreshing", zap.Int("count", len(lists)))
				s.emit(lists)
			}
		}
	}()
	return nil
}

func (s *Service) emit(lists []domain.Playlist) {
	select {
	case s.events <- lists:
	default:
		s.logger.Warn("Playlist events channel full, dropping refresh")
	}
}

// List returns all playlists. Unreadable storage reads as none.
func (s *Service) List(ctx context.Context) []domain.Playlist {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.Warn("Failed to read playlists", zap.Error(err))
		}
		return []domain.Playlist{}
	}
	var lists []domain.Playlist
	if err := json.Unmarshal([]byte(raw), &lists); err != nil {
		s.logger.Warn("Discarding unreadable playlists", zap.Error(err))
		return []domain.Playlist{}
	}
	for i := range lists {
		if lists[i].Songs == nil {
			lists[i].Songs = []domain.Song{}
		}
	}
	return lists
}

// Get returns one playlist
func (s *Service) Get(ctx context.Context, id string) (*domain.Playlist, error) {
	lists := s.List(ctx)
	i := indexOf(lists, id)
	if i < 0 {
		return nil, domain.ErrPlaylistNotFound
	}
	return &lists[i], nil
}

// Create prepends a new empty playlist
func (s *Service) Create(ctx context.Context, name string) (*domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	pl := domain.Playlist{
		ID:        "pl_" + uuid.NewString(),
		Name:      name,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
		Songs:     []domain.Song{},
	}

	err := s.update(ctx, func(lists []domain.Playlist) ([]domain.Playlist, error) {
		return append([]domain.Playlist{pl}, lists...), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Playlist created", zap.String("id", pl.ID), zap.String("name", pl.Name))
	return &pl, nil
}

// Rename changes a playlist name; a blank name keeps the current one
func (s *Service) Rename(ctx context.Context, id, name string) error {
	return s.update(ctx, func(lists []domain.Playlist) ([]domain.Playlist, error) {
		i := indexOf(lists, id)
		if i < 0 {
			return nil, domain.ErrPlaylistNotFound
		}
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			lists[i].Name = trimmed
		}
		return lists, nil
	})
}

// Delete removes a playlist
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(lists []domain.Playlist) ([]domain.Playlist, error) {
		i := indexOf(lists, id)
		if i < 0 {
			return nil, domain.ErrPlaylistNotFound
		}
		return append(lists[:i], lists[i+1:]...), nil
	})
}

// AddSong appends a snapshot of song. It reports false when the song was already present.
func (s *Service) AddSong(ctx context.Context, id string, song domain.Song) (bool, error) {
	added := false
	err := s.update(ctx, func(lists []domain.Playlist) ([]domain.Playlist, error) {
		i := indexOf(lists, id)
		if i < 0 {
			return nil, domain.ErrPlaylistNotFound
		}
		if lists[i].Contains(song) {
			return lists, nil
		}
		lists[i].Songs = append(lists[i].Songs, song.Snapshot())
		added = true
		return lists, nil
	})
	return added, err
}

// RemoveSong drops every entry matching song's (title, artist) key
func (s *Service) RemoveSong(ctx context.Context, id string, song domain.Song) error {
	key := song.MembershipKey()
	return s.update(ctx, func(lists []domain.Playlist) ([]domain.Playlist, error) {
		i := indexOf(lists, id)
		if i < 0 {
			return nil, domain.ErrPlaylistNotFound
		}
		kept := make([]domain.Song, 0, len(lists[i].Songs))
		for _, existing := range lists[i].Songs {
			if existing.MembershipKey() != key {
				kept = append(kept, existing)
			}
		}
		lists[i].Songs = kept
		return lists, nil
	})
}

// Contains reports whether song is in the given playlist
func (s *Service) Contains(ctx context.Context, id string, song domain.Song) bool {
	pl, err := s.Get(ctx, id)
	if err != nil {
		return false
	}
	return pl.Contains(song)
}

// ContainsAnywhere reports whether song is in any playlist
func (s *Service) ContainsAnywhere(ctx context.Context, song domain.Song) bool {
	for _, pl := range s.List(ctx) {
		if pl.Contains(song) {
			return true
		}
	}
	return false
}

func (s *Service) update(ctx context.Context, fn func([]domain.Playlist) ([]domain.Playlist, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := fn(s.List(ctx))
	if err != nil {
		return err
	}
	data, err := json.Marshal(lists)
	if err != nil {
		return fmt.Errorf("encode playlists: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save playlists: %w", err)
	}
	s.emit(lists)
	return nil
}

func indexOf(lists []domain.Playlist, id string) int {
	for i := range lists {
		if lists[i].ID == id {
			return i
		}
	}
	return -1
}
