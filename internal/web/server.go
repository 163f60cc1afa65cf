package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// playsPerMinute bounds requests that resolve a stream
const playsPerMinute = 20

// Playlists is the playlist store used by the API
type Playlists interface {
	List(ctx context.Context) []domain.Playlist
	Get(ctx context.Context, id string) (*domain.Playlist, error)
	Create(ctx context.Context, name string) (*domain.Playlist, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	AddSong(ctx context.Context, id string, song domain.Song) (bool, error)
	RemoveSong(ctx context.Context, id string, song domain.Song) error
	ContainsAnywhere(ctx context.Context, song domain.Song) bool
	Events() <-chan []domain.Playlist
}

// History is the recent-search list
type History interface {
	Add(ctx context.Context, query string) error
	Recent(ctx context.Context, n int) []string
	Remove(ctx context.Context, query string) error
	Clear(ctx context.Context) error
}

// Health reports backend reachability
type Health interface {
	Status() domain.HealthStatus
	Check(ctx context.Context) domain.HealthStatus
	Events() <-chan domain.HealthStatus
}

// Visualizer exposes the latest spectrum frame
type Visualizer interface {
	PNG() ([]byte, error)
	Bands() []float64
	Viewport() domain.ScreenResolution
	SetViewport(width, height int)
}

// Deps are the services behind the API
type Deps struct {
	Player     domain.Player
	Session    domain.SessionSource
	Catalog    domain.Catalog
	Playlists  Playlists
	History    History
	Health     Health
	Visualizer Visualizer
	Artwork    domain.ArtworkSource
}

// Server is the HTTP control API
type Server struct {
	logger *zap.Logger
	addr   string
	deps   Deps
	hub    *hub
	router chi.Router

	mu     sync.Mutex
	http   *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer builds the router; call Start to listen
func NewServer(logger *zap.Logger, cfg domain.Config, deps Deps) *Server {
	s := &Server{
		logger: logger,
		addr:   cfg.GetListenAddr(),
		deps:   deps,
		hub:    newHub(),
	}
	s.router = s.routes(rate.NewLimiter(rate.Every(time.Minute/playsPerMinute), playsPerMinute))
	return s
}

// Handler returns the API router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(plays *rate.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.getSession)
		r.Get("/session/events", s.getSessionEvents)

		r.Route("/player", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.limitPlays(plays))
				r.Post("/play", s.postPlay)
				r.Post("/queue/{index}", s.postPlayFromQueue)
				r.Post("/next", s.postNext)
				r.Post("/previous", s.postPrevious)
				r.Post("/retry", s.postRetry)
			})
			r.Post("/toggle", s.postToggle)
			r.Post("/seek", s.postSeek)
			r.Post("/shuffle", s.postShuffle)
			r.Post("/volume", s.postVolume)
			r.Post("/mute", s.postMute)
			r.Post("/restart", s.postRestart)
			r.Post("/close", s.postClose)
		})

		r.Get("/search", s.getSearch)
		r.Get("/search/history", s.getHistory)
		r.Delete("/search/history", s.deleteHistory)
		r.Delete("/search/history/{item}", s.deleteHistoryItem)
		r.Get("/album/{id}", s.getAlbum)
		r.Get("/artist/{name}", s.getArtist)
		r.Get("/category/{id}", s.getCategory)
		r.Get("/video-preview", s.getVideoPreview)

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.getPlaylists)
			r.Post("/", s.postPlaylist)
			r.Get("/contains", s.getPlaylistContains)
			r.Get("/{id}", s.getPlaylist)
			r.Patch("/{id}", s.patchPlaylist)
			r.Delete("/{id}", s.deletePlaylist)
			r.Post("/{id}/songs", s.postPlaylistSong)
			r.Delete("/{id}/songs", s.deletePlaylistSong)
		})

		r.Get("/health", s.getHealth)
		r.Post("/health/check", s.postHealthCheck)

		r.Get("/visualizer/frame.png", s.getVisualizerFrame)
		r.Get("/visualizer/bands", s.getVisualizerBands)
		r.Put("/visualizer/viewport", s.putVisualizerViewport)

		r.Get("/artwork/{kind}", s.getArtwork)
	})
	return r
}

// Start listens on the configured address and forwards background events to
// stream clients. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.http = srv
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.forward(ctx)
	}()

	s.logger.Info("HTTP API listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// forward relays health and playlist changes to stream clients
func (s *Server) forward(ctx context.Context) {
	var health <-chan domain.HealthStatus
	if s.deps.Health != nil {
		health = s.deps.Health.Events()
	}
	var playlists <-chan []domain.Playlist
	if s.deps.Playlists != nil {
		playlists = s.deps.Playlists.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-health:
			if !ok {
				health = nil
				continue
			}
			s.hub.broadcast("health", st)
		case lists, ok := <-playlists:
			if !ok {
				playlists = nil
				continue
			}
			s.hub.broadcast("playlists", lists)
		}
	}
}

// Stop closes open streams and shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.http, s.cancel
	s.http, s.cancel = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	// streams watch the base context
	cancel()
	err := srv.Shutdown(ctx)
	s.wg.Wait()
	s.logger.Info("HTTP API stopped")
	return err
}
