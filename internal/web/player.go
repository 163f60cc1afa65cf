package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/go-chi/chi/v5"
)

type playRequest struct {
	Song  domain.Song   `json:"song"`
	Queue []domain.Song `json:"queue"`
	Index int           `json:"index"`
}

type seekRequest struct {
	Position *float64 `json:"position"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, s.deps.Session.Snapshot())
}

// command runs a player action and answers with the resulting snapshot
func (s *Server) command(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) postPlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.command(w, r, func(ctx context.Context) error {
		return s.deps.Player.Play(ctx, req.Song, req.Queue, req.Index)
	})
}

func (s *Server) postPlayFromQueue(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.renderError(w, r, fmt.Errorf("%w: queue index must be a number", errBadRequest))
		return
	}
	s.command(w, r, func(ctx context.Context) error {
		return s.deps.Player.PlayFromQueue(ctx, index)
	})
}

func (s *Server) postNext(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.deps.Player.SkipNext)
}

func (s *Server) postPrevious(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.deps.Player.SkipPrevious)
}

func (s *Server) postRetry(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.deps.Player.Retry)
}

func (s *Server) postToggle(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(context.Context) error { return s.deps.Player.TogglePlayback() })
}

func (s *Server) postSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	if req.Position == nil {
		s.renderError(w, r, fmt.Errorf("%w: position is required", errBadRequest))
		return
	}
	s.command(w, r, func(context.Context) error { return s.deps.Player.Seek(*req.Position) })
}

func (s *Server) postShuffle(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(context.Context) error { return s.deps.Player.ShuffleRemaining() })
}

func (s *Server) postVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	if req.Volume == nil {
		s.renderError(w, r, fmt.Errorf("%w: volume is required", errBadRequest))
		return
	}
	s.command(w, r, func(context.Context) error { return s.deps.Player.SetVolume(*req.Volume) })
}

func (s *Server) postMute(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(context.Context) error { return s.deps.Player.ToggleMute() })
}

func (s *Server) postRestart(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(context.Context) error { return s.deps.Player.Restart() })
}

func (s *Server) postClose(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(context.Context) error { return s.deps.Player.Close() })
}
