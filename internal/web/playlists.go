package web

import (
	"fmt"
	"net/http"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/go-chi/chi/v5"
)

type playlistRequest struct {
	Name string `json:"name"`
}

type songRequest struct {
	Song domain.Song `json:"song"`
}

// songFromQuery reads the (title, artist) membership key from the query string
func songFromQuery(r *http.Request) (domain.Song, error) {
	q := r.URL.Query()
	song := domain.Song{Title: q.Get("title"), Artist: q.Get("artist")}
	if song.Title == "" {
		return song, fmt.Errorf("%w: title is required", errBadRequest)
	}
	return song, nil
}

func (s *Server) getPlaylists(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, s.deps.Playlists.List(r.Context()))
}

func (s *Server) postPlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.renderError(w, r, err)
			return
		}
	}
	pl, err := s.deps.Playlists.Create(r.Context(), req.Name)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusCreated, pl)
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	pl, err := s.deps.Playlists.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, pl)
}

func (s *Server) patchPlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Playlists.Rename(r.Context(), id, req.Name); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.getPlaylist(w, r)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Playlists.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postPlaylistSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	if req.Song.Title == "" {
		s.renderError(w, r, fmt.Errorf("%w: song title is required", errBadRequest))
		return
	}
	added, err := s.deps.Playlists.AddSong(r.Context(), chi.URLParam(r, "id"), req.Song)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	s.renderJSON(w, status, map[string]bool{"added": added})
}

func (s *Server) deletePlaylistSong(w http.ResponseWriter, r *http.Request) {
	song, err := songFromQuery(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := s.deps.Playlists.RemoveSong(r.Context(), chi.URLParam(r, "id"), song); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPlaylistContains(w http.ResponseWriter, r *http.Request) {
	song, err := songFromQuery(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, map[string]bool{
		"contains": s.deps.Playlists.ContainsAnywhere(r.Context(), song),
	})
}
