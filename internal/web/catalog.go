package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) getSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.renderError(w, r, fmt.Errorf("%w: offset must be a non-negative number", errBadRequest))
			return
		}
		offset = n
	}

	result, err := s.deps.Catalog.Search(r.Context(), query, offset)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	// only a fresh search is remembered, not pagination
	if offset == 0 && s.deps.History != nil {
		if err := s.deps.History.Add(context.WithoutCancel(r.Context()), query); err != nil {
			s.logger.Debug("Could not record search", zap.Error(err))
		}
	}
	s.renderJSON(w, http.StatusOK, result)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.renderError(w, r, fmt.Errorf("%w: n must be a number", errBadRequest))
			return
		}
		n = v
	}
	items := s.deps.History.Recent(r.Context(), n)
	if items == nil {
		items = []string{}
	}
	s.renderJSON(w, http.StatusOK, items)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.History.Clear(r.Context()); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.History.Remove(r.Context(), pathParam(r, "item")); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.deps.Catalog.Album(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, album)
}

func (s *Server) getArtist(w http.ResponseWriter, r *http.Request) {
	artist, err := s.deps.Catalog.Artist(r.Context(), pathParam(r, "name"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, artist)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.deps.Catalog.Category(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, category)
}

// pathParam returns a decoded route parameter; chi leaves it escaped when the
// path contains encoded slashes
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (s *Server) getVideoPreview(w http.ResponseWriter, r *http.Request) {
	preview := s.deps.Catalog.VideoPreview(r.Context(), r.URL.Query().Get("q"))
	s.renderJSON(w, http.StatusOK, map[string]string{"url": preview})
}
