package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, s.deps.Health.Status())
}

func (s *Server) postHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, s.deps.Health.Check(r.Context()))
}

func (s *Server) getVisualizerFrame(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Visualizer.PNG()
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("Failed to write frame", zap.Error(err))
	}
}

func (s *Server) getVisualizerBands(w http.ResponseWriter, r *http.Request) {
	vp := s.deps.Visualizer.Viewport()
	bands := s.deps.Visualizer.Bands()
	if bands == nil {
		bands = []float64{}
	}
	s.renderJSON(w, http.StatusOK, map[string]interface{}{
		"width":  vp.Width,
		"height": vp.Height,
		"bands":  bands,
	})
}

func (s *Server) putVisualizerViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		s.renderError(w, r, fmt.Errorf("%w: width and height must be positive", errBadRequest))
		return
	}
	s.deps.Visualizer.SetViewport(req.Width, req.Height)
	s.renderJSON(w, http.StatusOK, s.deps.Visualizer.Viewport())
}

func (s *Server) getArtwork(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != "thumb" && kind != "backdrop" {
		s.renderJSON(w, http.StatusNotFound, errorBody{Error: "unknown artwork kind"})
		return
	}
	path := s.deps.Artwork.ArtworkPath(kind)
	if path == "" {
		s.renderJSON(w, http.StatusNotFound, errorBody{Error: "no artwork available"})
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}
