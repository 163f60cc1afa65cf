package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/genricoloni/volt/internal/catalog"
	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// errBadRequest marks malformed request bodies and parameters
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

func (s *Server) renderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var resErr *domain.ResolutionError
	if errors.As(err, &resErr) {
		body.Kind = resErr.Kind
	} else if errors.Is(err, domain.ErrNetwork) {
		body.Kind = domain.KindNetwork
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn("Request failed",
			zap.String("requestID", requestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err))
	}
	s.renderJSON(w, status, body)
}

func statusFor(err error) int {
	var resErr *domain.ResolutionError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrEmptyQuery),
		errors.Is(err, catalog.ErrQueryTooLong),
		errors.Is(err, domain.ErrNoSearchKey):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, domain.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQueueBoundary),
		errors.Is(err, domain.ErrNoTrack),
		errors.Is(err, domain.ErrNothingToRetry),
		errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &resErr),
		errors.Is(err, domain.ErrNetwork),
		errors.Is(err, domain.ErrStream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
