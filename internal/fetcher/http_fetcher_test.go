package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		responseBody   []byte
		statusCode     int
		limit          int64
		ctxFunc        func() (context.Context, context.CancelFunc)
		expectedError  string
		expectedLength int
	}{
		{
			name:           "valid image",
			contentType:    "image/jpeg",
			responseBody:   []byte("fake-image-data"),
			statusCode:     http.StatusOK,
			expectedLength: 15,
		},
		{
			name:          "not found",
			contentType:   "image/jpeg",
			statusCode:    http.StatusNotFound,
			expectedError: "unexpected status code: 404",
		},
		{
			name:          "not an image",
			contentType:   "text/html",
			responseBody:  []byte("<html>"),
			statusCode:    http.StatusOK,
			expectedError: "url is not an image",
		},
		{
			name:          "too large",
			contentType:   "image/png",
			responseBody:  []byte(strings.Repeat("a", 2048)),
			statusCode:    http.StatusOK,
			limit:         1024,
			expectedError: "exceeds size limit",
		},
		{
			name:           "exactly at the limit",
			contentType:    "image/png",
			responseBody:   []byte(strings.Repeat("a", 1024)),
			statusCode:     http.StatusOK,
			limit:          1024,
			expectedLength: 1024,
		},
		{
			name: "context cancelled",
			ctxFunc: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			expectedError: "context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write(tt.responseBody)
			}))
			defer server.Close()

			var ctx context.Context
			var cancel context.CancelFunc
			if tt.ctxFunc != nil {
				ctx, cancel = tt.ctxFunc()
			} else {
				ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			}
			defer cancel()

			f := NewHTTPFetcher(zap.NewNop())
			if tt.limit > 0 {
				f.limit = tt.limit
			}
			data, err := f.Fetch(ctx, server.URL)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Len(t, data, tt.expectedLength)
		})
	}
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer server.Close()

	data, err := NewHTTPFetcher(zap.NewNop()).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_RejectsNonHTTP(t *testing.T) {
	_, err := NewHTTPFetcher(zap.NewNop()).Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorContains(t, err, "unsupported artwork url")
}
