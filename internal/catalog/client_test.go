package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOptions() Options {
	return Options{
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		MinBackoff:   time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
		TripAfter:    3,
		BreakerReset: time.Minute,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClientWithOptions(zap.NewNop(), srv.URL+"/api/", testOptions())
	require.NoError(t, err)
	return c, srv
}

func TestResolve_Success(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/play", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Tum Hi Ho Arijit", body["search_term"])

		json.NewEncoder(w).Encode(map[string]string{"stream_url": "https://cdn.test/a.mp3", "source": "saavn"})
	}))
	_ = srv

	src, err := c.Resolve(context.Background(), "  Tum Hi Ho Arijit ")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.mp3", src.URL)
	assert.Equal(t, "saavn", src.Source)
}

func TestResolve_RelativeProxyURL(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"stream_url": "/api/stream?q=abc", "source": "youtube"})
	}))

	src, err := c.Resolve(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/stream?q=abc", src.URL)
}

func TestResolve_Classification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind domain.ErrorKind
		wantErr  error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"Could not find audio stream"}`))
			},
			wantKind: domain.KindStream,
			wantErr:  domain.ErrStream,
		},
		{
			name: "provider failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantKind: domain.KindStream,
			wantErr:  domain.ErrStream,
		},
		{
			name: "empty url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"stream_url":"","source":"saavn"}`))
			},
			wantKind: domain.KindStream,
			wantErr:  domain.ErrStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			_, err := c.Resolve(context.Background(), "song")

			var resErr *domain.ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tt.wantKind, resErr.Kind)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolve_UnreachableIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClientWithOptions(zap.NewNop(), addr+"/api", testOptions())
	require.NoError(t, err)

	_, err = c.Resolve(context.Background(), "song")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, domain.KindNetwork, domain.ClassifyResolution(err))
}

func TestResolve_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Resolve(context.Background(), "song")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_CallerDeadlineIsNotNetwork(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"stream_url": "https://cdn.test/a.mp3", "source": "saavn"})
	}))

	for i := 0; i < int(testOptions().TripAfter)+1; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := c.Resolve(ctx, "song")
		cancel()

		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, domain.ErrNetwork)
		var resErr *domain.ResolutionError
		assert.False(t, errors.As(err, &resErr))
	}

	// abandoned calls never trip the breaker
	src, err := c.Resolve(context.Background(), "song")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.mp3", src.URL)
}

func TestResolve_RejectsLongTerm(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.Resolve(context.Background(), strings.Repeat("x", MaxQueryLength+1))
	assert.ErrorIs(t, err, domain.ErrStream)
}

func TestBreakerOpensOnUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	opts := testOptions()
	opts.MaxRetries = 0
	c, err := NewClientWithOptions(zap.NewNop(), addr+"/api", opts)
	require.NoError(t, err)

	for i := 0; i < int(opts.TripAfter); i++ {
		_, err := c.Resolve(context.Background(), "song")
		require.ErrorIs(t, err, domain.ErrNetwork)
	}

	_, err = c.Resolve(context.Background(), "song")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestSearch(t *testing.T) {
	songs := make([]map[string]interface{}, 50)
	for i := range songs {
		songs[i] = map[string]interface{}{"title": "t", "artist": "a", "album_id": 1234, "search_term": "t a"}
	}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "arijit", body.Query)
		assert.Equal(t, 20, body.Offset)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"songs":   songs,
			"albums":  []interface{}{},
			"artists": []interface{}{map[string]string{"name": "Arijit Singh"}},
		})
	}))

	res, err := c.Search(context.Background(), " arijit ", 20)
	require.NoError(t, err)
	assert.Len(t, res.Songs, 50)
	assert.Equal(t, domain.ID("1234"), res.Songs[0].AlbumID)
	assert.True(t, res.HasMore)
	assert.Equal(t, "Arijit Singh", res.Artists[0].Name)
}

func TestSearch_Validation(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())

	_, err := c.Search(context.Background(), "   ", 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = c.Search(context.Background(), strings.Repeat("q", 201), 0)
	assert.ErrorIs(t, err, ErrQueryTooLong)
}

func TestLookupsRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"album_name": "Aashiqui 2", "artist_name": "Various", "track_count": 1,
			"songs": []interface{}{map[string]string{"title": "Tum Hi Ho"}},
		})
	}))

	album, err := c.Album(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Aashiqui 2", album.AlbumName)
	assert.Equal(t, int32(3), calls.Load())
}

func TestArtist_EscapesName(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/artist/AC%2FDC", r.URL.EscapedPath())
		json.NewEncoder(w).Encode(map[string]interface{}{"artist_name": "AC/DC"})
	}))

	artist, err := c.Artist(context.Background(), "AC/DC")
	require.NoError(t, err)
	assert.Equal(t, "AC/DC", artist.ArtistName)
}

func TestCategory_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Category(context.Background(), "focus")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestVideoPreview(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "tum hi ho", r.URL.Query().Get("q"))
				w.Write([]byte(`{"video_url":"https://v.test/clip.mp4"}`))
			},
			want: "https://v.test/clip.mp4",
		},
		{
			name: "missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			assert.Equal(t, tt.want, c.VideoPreview(context.Background(), "tum hi ho"))
		})
	}
}

func TestNewClientWithOptions_RejectsRelativeURL(t *testing.T) {
	_, err := NewClientWithOptions(zap.NewNop(), "/api", testOptions())
	assert.Error(t, err)
}
