package domain

import "context"

// Resolver converts a free-text search key into a playable stream URL.
// Failures wrap ErrNetwork (resolver unreachable) or ErrStream (no playable source).
//
//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks github.com/genricoloni/volt/internal/domain Resolver
type Resolver interface {
	Resolve(ctx context.Context, searchTerm string) (StreamSource, error)
}

// Catalog exposes the browse and search side of the backend API
type Catalog interface {
	Search(ctx context.Context, query string, offset int) (*SearchResult, error)
	Album(ctx context.Context, albumID string) (*AlbumDetail, error)
	Artist(ctx context.Context, name string) (*ArtistDetail, error)
	Category(ctx context.Context, categoryID string) (*Category, error)
	// VideoPreview returns an empty string when no preview exists or the lookup fails
	VideoPreview(ctx context.Context, query string) string
}

// MediaBackend is the single audio element owned by the session controller.
// Play and Pause are requests; the backend confirms them with play/pause events.
type MediaBackend interface {
	// Load replaces the current source and starts loading it in the background
	Load(url string) error
	Play() error
	Pause() error
	// Seek moves the playhead, in seconds
	Seek(seconds float64) error
	// SetVolume sets the output gain in [0,1]
	SetVolume(v float64) error
	Paused() bool
	// Stop pauses and unloads the current source
	Stop() error
	// Events returns a read-only channel of lifecycle events
	Events() <-chan MediaEvent
	// Analyser returns the analysis tap attached to the output, or nil
	Analyser() Analyser
}

// Analyser is a read-only frequency-domain tap on the audio signal
type Analyser interface {
	// FrequencyBinCount returns the number of magnitude bins
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with magnitudes in [0,255]
	ByteFrequencyData(dst []byte)
}

// KVStore is durable string storage keyed by well-known names
type KVStore interface {
	// Get returns ErrKeyNotFound when the key is absent
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// ChangeNotifier reports mutations of durable storage made outside this process
type ChangeNotifier interface {
	Changes() <-chan struct{}
}

// SessionSource is the read side of the session store consumed by views
type SessionSource interface {
	Snapshot() Session
	// Subscribe returns a channel of snapshots and a function that cancels the subscription
	Subscribe(buffer int) (<-chan Session, func())
}

// Player is the command side of the playback session, used by views
//
//go:generate mockgen -destination=mocks/player_mock.go -package=mocks github.com/genricoloni/volt/internal/domain Player
type Player interface {
	Play(ctx context.Context, song Song, queue []Song, index int) error
	PlayFromQueue(ctx context.Context, index int) error
	TogglePlayback() error
	Seek(seconds float64) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	ShuffleRemaining() error
	SetVolume(v float64) error
	ToggleMute() error
	Retry(ctx context.Context) error
	Restart() error
	Close() error
}

// Fetcher defines the interface for retrieving album artwork
//
//go:generate mockgen -destination=mocks/artwork_mock.go -package=mocks github.com/genricoloni/volt/internal/domain Fetcher,ArtworkProcessor
type Fetcher interface {
	// Fetch downloads image data from a URL
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ArtworkProcessor renders downloaded artwork into cached image files
type ArtworkProcessor interface {
	// Generate writes the thumbnail and backdrop for imageData, named after key
	Generate(ctx context.Context, imageData []byte, key string) (ArtworkFiles, error)
}

// ArtworkSource exposes the most recent processed artwork files
type ArtworkSource interface {
	// ArtworkPath returns the file for "thumb" or "backdrop", or "" when none is ready
	ArtworkPath(kind string) string
}

// Config defines the interface for application configuration
type Config interface {
	GetAPIBaseURL() string
	GetListenAddr() string
	GetDataDir() string
	GetCacheDir() string
	GetViewport() ScreenResolution
	GetRefreshRate() int
	GetHealthInterval() int
	MPRISEnabled() bool
}
