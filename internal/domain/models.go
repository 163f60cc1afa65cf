package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Status represents the lifecycle state of the playback session
type Status string

const (
	// StatusEmpty indicates nothing is loaded or queued ahead
	StatusEmpty Status = "Empty"
	// StatusLoading indicates a stream URL is being resolved or loaded
	StatusLoading Status = "Loading"
	// StatusPlaying indicates the media backend reported playback
	StatusPlaying Status = "Playing"
	// StatusPaused indicates the media backend reported a pause
	StatusPaused Status = "Paused"
	// StatusEnded indicates the current track finished
	StatusEnded Status = "Ended"
	// StatusError indicates a resolution or playback failure awaiting retry or skip
	StatusError Status = "Error"
)

// ErrorKind classifies a failure surfaced in the session
type ErrorKind string

const (
	// KindNetwork means the resolver could not be reached
	KindNetwork ErrorKind = "network"
	// KindStream means the resolver answered but had no playable source
	KindStream ErrorKind = "stream"
	// KindPlayback means the media backend failed after a URL was loaded
	KindPlayback ErrorKind = "playback"
)

// ID is a catalog identifier that the backend sends either as a string or a number
type ID string

// UnmarshalJSON accepts strings, numbers and null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Song is a pre-resolution catalog entry, as returned by search and browse endpoints
type Song struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Image      string `json:"image,omitempty"`
	Img        string `json:"img,omitempty"`
	Album      string `json:"album,omitempty"`
	AlbumID    ID     `json:"album_id,omitempty"`
	SearchTerm string `json:"search_term,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// SearchKey returns the free-text key used to resolve a stream for this song
func (s Song) SearchKey() string {
	return strings.TrimSpace(s.SearchTerm)
}

// Artwork returns the best known image URL for the song
func (s Song) Artwork() string {
	if s.Img != "" {
		return s.Img
	}
	return s.Image
}

// MembershipKey identifies a song inside a playlist (title, artist)
func (s Song) MembershipKey() string {
	return s.Title + "||" + s.Artist
}

// Snapshot returns the normalized copy stored in playlists.
// A missing search term falls back to "<title> <artist>".
func (s Song) Snapshot() Song {
	term := s.SearchKey()
	if term == "" {
		term = s.Title + " " + s.Artist
	}
	return Song{
		Title:      s.Title,
		Artist:     s.Artist,
		Img:        s.Artwork(),
		Album:      s.Album,
		AlbumID:    s.AlbumID,
		SearchTerm: term,
	}
}

// Track is a resolved, playable song. It is replaced, never mutated, on every play.
type Track struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Img        string `json:"img,omitempty"`
	Album      string `json:"album,omitempty"`
	AlbumID    ID     `json:"album_id,omitempty"`
	StreamURL  string `json:"stream_url"`
	Source     string `json:"source,omitempty"`
	SearchTerm string `json:"search_term"`
}

// NewTrack builds a track from a song and its resolved stream
func NewTrack(song Song, src StreamSource) *Track {
	return &Track{
		Title:      song.Title,
		Artist:     song.Artist,
		Img:        song.Artwork(),
		Album:      song.Album,
		AlbumID:    song.AlbumID,
		StreamURL:  src.URL,
		Source:     src.Source,
		SearchTerm: song.SearchKey(),
	}
}

// Artists returns the individual credited artists of the track
func (t *Track) Artists() []string {
	if t == nil {
		return nil
	}
	return ParseArtists(t.Artist)
}

// StreamSource is the resolver's answer for a search key
type StreamSource struct {
	URL string `json:"stream_url"`
	// Source is the quality/provider tag reported by the resolver (e.g. "saavn", "youtube")
	Source string `json:"source"`
}

// SessionError describes the failure currently shown instead of the now-playing view
type SessionError struct {
	Kind ErrorKind `json:"kind"`
	Song Song      `json:"song"`
	// Queue and Index locate the failed entry so retry and skip can continue from it
	Queue []Song `json:"queue,omitempty"`
	Index int    `json:"index"`
}

// Session is an immutable snapshot of the playback session
type Session struct {
	Status     Status        `json:"status"`
	Track      *Track        `json:"track,omitempty"`
	Queue      []Song        `json:"queue"`
	Index      int           `json:"index"`
	Position   float64       `json:"position"`
	Duration   float64       `json:"duration"`
	Volume     float64       `json:"volume"`
	Playing    bool          `json:"playing"`
	Error      *SessionError `json:"error,omitempty"`
	Generation uint64        `json:"generation"`
}

// IsEmpty reports whether the session has nothing to show
func (s Session) IsEmpty() bool {
	return s.Track == nil && s.Error == nil
}

// HasNext reports whether skipping forward would play something
func (s Session) HasNext() bool {
	return s.baseIndex()+1 < len(s.queue())
}

// HasPrevious reports whether skipping back would play something
func (s Session) HasPrevious() bool {
	return s.baseIndex()-1 >= 0 && len(s.queue()) > 0
}

// Progress returns the elapsed fraction of the track in [0,1]
func (s Session) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	p := s.Position / s.Duration
	if p > 1 {
		return 1
	}
	return p
}

func (s Session) baseIndex() int {
	if s.Error != nil {
		return s.Error.Index
	}
	return s.Index
}

func (s Session) queue() []Song {
	if s.Error != nil && len(s.Error.Queue) > 0 {
		return s.Error.Queue
	}
	return s.Queue
}

// MediaEventType enumerates media backend lifecycle events
type MediaEventType string

const (
	EventLoadedMetadata MediaEventType = "loadedmetadata"
	EventTimeUpdate     MediaEventType = "timeupdate"
	EventPlay           MediaEventType = "play"
	EventPause          MediaEventType = "pause"
	EventEnded          MediaEventType = "ended"
	EventError          MediaEventType = "error"
)

// MediaEvent is emitted by the media backend
type MediaEvent struct {
	Type MediaEventType
	// Duration is set on loaded-metadata, in seconds
	Duration float64
	// Position is set on time-update, in seconds
	Position float64
	// Err is set on error events
	Err error
	// URL identifies the source the event belongs to
	URL string
}

// Playlist is a user-curated, durable list of song snapshots
type Playlist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	Songs     []Song `json:"songs"`
}

// Contains reports whether a song with the same (title, artist) is in the playlist
func (p *Playlist) Contains(song Song) bool {
	key := song.MembershipKey()
	for _, s := range p.Songs {
		if s.MembershipKey() == key {
			return true
		}
	}
	return false
}

// Album is a catalog album summary
type Album struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Image       string `json:"image,omitempty"`
	AlbumID     ID     `json:"album_id"`
	TrackCount  int    `json:"track_count,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// ArtistSummary is a catalog artist entry in search results
type ArtistSummary struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// SearchResult groups search hits by kind
type SearchResult struct {
	Songs   []Song          `json:"songs"`
	Albums  []Album         `json:"albums"`
	Artists []ArtistSummary `json:"artists"`
	// HasMore is a heuristic (page looked full), not a cursor contract
	HasMore bool `json:"has_more"`
}

// Total returns the number of items across all kinds
func (r *SearchResult) Total() int {
	return len(r.Songs) + len(r.Albums) + len(r.Artists)
}

// AlbumDetail is the album page payload
type AlbumDetail struct {
	AlbumName   string `json:"album_name"`
	ArtistName  string `json:"artist_name"`
	Artwork     string `json:"artwork"`
	ReleaseDate string `json:"release_date,omitempty"`
	Genre       string `json:"genre,omitempty"`
	TrackCount  int    `json:"track_count"`
	Songs       []Song `json:"songs"`
}

// ArtistDetail is the artist page payload
type ArtistDetail struct {
	ArtistName  string  `json:"artist_name"`
	ArtistImage string  `json:"artist_image"`
	Genre       string  `json:"genre,omitempty"`
	Songs       []Song  `json:"songs"`
	Albums      []Album `json:"albums"`
}

// Category is a curated collection of songs
type Category struct {
	Title  string  `json:"title,omitempty"`
	Songs  []Song  `json:"songs"`
	Albums []Album `json:"albums,omitempty"`
}

// HealthStatus describes backend reachability
type HealthStatus struct {
	// Online is nil until the first probe completes
	Online      *bool  `json:"online"`
	Checking    bool   `json:"checking"`
	LastChecked string `json:"last_checked,omitempty"`
}

// ArtworkFiles are the cached renditions of the current track's artwork
type ArtworkFiles struct {
	Thumb    string `json:"thumb"`
	Backdrop string `json:"backdrop"`
}

// Path returns the file for "thumb" or "backdrop"
func (a ArtworkFiles) Path(kind string) string {
	switch kind {
	case "thumb":
		return a.Thumb
	case "backdrop":
		return a.Backdrop
	}
	return ""
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var artistSeparators = regexp.MustCompile(`(?i),|&|feat\.|ft\.|featuring`)

// ParseArtists splits a raw credit string into individual artist names
func ParseArtists(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range artistSeparators.Split(raw, -1) {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}
