package mpris

import (
	"testing"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func sampleSession() domain.Session {
	return domain.Session{
		Status:   domain.StatusPlaying,
		Playing:  true,
		Track:    &domain.Track{Title: "Halo", Artist: "Beyoncé feat. Jay-Z", Album: "I Am", Img: "https://img/halo.jpg", StreamURL: "https://s/halo"},
		Queue:    []domain.Song{{Title: "a"}, {Title: "Halo"}, {Title: "c"}},
		Index:    1,
		Position: 12.5,
		Duration: 240,
		Volume:   0.7,
	}
}

func TestPlaybackStatus(t *testing.T) {
	tests := []struct {
		name string
		s    domain.Session
		want string
	}{
		{"playing", sampleSession(), "Playing"},
		{"paused", domain.Session{Track: &domain.Track{}}, "Paused"},
		{"error", domain.Session{Status: domain.StatusError, Error: &domain.SessionError{Kind: domain.KindNetwork}}, "Paused"},
		{"empty", domain.Session{}, "Stopped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, playbackStatus(tt.s))
		})
	}
}

func TestMetadata(t *testing.T) {
	s := sampleSession()
	md := metadata(s, "/tmp/volt/abc-thumb.jpg")

	assert.Equal(t, trackID(s.Track), md["mpris:trackid"].Value())
	assert.Equal(t, "Halo", md["xesam:title"].Value())
	assert.Equal(t, []string{"Beyoncé", "Jay-Z"}, md["xesam:artist"].Value())
	assert.Equal(t, "I Am", md["xesam:album"].Value())
	assert.Equal(t, int64(240_000_000), md["mpris:length"].Value())
	assert.Equal(t, "file:///tmp/volt/abc-thumb.jpg", md["mpris:artUrl"].Value())
}

func TestMetadata_RemoteArtFallback(t *testing.T) {
	md := metadata(sampleSession(), "")
	assert.Equal(t, "https://img/halo.jpg", md["mpris:artUrl"].Value())

	s := sampleSession()
	s.Track.Img = "data:image/png;base64,xx"
	s.Duration = 0
	md = metadata(s, "")
	assert.NotContains(t, md, "mpris:artUrl")
	assert.NotContains(t, md, "mpris:length")
}

func TestMetadata_NoTrack(t *testing.T) {
	md := metadata(domain.Session{}, "")
	assert.Len(t, md, 1)
	assert.Equal(t, noTrack, md["mpris:trackid"].Value())
}

func TestTrackID(t *testing.T) {
	a := trackID(&domain.Track{StreamURL: "https://s/1"})
	b := trackID(&domain.Track{StreamURL: "https://s/2"})
	assert.True(t, a.IsValid())
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, trackID(&domain.Track{StreamURL: "https://s/1", Title: "other"}))
}

func TestPlayerProperties(t *testing.T) {
	props := playerProperties(sampleSession(), "")

	assert.Equal(t, "Playing", props["PlaybackStatus"].Value())
	assert.Equal(t, 0.7, props["Volume"].Value())
	assert.Equal(t, int64(12_500_000), props["Position"].Value())
	assert.Equal(t, true, props["CanGoNext"].Value())
	assert.Equal(t, true, props["CanGoPrevious"].Value())
	assert.Equal(t, true, props["CanSeek"].Value())
	assert.Equal(t, true, props["CanControl"].Value())

	empty := playerProperties(domain.Session{}, "")
	assert.Equal(t, false, empty["CanPlay"].Value())
	assert.Equal(t, false, empty["CanGoNext"].Value())
	assert.Equal(t, false, empty["CanSeek"].Value())
}

func TestChanged_SkipsPositionAndEqualValues(t *testing.T) {
	prev := playerProperties(sampleSession(), "")
	s := sampleSession()
	s.Position = 99
	assert.Empty(t, changed(prev, playerProperties(s, "")))

	s.Playing = false
	diff := changed(prev, playerProperties(s, ""))
	assert.Equal(t, map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Paused")}, diff)

	assert.Len(t, changed(nil, prev), len(prev)-1)
}
