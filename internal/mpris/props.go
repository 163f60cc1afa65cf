package mpris

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"strings"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/godbus/dbus/v5"
)

const (
	busName     = "org.mpris.MediaPlayer2.volt"
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface   = "org.mpris.MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"
	propsIface  = "org.freedesktop.DBus.Properties"
	identity    = "Volt"

	noTrack   = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	trackBase = "/org/mpris/MediaPlayer2/volt/track/"
)

// microseconds converts seconds to the MPRIS time unit
func microseconds(seconds float64) int64 {
	return int64(seconds * 1e6)
}

// trackID is stable for a given stream so clients can match SetPosition calls
func trackID(t *domain.Track) dbus.ObjectPath {
	if t == nil {
		return noTrack
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(t.StreamURL))
	return dbus.ObjectPath(fmt.Sprintf("%s%016x", trackBase, h.Sum64()))
}

func playbackStatus(s domain.Session) string {
	switch {
	case s.Playing:
		return "Playing"
	case s.Track != nil || s.Error != nil:
		return "Paused"
	default:
		return "Stopped"
	}
}

// artURL prefers the locally rendered thumbnail over the remote image
func artURL(t *domain.Track, thumb string) string {
	if thumb != "" {
		return "file://" + thumb
	}
	if t != nil && (strings.HasPrefix(t.Img, "http://") || strings.HasPrefix(t.Img, "https://")) {
		return t.Img
	}
	return ""
}

func metadata(s domain.Session, thumb string) map[string]dbus.Variant {
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackID(s.Track)),
	}
	t := s.Track
	if t == nil {
		return md
	}
	md["xesam:title"] = dbus.MakeVariant(t.Title)
	artists := t.Artists()
	if artists == nil {
		artists = []string{}
	}
	md["xesam:artist"] = dbus.MakeVariant(artists)
	if t.Album != "" {
		md["xesam:album"] = dbus.MakeVariant(t.Album)
	}
	if s.Duration > 0 {
		md["mpris:length"] = dbus.MakeVariant(microseconds(s.Duration))
	}
	if art := artURL(t, thumb); art != "" {
		md["mpris:artUrl"] = dbus.MakeVariant(art)
	}
	return md
}

func rootProperties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"CanQuit":             dbus.MakeVariant(false),
		"CanRaise":            dbus.MakeVariant(false),
		"HasTrackList":        dbus.MakeVariant(false),
		"Identity":            dbus.MakeVariant(identity),
		"SupportedUriSchemes": dbus.MakeVariant([]string{}),
		"SupportedMimeTypes":  dbus.MakeVariant([]string{}),
	}
}

// playerProperties maps a session snapshot onto the Player interface.
// Position is included for Get but never announced through PropertiesChanged.
func playerProperties(s domain.Session, thumb string) map[string]dbus.Variant {
	hasTrack := s.Track != nil
	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(playbackStatus(s)),
		"Metadata":       dbus.MakeVariant(metadata(s, thumb)),
		"Volume":         dbus.MakeVariant(s.Volume),
		"Position":       dbus.MakeVariant(microseconds(s.Position)),
		"Rate":           dbus.MakeVariant(1.0),
		"MinimumRate":    dbus.MakeVariant(1.0),
		"MaximumRate":    dbus.MakeVariant(1.0),
		"CanGoNext":      dbus.MakeVariant(s.HasNext()),
		"CanGoPrevious":  dbus.MakeVariant(s.HasPrevious()),
		"CanPlay":        dbus.MakeVariant(hasTrack || s.Error != nil),
		"CanPause":       dbus.MakeVariant(hasTrack),
		"CanSeek":        dbus.MakeVariant(hasTrack && s.Duration > 0),
		"CanControl":     dbus.MakeVariant(true),
	}
}

// changed returns the properties of next that differ from prev, minus Position
func changed(prev, next map[string]dbus.Variant) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant)
	for k, v := range next {
		if k == "Position" {
			continue
		}
		if old, ok := prev[k]; ok && reflect.DeepEqual(old.Value(), v.Value()) {
			continue
		}
		out[k] = v
	}
	return out
}
