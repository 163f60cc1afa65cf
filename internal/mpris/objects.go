package mpris

import (
	"context"
	"errors"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const commandTimeout = 30 * time.Second

var (
	errUnknownInterface = dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{"unknown interface"})
	errUnknownProperty  = dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", []interface{}{"unknown property"})
	errReadOnly         = dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", []interface{}{"property is read-only"})
	errInvalidArgs      = dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []interface{}{"invalid value"})
	errNotSupported     = dbus.NewError("org.mpris.MediaPlayer2.volt.Error.NotSupported", []interface{}{"opening URIs is not supported"})
)

// rootObject implements org.mpris.MediaPlayer2
type rootObject struct{}

// Raise is a no-op; CanRaise is false
func (rootObject) Raise() *dbus.Error { return nil }

// Quit is a no-op; CanQuit is false
func (rootObject) Quit() *dbus.Error { return nil }

// playerObject implements org.mpris.MediaPlayer2.Player on top of the session controller
type playerObject struct {
	s *Server
}

func (p playerObject) run(name string, fn func(ctx context.Context) error) *dbus.Error {
	ctx, cancel := context.WithTimeout(p.s.baseContext(), commandTimeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	var resErr *domain.ResolutionError
	switch {
	case errors.As(err, &resErr),
		errors.Is(err, domain.ErrQueueBoundary),
		errors.Is(err, domain.ErrNoTrack),
		errors.Is(err, domain.ErrNothingToRetry),
		errors.Is(err, domain.ErrSuperseded):
		// surfaced through the session; MPRIS treats these as no-ops
		p.s.logger.Debug("MPRIS command had no effect", zap.String("method", name), zap.Error(err))
		return nil
	}
	p.s.logger.Warn("MPRIS command failed", zap.String("method", name), zap.Error(err))
	return dbus.MakeFailedError(err)
}

func (p playerObject) Next() *dbus.Error {
	return p.run("Next", p.s.player.SkipNext)
}

func (p playerObject) Previous() *dbus.Error {
	return p.run("Previous", p.s.player.SkipPrevious)
}

func (p playerObject) Pause() *dbus.Error {
	if !p.s.session.Snapshot().Playing {
		return nil
	}
	return p.run("Pause", func(context.Context) error { return p.s.player.TogglePlayback() })
}

func (p playerObject) PlayPause() *dbus.Error {
	if p.s.session.Snapshot().Status == domain.StatusError {
		return p.run("PlayPause", p.s.player.Retry)
	}
	return p.run("PlayPause", func(context.Context) error { return p.s.player.TogglePlayback() })
}

func (p playerObject) Play() *dbus.Error {
	snap := p.s.session.Snapshot()
	switch {
	case snap.Status == domain.StatusError:
		return p.run("Play", p.s.player.Retry)
	case snap.Playing || snap.Track == nil:
		return nil
	}
	return p.run("Play", func(context.Context) error { return p.s.player.TogglePlayback() })
}

func (p playerObject) Stop() *dbus.Error {
	return p.run("Stop", func(context.Context) error { return p.s.player.Close() })
}

// Seek moves relative to the current position, in microseconds.
// Seeking past the end behaves like Next.
func (p playerObject) Seek(offset int64) *dbus.Error {
	snap := p.s.session.Snapshot()
	if snap.Track == nil {
		return nil
	}
	target := snap.Position + float64(offset)/1e6
	if target < 0 {
		target = 0
	}
	if snap.Duration > 0 && target > snap.Duration {
		return p.Next()
	}
	return p.run("Seek", func(context.Context) error { return p.s.player.Seek(target) })
}

// SetPosition seeks to an absolute position if trackID is still current
func (p playerObject) SetPosition(id dbus.ObjectPath, position int64) *dbus.Error {
	snap := p.s.session.Snapshot()
	if snap.Track == nil || id != trackID(snap.Track) {
		return nil
	}
	if position < 0 || (snap.Duration > 0 && position > microseconds(snap.Duration)) {
		return nil
	}
	return p.run("SetPosition", func(context.Context) error {
		return p.s.player.Seek(float64(position) / 1e6)
	})
}

func (p playerObject) OpenUri(uri string) *dbus.Error {
	return errNotSupported
}

// propsObject implements org.freedesktop.DBus.Properties for both MPRIS interfaces
type propsObject struct {
	s *Server
}

func (o propsObject) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	all, derr := o.GetAll(iface)
	if derr != nil {
		return dbus.Variant{}, derr
	}
	v, ok := all[prop]
	if !ok {
		return dbus.Variant{}, errUnknownProperty
	}
	return v, nil
}

func (o propsObject) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case rootIface:
		return rootProperties(), nil
	case playerIface:
		return playerProperties(o.s.session.Snapshot(), o.s.thumb()), nil
	}
	return nil, errUnknownInterface
}

func (o propsObject) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	switch iface {
	case rootIface:
		if _, ok := rootProperties()[prop]; !ok {
			return errUnknownProperty
		}
		return errReadOnly
	case playerIface:
	default:
		return errUnknownInterface
	}

	if prop != "Volume" {
		if _, ok := playerProperties(domain.Session{}, "")[prop]; !ok {
			return errUnknownProperty
		}
		return errReadOnly
	}
	v, ok := value.Value().(float64)
	if !ok {
		return errInvalidArgs
	}
	return playerObject{o.s}.run("SetVolume", func(context.Context) error {
		return o.s.player.SetVolume(v)
	})
}
