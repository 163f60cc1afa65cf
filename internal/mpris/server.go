package mpris

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// seekTolerance is how far, in seconds, the position may drift from wall-clock
// progress before it counts as a seek
const seekTolerance = 1.0

// ArtworkFeed exposes rendered artwork and announces when it changes
type ArtworkFeed interface {
	domain.ArtworkSource
	Events() <-chan domain.ArtworkFiles
}

type seekState struct {
	track   dbus.ObjectPath
	pos     float64
	playing bool
	at      time.Time
}

// Server exports the playback session on the session bus as an MPRIS player
type Server struct {
	logger  *zap.Logger
	enabled bool
	player  domain.Player
	session domain.SessionSource
	artwork ArtworkFeed
	dial    func() (BusConn, error)
	now     func() time.Time

	mu    sync.Mutex
	ctx   context.Context
	conn  BusConn
	stop  context.CancelFunc
	props map[string]dbus.Variant
	last  seekState
	wg    sync.WaitGroup
}

// NewServer creates an MPRIS server; artwork may be nil
func NewServer(
	logger *zap.Logger,
	cfg domain.Config,
	player domain.Player,
	session domain.SessionSource,
	artwork ArtworkFeed,
) *Server {
	return &Server{
		logger:  logger,
		enabled: cfg.MPRISEnabled(),
		player:  player,
		session: session,
		artwork: artwork,
		dial:    DialSessionBus,
		now:     time.Now,
	}
}

// Start connects to the session bus and begins mirroring the session.
// An unavailable bus or a taken name is logged and leaves the daemon running.
func (s *Server) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("MPRIS export disabled")
		return nil
	}

	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	conn, err := s.dial()
	if err != nil {
		s.logger.Warn("Session bus unavailable, MPRIS export disabled", zap.Error(err))
		return nil
	}

	if err := s.export(conn); err != nil {
		s.logger.Warn("Failed to export MPRIS objects", zap.Error(err))
		s.closeConn(conn)
		return nil
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil || reply != dbus.RequestNameReplyPrimaryOwner {
		s.logger.Warn("Could not own MPRIS bus name",
			zap.String("name", busName),
			zap.Uint32("reply", uint32(reply)),
			zap.Error(err))
		s.closeConn(conn)
		return nil
	}

	loopCtx, stop := context.WithCancel(ctx)
	snap := s.session.Snapshot()

	s.mu.Lock()
	s.conn = conn
	s.ctx = loopCtx
	s.stop = stop
	s.props = playerProperties(snap, s.thumb())
	s.last = seekState{track: trackID(snap.Track), pos: snap.Position, playing: snap.Playing, at: s.now()}
	s.mu.Unlock()

	snapshots, cancel := s.session.Subscribe(8)
	s.wg.Add(1)
	go s.loop(loopCtx, snapshots, cancel)

	s.logger.Info("MPRIS player exported", zap.String("name", busName))
	return nil
}

func (s *Server) export(conn BusConn) error {
	exports := []struct {
		v     interface{}
		iface string
	}{
		{rootObject{}, rootIface},
		{playerObject{s}, playerIface},
		{propsObject{s}, propsIface},
		{introspectable(), "org.freedesktop.DBus.Introspectable"},
	}
	for _, e := range exports {
		if err := conn.Export(e.v, objectPath, e.iface); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) closeConn(conn BusConn) {
	if err := conn.Close(); err != nil {
		s.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
	}
}

// Stop releases the bus name and closes the connection
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, conn := s.stop, s.conn
	s.stop, s.conn, s.ctx = nil, nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.closeConn(conn)
	s.logger.Info("MPRIS export stopped")
	return nil
}

func (s *Server) loop(ctx context.Context, snapshots <-chan domain.Session, cancel func()) {
	defer s.wg.Done()
	defer cancel()

	var artwork <-chan domain.ArtworkFiles
	if s.artwork != nil {
		artwork = s.artwork.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			s.update(snap)
		case _, ok := <-artwork:
			if !ok {
				artwork = nil
				continue
			}
			s.update(s.session.Snapshot())
		}
	}
}

// update announces property changes and seeks for a new snapshot
func (s *Server) update(snap domain.Session) {
	next := playerProperties(snap, s.thumb())

	s.mu.Lock()
	diff := changed(s.props, next)
	s.props = next
	seeked := s.detectSeek(snap)
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if len(diff) > 0 {
		if err := conn.Emit(objectPath, propsIface+".PropertiesChanged", playerIface, diff, []string{}); err != nil {
			s.logger.Warn("Failed to emit PropertiesChanged", zap.Error(err))
		}
	}
	if seeked {
		if err := conn.Emit(objectPath, playerIface+".Seeked", microseconds(snap.Position)); err != nil {
			s.logger.Warn("Failed to emit Seeked", zap.Error(err))
		}
	}
}

// detectSeek compares the reported position with the expected progress. Caller holds s.mu.
func (s *Server) detectSeek(snap domain.Session) bool {
	now := s.now()
	id := trackID(snap.Track)
	prev := s.last
	s.last = seekState{track: id, pos: snap.Position, playing: snap.Playing, at: now}

	if snap.Track == nil || prev.track != id {
		return false
	}
	expected := prev.pos
	if prev.playing {
		expected += now.Sub(prev.at).Seconds()
	}
	return math.Abs(snap.Position-expected) > seekTolerance
}

func (s *Server) thumb() string {
	if s.artwork == nil {
		return ""
	}
	return s.artwork.ArtworkPath("thumb")
}

func (s *Server) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}
