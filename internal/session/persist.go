package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Durable keys, shared with earlier releases of the player
const (
	keyCurrentTrack = "currentTrack"
	keyQueue        = "queue"
	keyCurrentIndex = "currentIndex"
	keyCurrentTime  = "currentTime"
	keyWasPlaying   = "wasPlaying"
	keyVolume       = "volume"
	keyLastVolume   = "lastVolume"
)

// positionWritesPerSecond caps currentTime writes during playback
const positionWritesPerSecond = 4

// savedSession is what Restore reads back from storage
type savedSession struct {
	track      *domain.Track
	queue      []domain.Song
	index      int
	position   float64
	wasPlaying bool
	volume     float64
	lastVolume float64
}

// persister writes session fields to a KVStore. Every failure is logged at debug and dropped.
type persister struct {
	kv     domain.KVStore
	logger *zap.Logger
	ticks  *rate.Limiter
}

func newPersister(kv domain.KVStore, logger *zap.Logger) *persister {
	return &persister{
		kv:     kv,
		logger: logger,
		ticks:  rate.NewLimiter(rate.Limit(positionWritesPerSecond), 1),
	}
}

func (p *persister) set(ctx context.Context, key, value string) {
	if p.kv == nil {
		return
	}
	if err := p.kv.Set(ctx, key, value); err != nil {
		p.logger.Debug("Ignoring persistence failure", zap.String("key", key), zap.Error(err))
	}
}

func (p *persister) saveTrack(ctx context.Context, track *domain.Track, queue []domain.Song, index int) {
	if data, err := json.Marshal(track); err == nil {
		p.set(ctx, keyCurrentTrack, string(data))
	}
	if data, err := json.Marshal(queue); err == nil {
		p.set(ctx, keyQueue, string(data))
	}
	p.set(ctx, keyCurrentIndex, strconv.Itoa(index))
	p.set(ctx, keyCurrentTime, "0")
}

func (p *persister) saveQueue(ctx context.Context, queue []domain.Song) {
	if data, err := json.Marshal(queue); err == nil {
		p.set(ctx, keyQueue, string(data))
	}
}

// savePosition is throttled unless force is set
func (p *persister) savePosition(ctx context.Context, position float64, playing bool, force bool) {
	if !force && !p.ticks.Allow() {
		return
	}
	p.set(ctx, keyCurrentTime, formatFloat(position))
	p.set(ctx, keyWasPlaying, strconv.FormatBool(playing))
}

func (p *persister) saveVolume(ctx context.Context, v float64) {
	p.set(ctx, keyVolume, formatFloat(v))
}

func (p *persister) saveLastVolume(ctx context.Context, v float64) {
	p.set(ctx, keyLastVolume, formatFloat(v))
}

// clear drops the session keys. Volume preferences outlive a closed session.
func (p *persister) clear(ctx context.Context) {
	if p.kv == nil {
		return
	}
	err := p.kv.Delete(ctx, keyCurrentTrack, keyCurrentTime, keyWasPlaying, keyQueue, keyCurrentIndex)
	if err != nil {
		p.logger.Debug("Ignoring persistence failure on clear", zap.Error(err))
	}
}

// load never fails: anything missing or malformed yields the empty-session defaults
func (p *persister) load(ctx context.Context) savedSession {
	saved := savedSession{volume: 1, lastVolume: 1}
	if p.kv == nil {
		return saved
	}

	if v, ok := p.float(ctx, keyVolume); ok && v >= 0 && v <= 1 {
		saved.volume = v
	}
	if v, ok := p.float(ctx, keyLastVolume); ok && v > 0 && v <= 1 {
		saved.lastVolume = v
	}

	raw, ok := p.get(ctx, keyCurrentTrack)
	if !ok {
		return saved
	}
	var track domain.Track
	if err := json.Unmarshal([]byte(raw), &track); err != nil || track.StreamURL == "" {
		p.logger.Warn("Discarding unreadable saved track", zap.Error(err))
		return saved
	}

	var queue []domain.Song
	if raw, ok := p.get(ctx, keyQueue); ok {
		if err := json.Unmarshal([]byte(raw), &queue); err != nil {
			p.logger.Warn("Discarding unreadable saved queue", zap.Error(err))
			return saved
		}
	}

	index := 0
	if raw, ok := p.get(ctx, keyCurrentIndex); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			p.logger.Warn("Discarding unreadable saved index", zap.String("value", raw))
			return saved
		}
		index = n
	}
	if len(queue) > 0 && (index < 0 || index >= len(queue)) {
		p.logger.Warn("Discarding out-of-range saved index",
			zap.Int("index", index),
			zap.Int("queueLength", len(queue)))
		return saved
	}
	if len(queue) == 0 {
		index = 0
	}

	saved.track = &track
	saved.queue = queue
	saved.index = index
	if pos, ok := p.float(ctx, keyCurrentTime); ok && pos > 0 {
		saved.position = pos
	}
	if raw, ok := p.get(ctx, keyWasPlaying); ok {
		saved.wasPlaying = raw == "true"
	}
	return saved
}

func (p *persister) get(ctx context.Context, key string) (string, bool) {
	v, err := p.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			p.logger.Debug("Ignoring persistence failure", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (p *persister) float(ctx context.Context, key string) (float64, bool) {
	raw, ok := p.get(ctx, key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
