package session

import (
	"sync"

	"github.com/genricoloni/volt/internal/domain"
)

// Store holds the latest session snapshot and fans it out to subscribers.
// Publish never blocks: a subscriber that falls behind loses its oldest pending snapshot.
type Store struct {
	mu      sync.RWMutex
	current domain.Session
	subs    map[int]chan domain.Session
	nextID  int
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		current: domain.Session{Status: domain.StatusEmpty, Volume: 1},
		subs:    make(map[int]chan domain.Session),
	}
}

// Publish replaces the current snapshot and delivers it to every subscriber
func (s *Store) Publish(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = sess
	for _, ch := range s.subs {
		select {
		case ch <- sess:
			continue
		default:
		}
		// Full: drop the oldest so the newest always lands
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- sess:
		default:
		}
	}
}

// Snapshot returns the latest published session
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers a listener. The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan domain.Session, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Session, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
