package session

import (
	"testing"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SnapshotDefaults(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	assert.Equal(t, domain.StatusEmpty, snap.Status)
	assert.Equal(t, 1.0, snap.Volume)
	assert.True(t, snap.IsEmpty())
}

func TestStore_DeliversInOrder(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe(4)
	defer cancel()

	for i := 1; i <= 3; i++ {
		s.Publish(domain.Session{Generation: uint64(i)})
	}

	for i := 1; i <= 3; i++ {
		got := <-ch
		assert.Equal(t, uint64(i), got.Generation)
	}
	assert.Equal(t, uint64(3), s.Snapshot().Generation)
}

func TestStore_SlowSubscriberDropsOldest(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe(2)
	defer cancel()

	for i := 1; i <= 5; i++ {
		s.Publish(domain.Session{Generation: uint64(i)})
	}

	first := <-ch
	second := <-ch
	assert.Equal(t, uint64(4), first.Generation)
	assert.Equal(t, uint64(5), second.Generation, "the newest snapshot must never be dropped")
}

func TestStore_CancelClosesChannel(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe(1)
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after cancel must not panic on the closed channel
	s.Publish(domain.Session{Generation: 7})
}
