package media

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(bin int, amplitude float64, n int) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*float64(bin)*float64(i)/FFTSize)
		out[i] = [2]float64{v, v}
	}
	return out
}

func TestTap_EmptyReadsZero(t *testing.T) {
	tap := NewTap()
	dst := make([]byte, tap.FrequencyBinCount())
	for i := range dst {
		dst[i] = 9
	}
	tap.ByteFrequencyData(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("bin %d: want 0, got %d", i, v)
		}
	}
}

func TestTap_SinePeaksAtItsBin(t *testing.T) {
	tap := NewTap()
	tap.Write(sine(100, 0.05, FFTSize))

	dst := make([]byte, tap.FrequencyBinCount())
	// Let smoothing converge
	for i := 0; i < 30; i++ {
		tap.ByteFrequencyData(dst)
	}

	peak := 0
	for i, v := range dst {
		if v > dst[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 100, peak, 1)
	assert.Greater(t, dst[100], byte(200))
	assert.Less(t, dst[600], dst[100])
}

func TestTap_StaleReadsZero(t *testing.T) {
	tap := NewTap()
	now := time.Now()
	tap.now = func() time.Time { return now }
	tap.Write(sine(40, 0.8, FFTSize))

	dst := make([]byte, tap.FrequencyBinCount())
	tap.ByteFrequencyData(dst)
	require.NotZero(t, dst[40])

	now = now.Add(staleAfter + time.Millisecond)
	tap.ByteFrequencyData(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("bin %d: stale tap should read 0, got %d", i, v)
		}
	}
}

func TestTap_ShortDestination(t *testing.T) {
	tap := NewTap()
	tap.Write(sine(3, 0.8, FFTSize))
	dst := make([]byte, 8)
	assert.NotPanics(t, func() { tap.ByteFrequencyData(dst) })

	long := make([]byte, 4096)
	assert.NotPanics(t, func() { tap.ByteFrequencyData(long) })
	assert.Zero(t, long[4000])
}

func TestTap_WrapCopiesSamples(t *testing.T) {
	tap := NewTap()
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{1, 0}
		}
		return len(samples), true
	})

	buf := make([][2]float64, 16)
	n, ok := tap.Wrap(src).Stream(buf)
	require.True(t, ok)
	require.Equal(t, 16, n)
	assert.Equal(t, 0.5, tap.ring[0], "stereo is downmixed to mono")
	assert.Equal(t, 16, tap.pos)
}
