package media

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Analysis parameters, matching a default browser AnalyserNode
const (
	FFTSize               = 2048
	smoothingTimeConstant = 0.8
	minDecibels           = -100.0
	maxDecibels           = -30.0
	// staleAfter is how long without samples before the tap reads as silent
	staleAfter = 250 * time.Millisecond
)

// Tap records the most recent output samples and exposes their spectrum.
// It implements domain.Analyser.
type Tap struct {
	mu        sync.Mutex
	ring      []float64
	pos       int
	lastWrite time.Time
	now       func() time.Time

	fft      *fourier.FFT
	window   []float64
	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewTap creates an empty analysis tap
func NewTap() *Tap {
	window := make([]float64, FFTSize)
	for n := range window {
		x := 2 * math.Pi * float64(n) / FFTSize
		window[n] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return &Tap{
		ring:     make([]float64, FFTSize),
		now:      time.Now,
		fft:      fourier.NewFFT(FFTSize),
		window:   window,
		frame:    make([]float64, FFTSize),
		coeffs:   make([]complex128, FFTSize/2+1),
		smoothed: make([]float64, FFTSize/2),
	}
}

// Wrap returns a streamer that copies everything s produces into the tap
func (t *Tap) Wrap(s beep.Streamer) beep.Streamer {
	return &tapStreamer{s: s, tap: t}
}

// Write appends stereo samples, downmixed to mono
func (t *Tap) Write(samples [][2]float64) {
	if len(samples) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range samples {
		t.ring[t.pos] = (s[0] + s[1]) / 2
		t.pos = (t.pos + 1) % FFTSize
	}
	t.lastWrite = t.now()
}

// FrequencyBinCount returns half the FFT size
func (t *Tap) FrequencyBinCount() int {
	return FFTSize / 2
}

// ByteFrequencyData fills dst with smoothed magnitudes scaled to [0,255].
// A tap that has not seen samples recently reports all zeros.
func (t *Tap) ByteFrequencyData(dst []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(dst)
	if n > len(t.smoothed) {
		n = len(t.smoothed)
	}

	if t.lastWrite.IsZero() || t.now().Sub(t.lastWrite) > staleAfter {
		for i := range dst {
			dst[i] = 0
		}
		for i := range t.smoothed {
			t.smoothed[i] = 0
		}
		return
	}

	// Oldest sample first
	for i := 0; i < FFTSize; i++ {
		t.frame[i] = t.ring[(t.pos+i)%FFTSize] * t.window[i]
	}
	t.coeffs = t.fft.Coefficients(t.coeffs, t.frame)

	scale := 255 / (maxDecibels - minDecibels)
	for k := range t.smoothed {
		c := t.coeffs[k]
		mag := math.Hypot(real(c), imag(c)) / FFTSize
		t.smoothed[k] = smoothingTimeConstant*t.smoothed[k] + (1-smoothingTimeConstant)*mag

		if k >= n {
			continue
		}
		db := minDecibels
		if t.smoothed[k] > 0 {
			db = 20 * math.Log10(t.smoothed[k])
		}
		v := scale * (db - minDecibels)
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		dst[k] = byte(v)
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

type tapStreamer struct {
	s   beep.Streamer
	tap *Tap
}

func (ts *tapStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := ts.s.Stream(samples)
	ts.tap.Write(samples[:n])
	return n, ok
}

func (ts *tapStreamer) Err() error {
	return ts.s.Err()
}
