package visualizer

import (
	"math"
	"time"

	"github.com/genricoloni/volt/internal/domain"
)

// Band layout and motion constants
const (
	// RestingHeight is the minimum band height in pixels
	RestingHeight = 3.0
	// BarGap is the horizontal gap between bands in pixels
	BarGap = 2

	loBin       = 1
	hiBinRatio  = 0.75
	liveGain    = 1.8
	liveScale   = 0.85
	synthScale  = 0.7
	synthPower  = 1.5
	riseRate    = 0.15
	decayFactor = 0.92
)

// BandCount is the number of bands for a viewport width
func BandCount(width int) int {
	switch {
	case width < 640:
		return 40
	case width < 1024:
		return 70
	default:
		return 120
	}
}

// Signal returns the analyser's current spectrum, or nil when there is no analyser
// or every bin is zero (output stalled or suspended)
func Signal(a domain.Analyser, buf []byte) []byte {
	if a == nil {
		return nil
	}
	n := a.FrequencyBinCount()
	if n <= 0 {
		return nil
	}
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	a.ByteFrequencyData(buf)
	for _, v := range buf {
		if v > 0 {
			return buf
		}
	}
	return nil
}

// ComputeFrame returns the next band heights, in pixels within [RestingHeight, height].
// signal is live spectrum data or nil; without it a playing session gets a synthesized
// wave and a stopped one decays to rest. previous of the wrong length is discarded.
func ComputeFrame(bands int, height float64, signal []byte, playing bool, previous []float64, now time.Time) []float64 {
	if bands <= 0 {
		return nil
	}
	if len(previous) != bands {
		previous = make([]float64, bands)
	}
	next := make([]float64, bands)

	t := float64(now.UnixMilli()) / 500
	for i := 0; i < bands; i++ {
		target := RestingHeight
		switch {
		case signal != nil:
			target = liveTarget(signal, i, bands) * height * liveScale
		case playing:
			target = synthTarget(i, t) * height * synthScale
		}

		prev := previous[i]
		if prev == 0 {
			prev = RestingHeight
		}
		var current float64
		if target > prev {
			current = prev + (target-prev)*riseRate
		} else {
			current = prev * decayFactor
		}
		next[i] = math.Min(height, math.Max(RestingHeight, current))
	}
	return next
}

// liveTarget averages the bins assigned to band i and normalizes to [0,1].
// Bands are spread linearly over the lower three quarters of the spectrum.
func liveTarget(signal []byte, i, bands int) float64 {
	bins := len(signal)
	hiBin := int(math.Floor(float64(bins) * hiBinRatio))
	span := float64(hiBin - loBin)

	start := int(math.Floor(loBin + span*float64(i)/float64(bands)))
	end := int(math.Floor(loBin + span*float64(i+1)/float64(bands)))
	if end < start+1 {
		end = start + 1
	}

	sum, count := 0, 0
	for b := start; b < end && b < bins; b++ {
		sum += int(signal[b])
		count++
	}
	if count == 0 {
		return 0
	}
	avg := float64(sum) / float64(count)
	return math.Min(1, avg/255*liveGain)
}

// synthTarget is a moving sum of sinusoids in [0,1], biased low
func synthTarget(i int, t float64) float64 {
	x := float64(i)
	wave := 0.4*math.Sin(x*0.13+t) +
		0.3*math.Sin(x*0.07-t*1.3) +
		0.3*math.Cos(x*0.2+t*0.8)
	n := (wave + 1) / 2
	return math.Pow(n, synthPower)
}
