package visualizer

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// idleOpacity is the alpha of the flat bars drawn while stopped
const idleOpacity = 0.2

var barColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Render draws bands as white bars on a transparent canvas
func Render(width, height int, bands []float64) *image.NRGBA {
	return draw(width, height, bands, 1)
}

// RenderIdle draws flat resting bars at low opacity
func RenderIdle(width, height, count int) *image.NRGBA {
	flat := make([]float64, count)
	for i := range flat {
		flat[i] = RestingHeight
	}
	return draw(width, height, flat, idleOpacity)
}

func draw(width, height int, bands []float64, opacity float64) *image.NRGBA {
	canvas := imaging.New(width, height, color.Transparent)
	n := len(bands)
	if n == 0 || width <= 0 || height <= 0 {
		return canvas
	}

	barW := (float64(width) - float64(n-1)*BarGap) / float64(n)
	if barW < 1 {
		barW = 1
	}
	for i, h := range bands {
		x0 := int(math.Round(float64(i) * (barW + BarGap)))
		x1 := int(math.Round(float64(i)*(barW+BarGap) + barW))
		if x1 <= x0 {
			x1 = x0 + 1
		}
		bh := int(math.Round(math.Min(h, float64(height))))
		if bh <= 0 {
			continue
		}
		bar := imaging.New(x1-x0, bh, barColor)
		canvas = imaging.Overlay(canvas, bar, image.Pt(x0, height-bh), opacity)
	}
	return canvas
}

// EncodePNG writes img as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
