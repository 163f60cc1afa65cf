package visualizer

import (
	"github.com/genricoloni/volt/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// DefaultHeight is the height of the visualizer strip
const DefaultHeight = 64

// NewScreenResolution detects the primary screen resolution at startup
func NewScreenResolution(logger *zap.Logger) *domain.ScreenResolution {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		logger.Warn("No active displays detected, falling back to 1920x1080")
		return &domain.ScreenResolution{Width: 1920, Height: 1080}
	}

	bounds := screenshot.GetDisplayBounds(0)
	res := &domain.ScreenResolution{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	logger.Info("Screen resolution detected",
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))

	return res
}

// ViewportFor sizes the visualizer: configured values win, otherwise the
// screen width and the default strip height
func ViewportFor(screen *domain.ScreenResolution, cfg domain.Config) domain.ScreenResolution {
	vp := cfg.GetViewport()
	if vp.Width <= 0 {
		vp.Width = screen.Width
	}
	if vp.Height <= 0 {
		vp.Height = DefaultHeight
	}
	return vp
}
