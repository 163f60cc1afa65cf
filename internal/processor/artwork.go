package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultBlurRadius = 15.0
	coverHeightRatio  = 0.40 // Cover size as percentage of backdrop height
	thumbSize         = 300
	jpegQuality       = 90
)

// Options holds configuration for artwork rendering
type Options struct {
	BlurRadius       float64
	CoverSizePercent float64 // Cover size as percentage of backdrop height (0.0-1.0)
	ThumbSize        int
}

// ArtworkProcessor builds the thumbnail and the blurred backdrop for a track
type ArtworkProcessor struct {
	logger *zap.Logger
	res    *domain.ScreenResolution
	opts   Options
	dir    string
}

// NewArtworkProcessor creates a processor writing into the configured cache dir
func NewArtworkProcessor(logger *zap.Logger, res *domain.ScreenResolution, cfg domain.Config) *ArtworkProcessor {
	return &ArtworkProcessor{
		logger: logger,
		res:    res,
		dir:    cfg.GetCacheDir(),
		opts: Options{
			BlurRadius:       defaultBlurRadius,
			CoverSizePercent: coverHeightRatio,
			ThumbSize:        thumbSize,
		},
	}
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}

func encode(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return buf.Bytes(), nil
}

// Backdrop renders a screen-sized blurred fill with the sharp cover centered
func (p *ArtworkProcessor) Backdrop(imageData []byte) ([]byte, error) {
	img, err := decode(imageData)
	if err != nil {
		return nil, err
	}
	return encode(p.backdrop(img))
}

func (p *ArtworkProcessor) backdrop(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := p.res.Width, p.res.Height

	background := imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	background = imaging.Blur(background, p.opts.BlurRadius)
	// darken so the cover stands out
	background = imaging.AdjustBrightness(background, -20)

	coverHeight := int(float64(h) * p.opts.CoverSizePercent)
	coverWidth := coverHeight * bounds.Dx() / bounds.Dy()
	if coverWidth > w {
		coverWidth = w
	}
	cover := imaging.Resize(img, coverWidth, coverHeight, imaging.Lanczos)

	return imaging.Paste(background, cover, image.Pt((w-coverWidth)/2, (h-coverHeight)/2))
}

// Thumbnail renders a square crop of the cover
func (p *ArtworkProcessor) Thumbnail(imageData []byte) ([]byte, error) {
	img, err := decode(imageData)
	if err != nil {
		return nil, err
	}
	return encode(imaging.Fill(img, p.opts.ThumbSize, p.opts.ThumbSize, imaging.Center, imaging.Lanczos))
}

// Generate writes both renditions to the cache dir and returns their absolute paths
func (p *ArtworkProcessor) Generate(ctx context.Context, imageData []byte, key string) (domain.ArtworkFiles, error) {
	img, err := decode(imageData)
	if err != nil {
		return domain.ArtworkFiles{}, err
	}

	thumb, err := encode(imaging.Fill(img, p.opts.ThumbSize, p.opts.ThumbSize, imaging.Center, imaging.Lanczos))
	if err != nil {
		return domain.ArtworkFiles{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ArtworkFiles{}, err
	}

	p.logger.Debug("Rendering backdrop", zap.Int("w", p.res.Width), zap.Int("h", p.res.Height))
	backdrop, err := encode(p.backdrop(img))
	if err != nil {
		return domain.ArtworkFiles{}, err
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return domain.ArtworkFiles{}, fmt.Errorf("failed to create cache directory: %w", err)
	}

	files := domain.ArtworkFiles{
		Thumb:    filepath.Join(p.dir, key+"-thumb.jpg"),
		Backdrop: filepath.Join(p.dir, key+"-backdrop.jpg"),
	}
	err = multierr.Combine(
		writeFile(files.Thumb, thumb),
		writeFile(files.Backdrop, backdrop),
	)
	if err != nil {
		return domain.ArtworkFiles{}, err
	}

	if abs, err := filepath.Abs(files.Thumb); err == nil {
		files.Thumb = abs
	}
	if abs, err := filepath.Abs(files.Backdrop); err == nil {
		files.Backdrop = abs
	}

	p.logger.Info("Artwork generated",
		zap.String("thumb", files.Thumb),
		zap.String("backdrop", files.Backdrop))
	return files, nil
}

// writeFile replaces path atomically so readers never see a partial image
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
