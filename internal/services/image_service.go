package services

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"resale-api/internal/pkg/errors"
)

const (
	minScreenshotDim = 100
	maxScreenshotDim = 1200
	jpegQuality      = 85
)

// ImageService validates and normalizes marketplace screenshots before they
// are sent to the vision model.
type ImageService struct{}

func NewImageService() *ImageService {
	return &ImageService{}
}

// Validate rejects anything that is not a plausible listing screenshot:
// unknown formats and images smaller than 100px on either side.
func (s *ImageService) Validate(data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "unsupported or corrupt image")
	}

	switch format {
	case "jpeg", "png", "webp":
	default:
		return errors.Wrap(errors.ErrInvalidInput, "image must be JPEG, PNG or WebP")
	}

	if cfg.Width < minScreenshotDim || cfg.Height < minScreenshotDim {
		return errors.Wrap(errors.ErrInvalidInput, "image is too small to be a listing screenshot")
	}

	return nil
}

// Normalize re-encodes the screenshot as a bounded JPEG: downscaled to at
// most 1200px on the longest side, quality 85. Keeps vision API payloads
// small and strips alpha channels.
func (s *ImageService) Normalize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "unsupported or corrupt image")
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxScreenshotDim || height > maxScreenshotDim {
		scale := float64(maxScreenshotDim) / float64(width)
		if height > width {
			scale = float64(maxScreenshotDim) / float64(height)
		}
		newWidth := int(float64(width) * scale)
		newHeight := int(float64(height) * scale)

		scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode screenshot")
	}

	return buf.Bytes(), nil
}
