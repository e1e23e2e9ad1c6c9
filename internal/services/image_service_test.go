package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"

	"resale-api/internal/pkg/errors"
)

func makeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestValidateAcceptsScreenshot(t *testing.T) {
	svc := NewImageService()
	assert.NoError(t, svc.Validate(makeTestPNG(t, 400, 300)))
}

func TestValidateRejectsTinyImage(t *testing.T) {
	svc := NewImageService()
	err := svc.Validate(makeTestPNG(t, 50, 50))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewImageService()
	err := svc.Validate([]byte("definitely not pixels"))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestNormalizeProducesJPEG(t *testing.T) {
	svc := NewImageService()

	out, err := svc.Normalize(makeTestPNG(t, 400, 300))
	assert.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	assert.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestNormalizeDownscalesLargeImages(t *testing.T) {
	svc := NewImageService()

	out, err := svc.Normalize(makeTestPNG(t, 2400, 1200))
	assert.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	assert.NoError(t, err)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}
