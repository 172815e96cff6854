// Package thumbnail validates downloaded photo payloads and renders resized copies.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
)

// ErrNotImage is returned for payloads that no registered decoder understands.
var ErrNotImage = errors.New("payload is not a supported image")

// Meta describes a decoded image header.
type Meta struct {
	Width       int
	Height      int
	Format      string
	ContentType string
}

// Inspect reads the image header of data without decoding the pixels.
func Inspect(data []byte) (Meta, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Meta{}, fmt.Errorf("%w: empty dimensions", ErrNotImage)
	}
	return Meta{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		ContentType: contentTypeOf(format, data),
	}, nil
}

// Render scales data down to width pixels, keeping the aspect ratio, and encodes it as
// JPEG. Images already narrower than width are re-encoded at their own size.
func Render(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("thumbnail width must be positive, got %d", width)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	dst := src
	if src.Bounds().Dx() > width {
		dst = imaging.Resize(src, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func contentTypeOf(format string, data []byte) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	}
	return http.DetectContentType(data)
}
