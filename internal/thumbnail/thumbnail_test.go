package thumbnail_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/thumbnail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspect_PNG(t *testing.T) {
	meta, err := thumbnail.Inspect(encodePNG(t, 40, 30))
	require.NoError(t, err)

	assert.Equal(t, 40, meta.Width)
	assert.Equal(t, 30, meta.Height)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, "image/png", meta.ContentType)
}

func TestInspect_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 16)), nil))

	meta, err := thumbnail.Inspect(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", meta.ContentType)
	assert.Equal(t, 8, meta.Width)
	assert.Equal(t, 16, meta.Height)
}

func TestInspect_RejectsNonImage(t *testing.T) {
	_, err := thumbnail.Inspect([]byte("<html>rate limited</html>"))
	assert.ErrorIs(t, err, thumbnail.ErrNotImage)

	_, err = thumbnail.Inspect(nil)
	assert.ErrorIs(t, err, thumbnail.ErrNotImage)
}

func TestRender_ScalesDownKeepingAspect(t *testing.T) {
	out, err := thumbnail.Render(encodePNG(t, 200, 100), 50)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestRender_DoesNotUpscale(t *testing.T) {
	out, err := thumbnail.Render(encodePNG(t, 20, 10), 500)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestRender_Errors(t *testing.T) {
	_, err := thumbnail.Render(encodePNG(t, 4, 4), 0)
	assert.Error(t, err)

	_, err = thumbnail.Render([]byte("nope"), 10)
	assert.ErrorIs(t, err, thumbnail.ErrNotImage)
}
