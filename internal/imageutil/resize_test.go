package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDownscaleLargeImage(t *testing.T) {
	data := encodePNG(t, 1024, 300)

	out, err := Downscale(data, 512)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 512, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestDownscalePortraitImage(t *testing.T) {
	data := encodePNG(t, 200, 1000)

	out, err := Downscale(data, 512)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dy())
	assert.Equal(t, 102, img.Bounds().Dx())
}

func TestDownscaleSmallImagePassesThrough(t *testing.T) {
	data := encodePNG(t, 100, 80)

	out, err := Downscale(data, 512)
	require.NoError(t, err)
	assert.Equal(t, data, out, "images within bounds are returned unmodified")
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	_, err := Downscale([]byte("not an image"), 512)
	assert.Error(t, err)
}
