package imageutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // registers the JPEG decoder
	"image/png"

	"golang.org/x/image/draw"
)

// MaxAssetDimension caps the width/height of uploaded invoice assets.
// Logos and stamps render small on the final document.
const MaxAssetDimension = 512

// Downscale shrinks an image so neither dimension exceeds maxDim,
// preserving aspect ratio, and re-encodes it as PNG. Images already
// within bounds pass through untouched.
func Downscale(imageData []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = MaxAssetDimension
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxDim && height <= maxDim {
		return imageData, nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxDim
		newHeight = int(float64(height) * float64(maxDim) / float64(width))
	} else {
		newHeight = maxDim
		newWidth = int(float64(width) * float64(maxDim) / float64(height))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}
