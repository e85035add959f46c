package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

var (
	White = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Black = color.NRGBA{A: 0xff}
)

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// WithDiffering returns a copy of img with the first n pixels, in row
// order, set to c.
func WithDiffering(img *image.NRGBA, n int, c color.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	w := img.Bounds().Dx()
	for i := 0; i < n; i++ {
		out.SetNRGBA(i%w, i/w, c)
	}
	return out
}

// EncodePNG encodes img, failing the test on error.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.Bytes()
}
