package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"unicode/utf8"

	"github.com/roach88/snapcheck/snaperr"
)

// Text encodes strings as UTF-8.
type Text struct{}

// Format implements Codec.
func (Text) Format() string { return FormatText }

// Encode implements Codec.
func (Text) Encode(s string) ([]byte, error) {
	return []byte(s), nil
}

// Decode implements Codec. Invalid UTF-8 is a decode failure.
func (Text) Decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", snaperr.Decode(FormatText, errors.New("invalid UTF-8"))
	}
	return string(data), nil
}

// Bytes passes binary data through unchanged.
type Bytes struct{}

// Format implements Codec.
func (Bytes) Format() string { return FormatBytes }

// Encode implements Codec.
func (Bytes) Encode(b []byte) ([]byte, error) {
	return b, nil
}

// Decode implements Codec.
func (Bytes) Decode(data []byte) ([]byte, error) {
	return data, nil
}

// PNG encodes images as PNG with default compression.
type PNG struct{}

// Format implements Codec.
func (PNG) Format() string { return FormatPNG }

// Encode implements Codec. Images with an empty bounds rectangle cannot be
// encoded and are reported as unrenderable.
func (PNG) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, snaperr.Unrenderable("nil image", nil)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, snaperr.Unrenderable(fmt.Sprintf("image not renderable at size %dx%d", b.Dx(), b.Dy()), nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (PNG) Decode(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, snaperr.Decode(FormatPNG, err)
	}
	return img, nil
}
