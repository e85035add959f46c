package diffing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/roach88/snapcheck/codec"
)

// Artifact names attached to an image mismatch.
const (
	ReferenceArtifact  = "reference"
	FailureArtifact    = "failure"
	DifferenceArtifact = "difference"
)

// ImageOptions tunes raster comparison. A zero field means 1 (exact).
type ImageOptions struct {
	// Precision is the fraction of pixels that must match, in (0, 1].
	Precision float32

	// PerceptualPrecision is how similar a pixel must be to count as
	// matching, in (0, 1]. Below 1, pixels whose CIE94 color difference is
	// at most (1 - PerceptualPrecision) * 100 match.
	PerceptualPrecision float32
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Precision == 0 {
		o.Precision = 1
	}
	if o.PerceptualPrecision == 0 {
		o.PerceptualPrecision = 1
	}
	return o
}

// Image compares decoded images. Both criteria must hold independently: a
// differing pixel is counted once it fails the perceptual check, and the
// count must not exceed what Precision allows.
func Image(opts ImageOptions) Diffing[image.Image] {
	opts = opts.withDefaults()
	c := codec.PNG{}
	return Diffing[image.Image]{
		ToData:   c.Encode,
		FromData: c.Decode,
		Diff: func(reference, actual image.Image) *Mismatch {
			return compareImages(reference, actual, opts)
		},
	}
}

// PNG compares PNG-encoded images. Byte-identical inputs match without
// decoding. Stored bytes that are not a PNG fail to load.
func PNG(opts ImageOptions) Diffing[[]byte] {
	opts = opts.withDefaults()
	c := codec.Bytes{}
	return Diffing[[]byte]{
		ToData: c.Encode,
		FromData: func(data []byte) ([]byte, error) {
			if _, err := (codec.PNG{}).Decode(data); err != nil {
				return nil, err
			}
			return data, nil
		},
		Diff: func(reference, actual []byte) *Mismatch {
			if bytes.Equal(reference, actual) {
				return nil
			}
			ref, err := codec.PNG{}.Decode(reference)
			if err != nil {
				return &Mismatch{Message: "Reference is not a valid PNG: " + err.Error()}
			}
			act, err := codec.PNG{}.Decode(actual)
			if err != nil {
				return &Mismatch{Message: "Newly-taken snapshot is not a valid PNG: " + err.Error()}
			}
			return compareImages(ref, act, opts)
		},
	}
}

// AllowedDifferences is the number of pixels out of total that may differ at
// the given precision. The product is computed in float32, so a boundary such
// as 50 of 10000 pixels at 0.995 does not match.
func AllowedDifferences(total int, precision float32) int {
	return int(float32(1-precision) * float32(total))
}

func compareImages(reference, actual image.Image, opts ImageOptions) *Mismatch {
	rb, ab := reference.Bounds(), actual.Bounds()
	if rb.Dx() != ab.Dx() || rb.Dy() != ab.Dy() {
		return &Mismatch{
			Message: fmt.Sprintf("Newly-taken snapshot@%dx%d does not match reference@%dx%d.",
				ab.Dx(), ab.Dy(), rb.Dx(), rb.Dy()),
			Artifacts: imageArtifacts(reference, actual, nil),
		}
	}

	threshold := float64((1 - opts.PerceptualPrecision) * 100)
	total := rb.Dx() * rb.Dy()
	differing := 0
	diff := image.NewNRGBA(image.Rect(0, 0, rb.Dx(), rb.Dy()))
	for y := 0; y < rb.Dy(); y++ {
		for x := 0; x < rb.Dx(); x++ {
			rc := color.NRGBAModel.Convert(reference.At(rb.Min.X+x, rb.Min.Y+y)).(color.NRGBA)
			ac := color.NRGBAModel.Convert(actual.At(ab.Min.X+x, ab.Min.Y+y)).(color.NRGBA)
			diff.SetNRGBA(x, y, difference(rc, ac))
			if rc == ac {
				continue
			}
			if opts.PerceptualPrecision < 1 && DeltaE94(rc, ac) <= threshold {
				continue
			}
			differing++
		}
	}

	allowed := AllowedDifferences(total, opts.Precision)
	if differing <= allowed {
		return nil
	}

	msg := fmt.Sprintf("Newly-taken snapshot does not match reference. %d of %d pixels differ; %d allowed at precision %g.",
		differing, total, allowed, opts.Precision)
	if opts.PerceptualPrecision < 1 {
		msg += fmt.Sprintf(" Pixels within a color difference of %g count as matching.", threshold)
	}
	return &Mismatch{Message: msg, Artifacts: imageArtifacts(reference, actual, diff)}
}

func difference(a, b color.NRGBA) color.NRGBA {
	return color.NRGBA{R: absDiff(a.R, b.R), G: absDiff(a.G, b.G), B: absDiff(a.B, b.B), A: 0xff}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func imageArtifacts(reference, actual, diff image.Image) []Artifact {
	var out []Artifact
	add := func(name string, img image.Image) {
		if img == nil {
			return
		}
		data, err := codec.PNG{}.Encode(img)
		if err != nil {
			return
		}
		out = append(out, Artifact{Name: name, Format: codec.FormatPNG, Data: data})
	}
	add(ReferenceArtifact, reference)
	add(FailureArtifact, actual)
	add(DifferenceArtifact, diff)
	return out
}
