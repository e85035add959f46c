package diffing

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapcheck/codec"
	"github.com/roach88/snapcheck/internal/testutil"
	"github.com/roach88/snapcheck/snaperr"
)

// =============================================================================
// Bytes
// =============================================================================

func TestBytes_Reflexive(t *testing.T) {
	d := Bytes()
	for _, b := range [][]byte{nil, {}, []byte("abc")} {
		assert.Nil(t, d.Diff(b, b))
	}
}

func TestBytes_Messages(t *testing.T) {
	d := Bytes()

	m := d.Diff([]byte("abcd"), []byte("abce"))
	require.NotNil(t, m)
	assert.True(t, strings.HasPrefix(m.Message, "Expected data to match\n"))

	m = d.Diff([]byte("abcd"), []byte("abcde"))
	require.NotNil(t, m)
	assert.True(t, strings.HasPrefix(m.Message, "Expected 5 bytes to match 4 bytes\n"))
	assert.Contains(t, m.Message, "reference: 61626364\n")
	assert.Contains(t, m.Message, "actual:    6162636465")
}

func TestBytes_HexPreviewTruncated(t *testing.T) {
	long := []byte(strings.Repeat("a", 100))
	m := Bytes().Diff(long, []byte("b"))
	require.NotNil(t, m)
	assert.Contains(t, m.Message, strings.Repeat("61", hexPreviewLimit)+"...")
}

// =============================================================================
// Lines
// =============================================================================

func TestLines_Reflexive(t *testing.T) {
	d := Lines()
	for _, s := range []string{"", "a", "a\nb\n", "\n\n"} {
		assert.Nil(t, d.Diff(s, s))
	}
}

func TestLines_NamesChangedLine(t *testing.T) {
	m := Lines().Diff("a\nb\nc", "a\nx\nc")
	require.NotNil(t, m)

	expected := "--- reference\n" +
		"+++ actual\n" +
		"@@ -1,3 +1,3 @@\n" +
		" a\n" +
		"-b\n" +
		"+x\n" +
		" c\n"
	assert.Equal(t, expected, m.Message)

	require.Len(t, m.Artifacts, 1)
	assert.Equal(t, PatchArtifact, m.Artifacts[0].Name)
	assert.Equal(t, "patch", m.Artifacts[0].Format)
	assert.Equal(t, expected, string(m.Artifacts[0].Data))
}

func TestLines_EmptyAndSingleLine(t *testing.T) {
	m := Lines().Diff("", "a")
	require.NotNil(t, m)
	assert.Contains(t, m.Message, "+a")

	m = Lines().Diff("a", "")
	require.NotNil(t, m)
	assert.Contains(t, m.Message, "-a")

	m = Lines().Diff("a", "a\n")
	require.NotNil(t, m)
	assert.NotEmpty(t, m.Message)
}

func TestLines_FromDataRejectsInvalidUTF8(t *testing.T) {
	_, err := Lines().FromData([]byte{0xff})
	assert.True(t, snaperr.IsDecode(err))
}

// =============================================================================
// Images
// =============================================================================

func TestImage_Reflexive(t *testing.T) {
	img := testutil.Solid(4, 4, testutil.White)
	assert.Nil(t, Image(ImageOptions{}).Diff(img, img))
}

func TestImage_DimensionMismatchAlwaysFails(t *testing.T) {
	m := Image(ImageOptions{Precision: 0.01, PerceptualPrecision: 0.01}).Diff(testutil.Solid(2, 2, testutil.White), testutil.Solid(3, 2, testutil.White))
	require.NotNil(t, m)
	assert.Contains(t, m.Message, "snapshot@3x2 does not match reference@2x2")
}

func TestImage_PrecisionBoundary(t *testing.T) {
	reference := testutil.Solid(100, 100, testutil.White)
	actual := testutil.WithDiffering(reference, 50, testutil.Black) // 0.5% of 10000 pixels

	assert.Nil(t, Image(ImageOptions{Precision: 0.99}).Diff(reference, actual))

	m := Image(ImageOptions{Precision: 0.995}).Diff(reference, actual)
	require.NotNil(t, m)
	assert.Contains(t, m.Message, "50 of 10000 pixels differ")

	names := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		names = append(names, a.Name)
		assert.Equal(t, codec.FormatPNG, a.Format)
	}
	assert.Equal(t, []string{ReferenceArtifact, FailureArtifact, DifferenceArtifact}, names)
}

func TestAllowedDifferences(t *testing.T) {
	assert.Equal(t, 99, AllowedDifferences(10000, 0.99))
	assert.Equal(t, 49, AllowedDifferences(10000, 0.995))
	assert.Equal(t, 0, AllowedDifferences(10000, 1))
}

func TestImage_PerceptualPrecision(t *testing.T) {
	reference := testutil.Solid(10, 10, color.NRGBA{R: 100, G: 100, B: 100, A: 0xff})
	actual := testutil.Solid(10, 10, color.NRGBA{R: 101, G: 100, B: 100, A: 0xff})

	assert.NotNil(t, Image(ImageOptions{}).Diff(reference, actual))
	assert.Nil(t, Image(ImageOptions{PerceptualPrecision: 0.98}).Diff(reference, actual))
}

func TestImage_BothCriteriaIndependent(t *testing.T) {
	reference := testutil.Solid(10, 10, testutil.White)
	actual := testutil.WithDiffering(reference, 10, testutil.Black)

	// Ten of 100 pixels differ, exactly what 0.9 allows.
	assert.Nil(t, Image(ImageOptions{Precision: 0.9}).Diff(reference, actual))
	// Lenient per-pixel tolerance does not forgive black on white.
	assert.NotNil(t, Image(ImageOptions{PerceptualPrecision: 0.98}).Diff(reference, actual))
}

func TestImage_Monotonic(t *testing.T) {
	reference := testutil.Solid(20, 20, testutil.White)
	actual := testutil.WithDiffering(reference, 30, color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff})

	precisions := []float32{0.9, 0.95, 0.99, 1}
	matched := true
	for _, p := range precisions {
		ok := Image(ImageOptions{Precision: p}).Diff(reference, actual) == nil
		if !matched {
			assert.False(t, ok, "looser precision failed but %v passed", p)
		}
		matched = ok
	}
}

func TestPNG_ByteIdenticalShortcut(t *testing.T) {
	d := PNG(ImageOptions{})
	assert.Nil(t, d.Diff([]byte("not even png"), []byte("not even png")))

	m := d.Diff([]byte("junk"), []byte("other"))
	require.NotNil(t, m)
	assert.Contains(t, m.Message, "Reference is not a valid PNG")
}

func TestPNG_FromDataRejectsCorruptBytes(t *testing.T) {
	_, err := PNG(ImageOptions{}).FromData([]byte("not a png"))
	require.Error(t, err)
	assert.True(t, snaperr.IsDecode(err))

	valid, err := codec.PNG{}.Encode(testutil.Solid(1, 1, testutil.Black))
	require.NoError(t, err)
	back, err := PNG(ImageOptions{}).FromData(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, back)
}

func TestPNG_DecodesAndCompares(t *testing.T) {
	a, err := codec.PNG{}.Encode(testutil.Solid(3, 3, testutil.White))
	require.NoError(t, err)
	b, err := codec.PNG{}.Encode(testutil.WithDiffering(testutil.Solid(3, 3, testutil.White), 1, testutil.Black))
	require.NoError(t, err)

	assert.NotNil(t, PNG(ImageOptions{}).Diff(a, b))
	assert.Nil(t, PNG(ImageOptions{Precision: 0.8}).Diff(a, b))
}

func TestDeltaE94(t *testing.T) {
	assert.InDelta(t, 0, DeltaE94(testutil.White, testutil.White), 1e-9)
	assert.InDelta(t, 100, DeltaE94(testutil.Black, testutil.White), 0.5)
	assert.Less(t, DeltaE94(color.NRGBA{R: 100, G: 100, B: 100, A: 0xff}, color.NRGBA{R: 101, G: 100, B: 100, A: 0xff}), 2.0)
}
