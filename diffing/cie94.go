package diffing

import (
	"image/color"
	"math"
)

// D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.0
	whiteZ = 1.08883
)

// CIE94 graphic arts weights.
const (
	cie94K1 = 0.045
	cie94K2 = 0.015
)

type lab struct {
	l, a, b float64
}

// DeltaE94 returns the CIE94 color difference between two colors, with a
// as the reference. Identical colors return 0; black against white is 100.
func DeltaE94(a, b color.Color) float64 {
	l1, l2 := toLab(a), toLab(b)

	dL := l1.l - l2.l
	c1 := math.Hypot(l1.a, l1.b)
	c2 := math.Hypot(l2.a, l2.b)
	dC := c1 - c2
	da := l1.a - l2.a
	db := l1.b - l2.b
	dH2 := da*da + db*db - dC*dC
	if dH2 < 0 {
		dH2 = 0
	}

	sC := 1 + cie94K1*c1
	sH := 1 + cie94K2*c1
	return math.Sqrt(dL*dL + (dC/sC)*(dC/sC) + dH2/(sH*sH))
}

// toLab converts a color to CIELAB. Alpha is premultiplied, so translucent
// pixels are compared as if composited over black.
func toLab(c color.Color) lab {
	r, g, b, _ := c.RGBA()
	rl := linearize(float64(r) / 0xffff)
	gl := linearize(float64(g) / 0xffff)
	bl := linearize(float64(b) / 0xffff)

	x := (0.4124564*rl + 0.3575761*gl + 0.1804375*bl) / whiteX
	y := (0.2126729*rl + 0.7151522*gl + 0.0721750*bl) / whiteY
	z := (0.0193339*rl + 0.1191920*gl + 0.9503041*bl) / whiteZ

	fx, fy, fz := labF(x), labF(y), labF(z)
	return lab{
		l: 116*fy - 16,
		a: 500 * (fx - fy),
		b: 200 * (fy - fz),
	}
}

func linearize(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const epsilon = 216.0 / 24389.0
	const kappa = 24389.0 / 27.0
	if t > epsilon {
		return math.Cbrt(t)
	}
	return (kappa*t + 16) / 116
}
