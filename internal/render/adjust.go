package render

import (
	"image"
	"math"

	"github.com/keagan/reelpolish/internal/enhance"
)

// adjuster is the compound adjustment for one settings value: a
// per-channel tone curve followed by one color matrix. All active
// operations fold into these two so each frame pays a single pass,
// never one pass per setting.
type adjuster struct {
	curve    [256]uint8
	hasCurve bool

	matrix    [3][3]float64
	hasMatrix bool
}

// sepia is the standard sepia-tone matrix the warmth blend leans on.
var sepia = [3][3]float64{
	{0.393, 0.769, 0.189},
	{0.349, 0.686, 0.168},
	{0.272, 0.534, 0.131},
}

// Luminance weights used for the saturation matrix.
const (
	lumR = 0.299
	lumG = 0.587
	lumB = 0.114
)

// buildAdjuster compiles settings into a compound adjustment. Returns
// nil when every field is neutral so the render pass can skip the
// pixel loop entirely.
func buildAdjuster(s enhance.Settings) *adjuster {
	if s.IsNeutral() {
		return nil
	}

	a := &adjuster{}
	a.buildCurve(s)
	a.buildMatrix(s)

	if !a.hasCurve && !a.hasMatrix {
		return nil
	}
	return a
}

// buildCurve folds the per-channel operations into one 256-entry tone
// curve: brightness, contrast (with the sharpness and clarity
// stand-ins), gamma nudge, fade, highlights and shadows.
func (a *adjuster) buildCurve(s enhance.Settings) {
	brightness := 1 + s.Brightness/100

	// Sharpness here is a small contrast boost, not unsharp masking,
	// and clarity rides the same knob at half weight. Approximations
	// kept for behavioral compatibility.
	contrast := 1 + (s.Contrast+s.Sharpness*0.15+s.Clarity*0.5)/100

	// Gamma maps to an extra brightness nudge rather than a true
	// power curve (another deliberate approximation).
	if s.Gamma > 0 && s.Gamma != 1 {
		brightness *= 2 - s.Gamma
	}

	if s.CinematicMode {
		contrast *= 1.1
	}

	fade := s.Fade / 100
	highlights := s.Highlights / 100
	shadows := s.Shadows / 100

	identity := brightness == 1 && contrast == 1 && fade == 0 && highlights == 0 && shadows == 0

	for i := 0; i < 256; i++ {
		v := float64(i)

		v *= brightness
		v = (v-128)*contrast + 128

		// Shadows lift the lower half of the curve, highlights bend
		// the upper half, each scaled by distance from mid-gray.
		if v < 128 {
			v += shadows * (128 - v) * 0.5
		} else {
			v += highlights * (v - 128) * 0.5
		}

		// Fade lifts the black point toward gray
		if fade > 0 {
			v = v*(1-fade*0.3) + 128*fade*0.3
		}

		a.curve[i] = clamp255(v)
	}

	a.hasCurve = !identity
}

// buildMatrix folds saturation, vibrance, warmth and the cinematic
// color bundle into a single 3x3 matrix.
func (a *adjuster) buildMatrix(s enhance.Settings) {
	// Vibrance is simulated as amplified saturation at 0.6 weight
	satAmount := 1 + (s.Saturation+s.Vibrance*0.6)/100
	sepiaAmount := 0.0
	hueDegrees := 0.0

	if s.Warmth > 0 {
		sepiaAmount = s.Warmth / 100
	} else if s.Warmth < 0 {
		// Cool shift via hue rotation
		hueDegrees = s.Warmth * 0.3
	}

	if s.CinematicMode {
		satAmount *= 1.2
		sepiaAmount += 0.15
	}

	if satAmount == 1 && sepiaAmount == 0 && hueDegrees == 0 {
		return
	}

	m := saturationMatrix(satAmount)
	if hueDegrees != 0 {
		m = multiply(hueRotateMatrix(hueDegrees), m)
	}
	if sepiaAmount > 0 {
		if sepiaAmount > 1 {
			sepiaAmount = 1
		}
		m = blend(m, multiply(sepia, m), sepiaAmount)
	}

	a.matrix = m
	a.hasMatrix = true
}

// apply runs the compound adjustment over the drawn region of dst.
func (a *adjuster) apply(dst *image.RGBA, region image.Rectangle) {
	region = region.Intersect(dst.Bounds())

	for y := region.Min.Y; y < region.Max.Y; y++ {
		offset := dst.PixOffset(region.Min.X, y)
		for x := region.Min.X; x < region.Max.X; x++ {
			r := dst.Pix[offset]
			g := dst.Pix[offset+1]
			b := dst.Pix[offset+2]

			if a.hasCurve {
				r = a.curve[r]
				g = a.curve[g]
				b = a.curve[b]
			}

			if a.hasMatrix {
				fr := float64(r)
				fg := float64(g)
				fb := float64(b)
				r = clamp255(a.matrix[0][0]*fr + a.matrix[0][1]*fg + a.matrix[0][2]*fb)
				g = clamp255(a.matrix[1][0]*fr + a.matrix[1][1]*fg + a.matrix[1][2]*fb)
				b = clamp255(a.matrix[2][0]*fr + a.matrix[2][1]*fg + a.matrix[2][2]*fb)
			}

			dst.Pix[offset] = r
			dst.Pix[offset+1] = g
			dst.Pix[offset+2] = b
			offset += 4
		}
	}
}

func saturationMatrix(amount float64) [3][3]float64 {
	inv := 1 - amount
	return [3][3]float64{
		{lumR*inv + amount, lumG * inv, lumB * inv},
		{lumR * inv, lumG*inv + amount, lumB * inv},
		{lumR * inv, lumG * inv, lumB*inv + amount},
	}
}

// hueRotateMatrix follows the SVG/CSS hue-rotate construction.
func hueRotateMatrix(degrees float64) [3][3]float64 {
	rad := degrees * math.Pi / 180
	cos := math.Cos(rad)
	sin := math.Sin(rad)

	return [3][3]float64{
		{lumR + cos*(1-lumR) - sin*lumR, lumG - cos*lumG - sin*lumG, lumB - cos*lumB + sin*(1-lumB)},
		{lumR - cos*lumR + sin*0.143, lumG + cos*(1-lumG) + sin*0.140, lumB - cos*lumB - sin*0.283},
		{lumR - cos*lumR - sin*(1-lumR), lumG - cos*lumG + sin*lumG, lumB + cos*(1-lumB) + sin*lumB},
	}
}

func multiply(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

func blend(a, b [3][3]float64, t float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j]*(1-t) + b[i][j]*t
		}
	}
	return out
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
