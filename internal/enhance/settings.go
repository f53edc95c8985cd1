// Package enhance derives visual adjustment parameters from a scene
// analysis or from named style presets.
package enhance

import "github.com/keagan/reelpolish/internal/analysis"

// Settings is the working adjustment state for one editing session.
// Slider fields are signed magnitudes (roughly -100..100); Gamma is a
// multiplicative factor around 1.0.
type Settings struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Vibrance   float64
	Clarity    float64
	Sharpness  float64
	Highlights float64
	Shadows    float64
	Warmth     float64
	Fade       float64
	Gamma      float64

	// SkinSmooth is the skin retouch wet/dry amount (0-100, 0 off).
	// SkinTexture controls how much fine detail the smoothed skin
	// keeps (0-100); it has no effect while SkinSmooth is 0.
	SkinSmooth  float64
	SkinTexture float64

	CinematicMode bool
}

// Defaults returns the baseline settings every generated parameter set
// starts from.
func Defaults() Settings {
	return Settings{
		Brightness: 5,
		Contrast:   10,
		Saturation: 6,
		Vibrance:   8,
		Clarity:    5,
		Sharpness:  10,
		Highlights: -5,
		Shadows:    4,
		Warmth:     1,
		Fade:       0,
		Gamma:      0.92,
	}
}

// FromAnalysis maps a scene analysis to adjustment parameters.
// Deterministic: the same analysis always yields the same settings.
func FromAnalysis(a *analysis.VideoAnalysis) Settings {
	s := Defaults()
	if a == nil {
		return s
	}

	// Rule 1: contrast
	if a.ContrastLevel < 0.3 {
		s.Contrast = 12
	} else if a.ContrastLevel > 0.7 {
		s.Contrast = 8
	}

	// Rule 2: sharpness. The thresholds invert the stated "noisy
	// footage gets less sharpening" intent; kept literally for
	// behavioral compatibility until product clarifies.
	if a.NoiseLevel > 0.3 {
		s.Sharpness = 10
	} else if a.NoiseLevel < 0.1 {
		s.Sharpness = 15
	}

	// Rule 3: brightness
	if a.AverageBrightness < 0.3 {
		s.Brightness = 8
		s.Shadows = 8
	} else if a.AverageBrightness > 0.7 {
		s.Brightness = 3
		s.Highlights = -8
	}

	return s
}

// IsNeutral reports whether every adjustment field is at its identity
// value, meaning the render stage would pass pixels through untouched.
func (s Settings) IsNeutral() bool {
	return s.Brightness == 0 &&
		s.Contrast == 0 &&
		s.Saturation == 0 &&
		s.Vibrance == 0 &&
		s.Clarity == 0 &&
		s.Sharpness == 0 &&
		s.Highlights == 0 &&
		s.Shadows == 0 &&
		s.Warmth == 0 &&
		s.Fade == 0 &&
		(s.Gamma == 0 || s.Gamma == 1) &&
		s.SkinSmooth == 0 &&
		!s.CinematicMode
}
