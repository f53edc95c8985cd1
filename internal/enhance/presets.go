package enhance

// Preset is a partial settings overlay. Non-nil fields overwrite the
// current value; nil fields keep it. Applying the same preset twice
// is idempotent.
type Preset struct {
	Name string

	Brightness *float64
	Contrast   *float64
	Saturation *float64
	Vibrance   *float64
	Clarity    *float64
	Sharpness  *float64
	Highlights *float64
	Shadows    *float64
	Warmth     *float64
	Fade       *float64
	Gamma      *float64

	CinematicMode *bool
}

// Apply merges the preset onto s and returns the result.
func (p Preset) Apply(s Settings) Settings {
	if p.Brightness != nil {
		s.Brightness = *p.Brightness
	}
	if p.Contrast != nil {
		s.Contrast = *p.Contrast
	}
	if p.Saturation != nil {
		s.Saturation = *p.Saturation
	}
	if p.Vibrance != nil {
		s.Vibrance = *p.Vibrance
	}
	if p.Clarity != nil {
		s.Clarity = *p.Clarity
	}
	if p.Sharpness != nil {
		s.Sharpness = *p.Sharpness
	}
	if p.Highlights != nil {
		s.Highlights = *p.Highlights
	}
	if p.Shadows != nil {
		s.Shadows = *p.Shadows
	}
	if p.Warmth != nil {
		s.Warmth = *p.Warmth
	}
	if p.Fade != nil {
		s.Fade = *p.Fade
	}
	if p.Gamma != nil {
		s.Gamma = *p.Gamma
	}
	if p.CinematicMode != nil {
		s.CinematicMode = *p.CinematicMode
	}
	return s
}

// Cinematic leans into crushed shadows, muted color and the film-look
// bundle in the render stage.
func Cinematic() Preset {
	return Preset{
		Name:          "cinematic",
		Contrast:      f(15),
		Saturation:    f(-5),
		Highlights:    f(-12),
		Shadows:       f(6),
		Warmth:        f(4),
		Fade:          f(10),
		Gamma:         f(0.88),
		CinematicMode: b(true),
	}
}

// Vibrant pushes saturation and punch for feed-scrolling thumbnails.
func Vibrant() Preset {
	return Preset{
		Name:          "vibrant",
		Brightness:    f(6),
		Contrast:      f(12),
		Saturation:    f(25),
		Vibrance:      f(20),
		Sharpness:     f(12),
		CinematicMode: b(false),
	}
}

// Natural keeps corrections subtle.
func Natural() Preset {
	return Preset{
		Name:          "natural",
		Brightness:    f(2),
		Contrast:      f(5),
		Saturation:    f(3),
		Vibrance:      f(4),
		Sharpness:     f(5),
		Warmth:        f(0),
		Fade:          f(0),
		Gamma:         f(1.0),
		CinematicMode: b(false),
	}
}

// Presets returns the named style generators by name.
func Presets() map[string]Preset {
	return map[string]Preset{
		"cinematic": Cinematic(),
		"vibrant":   Vibrant(),
		"natural":   Natural(),
	}
}

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }
