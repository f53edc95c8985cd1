package analysis

import "fmt"

// VideoAnalysis holds the perceptual properties estimated from a
// sampled source. Produced once per source and never mutated.
type VideoAnalysis struct {
	AverageBrightness float64 // mean luminance, 0-1
	ContrastLevel     float64 // normalized luminance stddev, 0-1
	ColorTemperature  float64 // 0=cool, 1=warm
	NoiseLevel        float64 // normalized high-frequency proxy, 0-1
	DominantColors    []DominantColor

	// TemperatureEstimated is false while color temperature remains a
	// placeholder constant (see estimateColorTemperature).
	TemperatureEstimated bool
}

// DominantColor describes a prominent tone found in the combined
// luminance histogram, reported as a hue with fixed saturation and
// lightness.
type DominantColor struct {
	Hue        int // degrees, 0-359
	Saturation int // percent, fixed
	Lightness  int // percent, fixed
	Count      int // histogram votes behind this color
}

// HSL renders the color as a CSS-style hsl() descriptor.
func (c DominantColor) HSL() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.Hue, c.Saturation, c.Lightness)
}
