// Package analysis estimates perceptual properties of a video by
// decoding a handful of frames spread across its duration.
package analysis

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/reelpolish/internal/ffmpeg"
	"github.com/keagan/reelpolish/internal/progress"
)

// Sample positions as fractions of the source duration.
var samplePoints = []float64{0.10, 0.30, 0.50, 0.70, 0.90}

// dominantColorThreshold is the minimum histogram count for a local
// maximum to qualify as a dominant color.
const dominantColorThreshold = 1000

// maxDominantColors caps the reported dominant colors.
const maxDominantColors = 3

// Analyzer samples frames and aggregates them into one VideoAnalysis.
type Analyzer struct {
	logger zerolog.Logger
	ffmpeg *ffmpeg.Executor
}

// New creates an analyzer backed by the given executor.
func New(logger zerolog.Logger, exec *ffmpeg.Executor) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "analyzer").Logger(),
		ffmpeg: exec,
	}
}

// Analyze probes the source, decodes one frame at each sample point
// and aggregates the statistics. All samples must succeed; there is
// no partial result. onProgress may be nil.
func (a *Analyzer) Analyze(ctx context.Context, sourcePath string, onProgress progress.Func) (*VideoAnalysis, error) {
	reporter := progress.NewReporter(onProgress)

	info, err := a.ffmpeg.ProbeVideo(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("input", sourcePath).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("starting analysis")

	var (
		brightnessSum float64
		contrastSum   float64
		histogram     [256]int
		noise         float64
	)

	for i, point := range samplePoints {
		timestamp := time.Duration(float64(info.Duration) * point)

		frame, err := a.ffmpeg.ExtractFrameImage(ctx, sourcePath, timestamp)
		if err != nil {
			return nil, fmt.Errorf("sample %d/%d at %.0f%%: %w", i+1, len(samplePoints), point*100, err)
		}

		stats := sampleFrame(frame, &histogram)
		brightnessSum += stats.brightness
		contrastSum += stats.contrast

		// Noise comes from the last sampled frame only. A fast proxy
		// for high-frequency content, not a true noise model.
		if i == len(samplePoints)-1 {
			noise = estimateNoise(frame)
		}

		reporter.Emit(progress.Report{
			Stage:   progress.StageAnalyzing,
			Percent: float64(i+1) / float64(len(samplePoints)) * 100,
			Message: fmt.Sprintf("sampled frame %d of %d", i+1, len(samplePoints)),
		})

		a.logger.Debug().
			Int("sample", i+1).
			Float64("brightness", stats.brightness).
			Float64("contrast", stats.contrast).
			Msg("frame sampled")
	}

	n := float64(len(samplePoints))
	temperature, estimated := estimateColorTemperature()

	result := &VideoAnalysis{
		AverageBrightness:    brightnessSum / n,
		ContrastLevel:        contrastSum / n,
		ColorTemperature:     temperature,
		NoiseLevel:           noise,
		DominantColors:       dominantColors(&histogram),
		TemperatureEstimated: estimated,
	}

	a.logger.Info().
		Float64("brightness", result.AverageBrightness).
		Float64("contrast", result.ContrastLevel).
		Float64("noise", result.NoiseLevel).
		Int("dominant_colors", len(result.DominantColors)).
		Msg("analysis complete")

	return result, nil
}

type frameStats struct {
	brightness float64
	contrast   float64
}

// sampleFrame computes per-frame luminance statistics and accumulates
// the shared 256-bucket histogram.
func sampleFrame(img image.Image, histogram *[256]int) frameStats {
	bounds := img.Bounds()
	pixels := float64(bounds.Dx() * bounds.Dy())
	if pixels == 0 {
		return frameStats{}
	}

	var lumSum, lumSqSum float64

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			lumSum += lum
			lumSqSum += lum * lum

			bucket := int(lum)
			if bucket > 255 {
				bucket = 255
			}
			histogram[bucket]++
		}
	}

	mean := lumSum / pixels
	variance := (lumSqSum / pixels) - (mean * mean)
	if variance < 0 {
		variance = 0
	}

	return frameStats{
		brightness: mean / 255,
		contrast:   math.Sqrt(variance) / 255,
	}
}

// estimateNoise measures mean absolute difference between the channel
// sums of neighboring pixels, normalized by 255*3.
func estimateNoise(img image.Image) float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width*height < 2 {
		return 0
	}

	sums := make([]float64, 0, width*height)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sums = append(sums, float64(r>>8)+float64(g>>8)+float64(b>>8))
		}
	}

	var diffSum float64
	for i := 1; i < len(sums); i++ {
		diffSum += math.Abs(sums[i] - sums[i-1])
	}

	return diffSum / float64(len(sums)-1) / 765.0
}

// estimateColorTemperature is a placeholder. A real estimator would
// compare warm and cool channel energy; until one is specified the
// analyzer reports a neutral constant and marks it unestimated.
func estimateColorTemperature() (float64, bool) {
	return 0.5, false
}

// dominantColors finds local maxima in the combined histogram above
// the count threshold and reports the top entries as hue descriptors.
func dominantColors(histogram *[256]int) []DominantColor {
	type peak struct {
		bucket int
		count  int
	}

	var peaks []peak
	for i := 1; i < 255; i++ {
		if histogram[i] > dominantColorThreshold &&
			histogram[i] >= histogram[i-1] &&
			histogram[i] >= histogram[i+1] {
			peaks = append(peaks, peak{bucket: i, count: histogram[i]})
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].count > peaks[j].count
	})

	if len(peaks) > maxDominantColors {
		peaks = peaks[:maxDominantColors]
	}

	colors := make([]DominantColor, 0, len(peaks))
	for _, p := range peaks {
		colors = append(colors, DominantColor{
			Hue:        int(float64(p.bucket) / 255.0 * 360.0),
			Saturation: 70,
			Lightness:  50,
			Count:      p.count,
		})
	}

	return colors
}
