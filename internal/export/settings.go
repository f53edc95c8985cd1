package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/keagan/reelpolish/pkg/util"
)

// Settings is the immutable configuration for one export run,
// usually taken from a platform preset.
type Settings struct {
	Platform string // bookkeeping tag for filenames and presets only

	Width       int
	Height      int
	FrameRate   float64
	BitrateMbps float64

	Format     string // container: mp4, webm, mov
	VideoCodec string // h264, vp9, vp8
	ColorSpace string

	AudioCodec       string // aac, opus
	AudioBitrateKbps int
	AudioSampleRate  int

	// EncoderPreset is the x264-family speed/quality tradeoff, taken
	// from configuration rather than platform presets.
	EncoderPreset string
}

// MaxFrameRate caps the capture rate; encode backends are unreliable
// above this in this design.
const MaxFrameRate = 30

// MaxManualFrameRate caps the seek-per-frame fallback, which trades
// pacing for robustness.
const MaxManualFrameRate = 15

// PlatformPreset returns the bundled settings for a platform tag.
// Unknown tags fall back to the generic custom preset.
func PlatformPreset(platform string) Settings {
	switch platform {
	case "tiktok":
		return Settings{
			Platform:         "tiktok",
			Width:            1080,
			Height:           1920,
			FrameRate:        30,
			BitrateMbps:      12,
			Format:           "mp4",
			VideoCodec:       "h264",
			ColorSpace:       "bt709",
			AudioCodec:       "aac",
			AudioBitrateKbps: 192,
			AudioSampleRate:  44100,
		}
	case "instagram":
		return Settings{
			Platform:         "instagram",
			Width:            1080,
			Height:           1920,
			FrameRate:        30,
			BitrateMbps:      10,
			Format:           "mp4",
			VideoCodec:       "h264",
			ColorSpace:       "bt709",
			AudioCodec:       "aac",
			AudioBitrateKbps: 128,
			AudioSampleRate:  44100,
		}
	case "youtube":
		return Settings{
			Platform:         "youtube",
			Width:            1080,
			Height:           1920,
			FrameRate:        60,
			BitrateMbps:      15,
			Format:           "mp4",
			VideoCodec:       "h264",
			ColorSpace:       "bt709",
			AudioCodec:       "aac",
			AudioBitrateKbps: 192,
			AudioSampleRate:  48000,
		}
	default:
		return Settings{
			Platform:         "custom",
			Width:            1920,
			Height:           1080,
			FrameRate:        30,
			BitrateMbps:      8,
			Format:           "mp4",
			VideoCodec:       "h264",
			ColorSpace:       "bt709",
			AudioCodec:       "aac",
			AudioBitrateKbps: 128,
			AudioSampleRate:  44100,
		}
	}
}

// PlatformNames lists the bundled presets.
func PlatformNames() []string {
	return []string{"tiktok", "instagram", "youtube", "custom"}
}

// CaptureFrameRate is the effective capture rate: the requested rate
// hard-capped at MaxFrameRate.
func (s Settings) CaptureFrameRate() float64 {
	if s.FrameRate <= 0 {
		return MaxFrameRate
	}
	if s.FrameRate > MaxFrameRate {
		return MaxFrameRate
	}
	return s.FrameRate
}

// VideoBitrate returns the video bitrate in bits per second.
func (s Settings) VideoBitrate() int64 {
	return int64(s.BitrateMbps * 1_000_000)
}

// AudioBitrate returns the audio bitrate in bits per second.
func (s Settings) AudioBitrate() int64 {
	return int64(s.AudioBitrateKbps) * 1000
}

// EstimateFileSize predicts the output size in bytes for a run of the
// given duration: ((video bps + audio bps) * seconds) / 8.
func EstimateFileSize(duration time.Duration, bitrateMbps float64, audioBitrateKbps int) int64 {
	videoBits := int64(bitrateMbps * 1_000_000)
	audioBits := int64(audioBitrateKbps) * 1000
	return (videoBits + audioBits) * int64(duration.Seconds()) / 8
}

// OutputFilename derives the export file name:
// <base>_<platform>_<width>x<height>_enhanced_<timestamp>.<ext>
func OutputFilename(sourcePath string, s Settings, ext string, now time.Time) string {
	base := util.BaseName(sourcePath)
	return fmt.Sprintf("%s_%s_%dx%d_enhanced_%s%s",
		base, s.Platform, s.Width, s.Height, util.FilenameTimestamp(now), ext)
}

// OutputPath joins the output directory and derived filename.
func OutputPath(dir, sourcePath string, s Settings, ext string, now time.Time) string {
	return filepath.Join(dir, OutputFilename(sourcePath, s, ext, now))
}
