package ffmpeg

import (
	"errors"
	"time"
)

// ErrMediaLoad indicates the source could not be decoded or probed.
// Fatal to the operation that hit it; callers surface it and stop.
var ErrMediaLoad = errors.New("media load failed")

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath        string
	Duration        time.Duration
	Width           int
	Height          int
	FPS             float64
	Bitrate         int64
	VideoCodec      string
	PixelFormat     string
	HasAudio        bool
	AudioCodec      string
	AudioBitrate    int64
	AudioSampleRate int
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
}

// Default probe/load bound
const DefaultLoadTimeout = 10 * time.Second
