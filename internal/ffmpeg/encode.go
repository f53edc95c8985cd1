package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
)

// EncodeOptions configures an incremental encode session.
type EncodeOptions struct {
	Width  int
	Height int
	FPS    float64

	VideoCodec string // ffmpeg encoder name, e.g. libx264
	Preset     string // x264-family speed preset; ignored for other encoders
	Bitrate    int64  // video bitrate in bits/s
	Container  string // ffmpeg muxer name, e.g. mp4, webm

	// AudioSource optionally muxes the audio stream of another file
	// alongside the piped frames. Empty means a silent output.
	AudioSource     string
	AudioCodec      string
	AudioBitrate    int64 // bits/s
	AudioSampleRate int

	Output string
}

// EncodeSession is an incremental encoder sink: raw RGBA frames are
// written as they are rendered and the container grows progressively.
// A session is single-use; after Close or Abort it cannot be restarted.
type EncodeSession struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	frames int
	closed bool
}

// StartEncode spawns the encoder process and returns the live session.
func (e *Executor) StartEncode(ctx context.Context, opts EncodeOptions) (*EncodeSession, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid encode dimensions %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("encode frame rate must be positive")
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", fmt.Sprintf("%.3f", opts.FPS),
		"-i", "pipe:0",
	}

	if opts.AudioSource != "" {
		args = append(args, "-i", opts.AudioSource,
			"-map", "0:v", "-map", "1:a?",
			"-c:a", opts.AudioCodec,
		)
		if opts.AudioBitrate > 0 {
			args = append(args, "-b:a", fmt.Sprintf("%d", opts.AudioBitrate))
		}
		if opts.AudioSampleRate > 0 {
			args = append(args, "-ar", fmt.Sprintf("%d", opts.AudioSampleRate))
		}
		// Audio may outlast the piped frames on short runs
		args = append(args, "-shortest")
	}

	args = append(args,
		"-c:v", opts.VideoCodec,
		"-pix_fmt", "yuv420p",
	)
	if opts.Preset != "" && strings.HasPrefix(opts.VideoCodec, "libx264") {
		args = append(args, "-preset", opts.Preset)
	}
	if opts.Bitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%d", opts.Bitrate))
	}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	if opts.Container != "" {
		args = append(args, "-f", opts.Container)
	}
	args = append(args, opts.Output)

	e.logger.Debug().
		Strs("args", args).
		Msg("starting encode session")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	session := &EncodeSession{cmd: cmd}
	cmd.Stderr = &session.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	session.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}

	e.logger.Info().
		Str("output", opts.Output).
		Str("codec", opts.VideoCodec).
		Str("container", opts.Container).
		Bool("audio", opts.AudioSource != "").
		Msg("encode session started")

	return session, nil
}

// WriteFrame feeds one rendered frame to the encoder. The frame must
// match the session dimensions.
func (s *EncodeSession) WriteFrame(frame *image.RGBA) error {
	if s.closed {
		return fmt.Errorf("encode session already closed")
	}
	if _, err := s.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("failed to write frame %d: %w: %s", s.frames, err, s.stderr.String())
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (s *EncodeSession) Frames() int {
	return s.frames
}

// Close signals end of input and waits for the encoder to flush
// trailing chunks and finish the container.
func (s *EncodeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stdin.Close(); err != nil {
		return fmt.Errorf("failed to close encoder input: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %w: %s", err, s.stderr.String())
	}
	return nil
}

// Abort kills the encoder without finishing the container. Used on
// cancellation; the partial output is the caller's to remove.
func (s *EncodeSession) Abort() {
	if s.closed {
		return
	}
	s.closed = true

	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
}
