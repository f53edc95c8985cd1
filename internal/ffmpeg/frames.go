package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"time"

	"github.com/keagan/reelpolish/pkg/util"
)

// ExtractFrameImage seeks to a timestamp and decodes exactly one frame.
func (e *Executor) ExtractFrameImage(ctx context.Context, input string, timestamp time.Duration) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Dur("timestamp", timestamp).
		Msg("extracting frame")

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", util.FormatSeconds(timestamp),
		"-i", input,
		"-vframes", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("frame extraction at %s failed: %w: %s", util.FormatDuration(timestamp), err, stderr.String())
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("frame extraction at %s produced no data", util.FormatDuration(timestamp))
	}

	img, err := png.Decode(bytes.NewReader(output))
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	return img, nil
}

// FrameReader streams decoded frames from a source as raw RGBA. It is
// the pipeline's decode clock: frames arrive in presentation order at
// the requested rate and the reader blocks until the next one is ready.
type FrameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	width  int
	height int
	buf    []byte
}

// OpenFrameReader starts a streaming decode of input at the given
// frame rate, producing frames at the source's native resolution.
func (e *Executor) OpenFrameReader(ctx context.Context, input string, width, height int, fps float64) (*FrameReader, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
	}
	if fps > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%.3f", fps))
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	reader := &FrameReader{
		cmd:    cmd,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*4),
	}
	cmd.Stderr = &reader.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	reader.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start streaming decode: %w", err)
	}

	e.logger.Debug().
		Str("input", input).
		Int("width", width).
		Int("height", height).
		Float64("fps", fps).
		Msg("streaming decode started")

	return reader, nil
}

// Next returns the next decoded frame. io.EOF signals the end of the
// stream. The returned image is freshly allocated; the caller owns it.
func (r *FrameReader) Next() (*image.RGBA, error) {
	if _, err := io.ReadFull(r.stdout, r.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame read failed: %w", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	copy(frame.Pix, r.buf)
	return frame, nil
}

// Close stops the decode process. Safe to call after EOF or mid-stream.
func (r *FrameReader) Close() error {
	r.stdout.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	err := r.cmd.Wait()
	// Wait errors are expected after a kill or a closed pipe
	if err != nil && r.stderr.Len() > 0 {
		return fmt.Errorf("decode process exited: %s", r.stderr.String())
	}
	return nil
}
