package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

// generateTestVideo renders a short synthetic clip with lavfi sources
func generateTestVideo(t *testing.T, path string, seconds int, withAudio bool) {
	t.Helper()

	args := []string{"-y",
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=duration=%d:size=320x240:rate=30", seconds),
	}
	if withAudio {
		args = append(args,
			"-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=1000:duration=%d", seconds),
			"-shortest",
		)
	}
	args = append(args, "-pix_fmt", "yuv420p", path)

	if err := exec.Command("ffmpeg", args...).Run(); err != nil {
		t.Skipf("could not generate test video: %v", err)
	}
}

func testExecutor(t *testing.T) *Executor {
	t.Helper()

	logger := zerolog.New(os.Stderr)
	e, err := New(logger, "", 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
}

func TestProbeVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "probe.mp4")
	generateTestVideo(t, path, 2, true)

	e := testExecutor(t)
	info, err := e.ProbeVideo(context.Background(), path)
	if err != nil {
		t.Fatalf("ProbeVideo failed: %v", err)
	}

	if info.Width != 320 {
		t.Errorf("expected width 320, got %d", info.Width)
	}
	if info.Height != 240 {
		t.Errorf("expected height 240, got %d", info.Height)
	}
	if info.Duration == 0 {
		t.Error("duration is zero")
	}
	if !info.HasAudio {
		t.Error("expected audio stream")
	}

	t.Logf("probed: %dx%d, %.2f fps, %v, audio=%s",
		info.Width, info.Height, info.FPS, info.Duration, info.AudioCodec)
}

func TestProbeVideoInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	ctx := context.Background()

	if _, err := e.ProbeVideo(ctx, "nonexistent.mp4"); err == nil {
		t.Error("ProbeVideo should fail for non-existent file")
	}

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	os.WriteFile(invalidPath, []byte("not a video"), 0644)

	_, err := e.ProbeVideo(ctx, invalidPath)
	if err == nil {
		t.Fatal("ProbeVideo should fail for invalid video file")
	}
	if !errors.Is(err, ErrMediaLoad) {
		t.Errorf("expected ErrMediaLoad, got %v", err)
	}
}

func TestExtractFrameImage(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "frames.mp4")
	generateTestVideo(t, path, 2, false)

	e := testExecutor(t)
	img, err := e.ExtractFrameImage(context.Background(), path, 1*time.Second)
	if err != nil {
		t.Fatalf("ExtractFrameImage failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("expected 320x240 frame, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFrameReader(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "stream.mp4")
	generateTestVideo(t, path, 1, false)

	e := testExecutor(t)
	reader, err := e.OpenFrameReader(context.Background(), path, 320, 240, 10)
	if err != nil {
		t.Fatalf("OpenFrameReader failed: %v", err)
	}
	defer reader.Close()

	frames := 0
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed after %d frames: %v", frames, err)
		}
		if frame.Bounds().Dx() != 320 {
			t.Fatalf("unexpected frame width %d", frame.Bounds().Dx())
		}
		frames++
	}

	// 1 second at 10fps; allow fencepost slack
	if frames < 8 || frames > 12 {
		t.Errorf("expected ~10 frames, got %d", frames)
	}
}

func TestEncodeSession(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	ctx := context.Background()

	if !e.SupportedEncoders(ctx)["libx264"] {
		t.Skip("libx264 not available")
	}

	output := filepath.Join(t.TempDir(), "encoded.mp4")
	session, err := e.StartEncode(ctx, EncodeOptions{
		Width:      320,
		Height:     240,
		FPS:        10,
		VideoCodec: "libx264",
		Container:  "mp4",
		Output:     output,
	})
	if err != nil {
		t.Fatalf("StartEncode failed: %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range frame.Pix {
		frame.Pix[i] = 128
	}

	for i := 0; i < 20; i++ {
		if err := session.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if session.Frames() != 20 {
		t.Errorf("expected 20 frames written, got %d", session.Frames())
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := e.ProbeVideo(ctx, output)
	if err != nil {
		t.Fatalf("probe of encoded output failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("encoded output is %dx%d, want 320x240", info.Width, info.Height)
	}
	if info.Duration < 1500*time.Millisecond || info.Duration > 2500*time.Millisecond {
		t.Errorf("encoded duration %v, want ~2s", info.Duration)
	}
}

func TestEncodeSessionAbort(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	ctx := context.Background()

	if !e.SupportedEncoders(ctx)["libx264"] {
		t.Skip("libx264 not available")
	}

	output := filepath.Join(t.TempDir(), "aborted.mp4")
	session, err := e.StartEncode(ctx, EncodeOptions{
		Width:      320,
		Height:     240,
		FPS:        10,
		VideoCodec: "libx264",
		Container:  "mp4",
		Output:     output,
	})
	if err != nil {
		t.Fatalf("StartEncode failed: %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	_ = session.WriteFrame(frame)
	session.Abort()

	if err := session.WriteFrame(frame); err == nil {
		t.Error("WriteFrame should fail after Abort")
	}
}

func TestExtractAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "audio.mp4")
	generateTestVideo(t, path, 2, true)

	e := testExecutor(t)
	output := filepath.Join(t.TempDir(), "extracted.wav")

	err := e.ExtractAudio(context.Background(), path, output, DefaultIntermediateFormat())
	if err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}

	stat, err := os.Stat(output)
	if err != nil {
		t.Fatalf("extracted audio missing: %v", err)
	}
	// 2s of 44.1kHz stereo 16-bit pcm plus the wav header
	if stat.Size() < 100_000 {
		t.Errorf("extracted audio suspiciously small: %d bytes", stat.Size())
	}
}

func TestExtractAudioNoAudioStream(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "silent.mp4")
	generateTestVideo(t, path, 1, false)

	e := testExecutor(t)
	output := filepath.Join(t.TempDir(), "extracted.wav")

	if err := e.ExtractAudio(context.Background(), path, output, DefaultIntermediateFormat()); err == nil {
		t.Error("ExtractAudio should fail for a source with no audio stream")
	}
}

func TestSupportedEncoders(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	encoders := e.SupportedEncoders(context.Background())
	if len(encoders) == 0 {
		t.Fatal("expected at least one supported encoder")
	}
	t.Logf("%d encoders reported", len(encoders))
}
