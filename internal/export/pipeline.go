// Package export drives the frame-synchronized export pipeline: a
// state machine over analyzing → processing → encoding → finalizing →
// complete, with a side exit to error and a cooperative cancel.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/reelpolish/internal/enhance"
	"github.com/keagan/reelpolish/internal/ffmpeg"
	"github.com/keagan/reelpolish/internal/progress"
	"github.com/keagan/reelpolish/internal/render"
	"github.com/keagan/reelpolish/pkg/util"
)

// DefaultFinalizeDelay is the settling period before the encoder sink
// is stopped, allowing trailing chunks to flush.
const DefaultFinalizeDelay = 500 * time.Millisecond

// Request is the complete input to one export run.
type Request struct {
	SourcePath  string
	Enhancement enhance.Settings
	Settings    Settings
	OutputDir   string

	// WorkDir holds intermediate files (extracted audio). Empty means
	// the system temp directory.
	WorkDir string
}

// Result describes a finished export.
type Result struct {
	SessionID     string
	OutputPath    string
	MimeType      string
	SizeBytes     int64
	FramesWritten int
	FramesSkipped int
}

// Engine owns one export pipeline. Runs are single-flight: a second
// Export call while one is in progress fails with ErrInFlight.
type Engine struct {
	logger        zerolog.Logger
	ffmpeg        *ffmpeg.Executor
	renderer      *render.Renderer
	finalizeDelay time.Duration

	inFlight atomic.Bool

	mu      sync.Mutex
	current *session
}

// NewEngine creates an export engine on the given executor.
func NewEngine(logger zerolog.Logger, exec *ffmpeg.Executor) *Engine {
	return &Engine{
		logger:        logger.With().Str("component", "export").Logger(),
		ffmpeg:        exec,
		renderer:      render.New(logger),
		finalizeDelay: DefaultFinalizeDelay,
	}
}

// SetFinalizeDelay overrides the settling period before the encoder
// sink is stopped.
func (e *Engine) SetFinalizeDelay(d time.Duration) {
	if d > 0 {
		e.finalizeDelay = d
	}
}

// Cancel requests a cooperative stop of the in-flight run, if any.
// The run exits at the next frame boundary, releases its resources
// and never emits a complete event.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.cancel()
		e.logger.Info().Str("session", e.current.id).Msg("cancel requested")
	}
}

// Export runs the full pipeline and returns the finished output.
// onProgress may be nil; when set it is invoked fire-and-forget at
// pipeline-determined intervals. Every fatal failure emits exactly
// one stage=error report before the error returns.
func (e *Engine) Export(ctx context.Context, req Request, onProgress progress.Func) (*Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer e.inFlight.Store(false)

	reporter := progress.NewReporter(onProgress)
	sess := newSession(reporter)

	e.mu.Lock()
	e.current = sess
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.current = nil
		e.mu.Unlock()
	}()

	e.logger.Info().
		Str("session", sess.id).
		Str("input", req.SourcePath).
		Str("platform", req.Settings.Platform).
		Int("width", req.Settings.Width).
		Int("height", req.Settings.Height).
		Msg("starting export")

	result, err := e.run(ctx, sess, req)
	if err != nil {
		sess.cleanup(false)
		if errors.Is(err, ErrCancelled) {
			e.logger.Info().Str("session", sess.id).Msg("export cancelled")
			return nil, err
		}
		reporter.Force(progress.Report{
			Stage:   progress.StageError,
			Message: err.Error(),
		})
		e.logger.Error().Err(err).Str("session", sess.id).Msg("export failed")
		return nil, err
	}

	return result, nil
}

func (e *Engine) run(ctx context.Context, sess *session, req Request) (*Result, error) {
	// ---- analyzing: load source metadata, negotiate output format
	sess.reporter.Force(progress.Report{
		Stage:   progress.StageAnalyzing,
		Percent: 0,
		Message: "loading source metadata",
	})

	info, err := e.ffmpeg.ProbeVideo(ctx, req.SourcePath)
	if err != nil {
		return nil, err
	}

	format := negotiateFormat(e.ffmpeg.SupportedEncoders(ctx), e.logger, req.Settings)

	sess.reporter.Emit(progress.Report{
		Stage:   progress.StageAnalyzing,
		Percent: 10,
		Message: fmt.Sprintf("output format %s", format.MimeType),
	})

	// ---- processing: configure the capture surface, open the decode
	// stream, attach audio and start the encoder sink
	outDir := req.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := util.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	sess.outputPath = OutputPath(outDir, req.SourcePath, req.Settings, format.Extension, time.Now())

	sess.reporter.Force(progress.Report{
		Stage:   progress.StageProcessing,
		Percent: 12,
		Message: "configuring capture pipeline",
	})

	canvas := image.NewRGBA(image.Rect(0, 0, req.Settings.Width, req.Settings.Height))

	fps := req.Settings.CaptureFrameRate()
	reader, readerErr := e.ffmpeg.OpenFrameReader(ctx, req.SourcePath, info.Width, info.Height, fps)
	if readerErr != nil {
		// Streaming decode could not start; fall back to seeking
		// discrete timestamps at a reduced rate.
		e.logger.Warn().Err(readerErr).Msg("streaming decode unavailable, using frame stepping")
		if fps > MaxManualFrameRate {
			fps = MaxManualFrameRate
		}
	}
	if reader != nil {
		defer reader.Close()
	}

	sess.totalFrames = int(info.Duration.Seconds()*fps + 0.5)
	if sess.totalFrames < 1 {
		sess.totalFrames = 1
	}

	if err := e.startEncoder(ctx, sess, req, info, format, fps); err != nil {
		return nil, err
	}

	// ---- encoding: drive decode, render and encode clocks together
	sess.reporter.Force(progress.Report{
		Stage:       progress.StageEncoding,
		Percent:     20,
		TotalFrames: sess.totalFrames,
	})

	if reader != nil {
		err = e.encodeStreaming(ctx, sess, reader, canvas, req.Enhancement, fps, info.Duration)
	} else {
		err = e.encodeStepped(ctx, sess, req.SourcePath, canvas, req.Enhancement, fps)
	}
	if err != nil {
		return nil, err
	}

	// ---- finalizing: settle, then stop the encoder sink
	sess.reporter.Force(progress.Report{
		Stage:        progress.StageFinalizing,
		Percent:      95,
		CurrentFrame: sess.framesWritten,
		TotalFrames:  sess.totalFrames,
		Message:      "flushing encoder",
	})

	select {
	case <-time.After(e.finalizeDelay):
	case <-ctx.Done():
		return nil, ErrCancelled
	}
	if sess.cancelled() {
		return nil, ErrCancelled
	}

	encoder := sess.encoder
	sess.encoder = nil
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize output: %w", err)
	}

	// A cancel that lands while the container is being finished still
	// suppresses the complete event; the finished output is discarded.
	if sess.cancelled() {
		return nil, ErrCancelled
	}

	// ---- complete
	stat, err := os.Stat(sess.outputPath)
	if err != nil {
		return nil, fmt.Errorf("output missing after encode: %w", err)
	}
	sess.cleanup(true)

	sess.reporter.Force(progress.Report{
		Stage:        progress.StageComplete,
		Percent:      100,
		CurrentFrame: sess.framesWritten,
		TotalFrames:  sess.totalFrames,
	})

	e.logger.Info().
		Str("session", sess.id).
		Str("output", sess.outputPath).
		Int64("size", stat.Size()).
		Int("frames", sess.framesWritten).
		Int("skipped", sess.framesSkipped).
		Msg("export complete")

	return &Result{
		SessionID:     sess.id,
		OutputPath:    sess.outputPath,
		MimeType:      format.MimeType,
		SizeBytes:     stat.Size(),
		FramesWritten: sess.framesWritten,
		FramesSkipped: sess.framesSkipped,
	}, nil
}

// startEncoder attaches audio via the preference ladder and starts
// the incremental sink. Audio failure is never fatal: (a) map the
// source's audio stream directly, (b) extract it to an intermediate
// file and mux from there, (c) export silent with a warning.
func (e *Engine) startEncoder(ctx context.Context, sess *session, req Request, info *ffmpeg.VideoInfo, format Format, fps float64) error {
	opts := ffmpeg.EncodeOptions{
		Width:           req.Settings.Width,
		Height:          req.Settings.Height,
		FPS:             fps,
		VideoCodec:      format.VideoEncoder,
		Preset:          req.Settings.EncoderPreset,
		Bitrate:         req.Settings.VideoBitrate(),
		Container:       format.Container,
		AudioCodec:      format.AudioEncoder,
		AudioBitrate:    req.Settings.AudioBitrate(),
		AudioSampleRate: req.Settings.AudioSampleRate,
		Output:          sess.outputPath,
	}

	if info.HasAudio {
		opts.AudioSource = req.SourcePath
		encoder, err := e.ffmpeg.StartEncode(ctx, opts)
		if err == nil {
			sess.encoder = encoder
			return nil
		}
		e.logger.Warn().Err(err).Msgf("%v: direct audio mapping rejected, extracting", ErrAudioCapture)

		workDir := req.WorkDir
		if workDir == "" || util.EnsureDir(workDir) != nil {
			workDir = os.TempDir()
		}
		tempAudio := filepath.Join(workDir, "reelpolish_audio_"+sess.id+".wav")
		if extractErr := e.ffmpeg.ExtractAudio(ctx, req.SourcePath, tempAudio, ffmpeg.DefaultIntermediateFormat()); extractErr == nil {
			sess.tempAudio = tempAudio
			opts.AudioSource = tempAudio
			encoder, err = e.ffmpeg.StartEncode(ctx, opts)
			if err == nil {
				sess.encoder = encoder
				return nil
			}
			e.logger.Warn().Err(err).Msgf("%v: intermediate audio mux rejected", ErrAudioCapture)
		} else {
			e.logger.Warn().Err(extractErr).Msgf("%v: audio extraction failed", ErrAudioCapture)
		}

		e.logger.Warn().Msg("all audio strategies failed, exporting silent")
	}

	opts.AudioSource = ""
	encoder, err := e.ffmpeg.StartEncode(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to start encoder: %w", err)
	}
	sess.encoder = encoder
	return nil
}

// encodeStreaming renders frames as the decode stream produces them.
// Progress maps media time linearly onto 20-90%.
func (e *Engine) encodeStreaming(ctx context.Context, sess *session, reader *ffmpeg.FrameReader, canvas *image.RGBA, settings enhance.Settings, fps float64, duration time.Duration) error {
	wallStart := time.Now()

	for {
		// Cancellation is cooperative: checked at frame boundaries
		// only, so a render in flight always completes.
		if sess.cancelled() || ctx.Err() != nil {
			return ErrCancelled
		}

		frame, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// The decode stream is gone; nothing further to render
			sess.framesSkipped++
			e.logger.Warn().Err(err).Msgf("%v: decode stream ended early", ErrFrameRender)
			return nil
		}

		e.renderer.RenderFrame(frame, canvas, settings)
		if err := sess.encoder.WriteFrame(canvas); err != nil {
			return fmt.Errorf("encoder rejected frame: %w", err)
		}
		sess.framesWritten++

		elapsed := time.Duration(float64(sess.framesWritten) / fps * float64(time.Second))
		sess.reporter.Emit(progress.Report{
			Stage:         progress.StageEncoding,
			Percent:       encodingPercent(elapsed.Seconds(), duration.Seconds()),
			CurrentFrame:  sess.framesWritten,
			TotalFrames:   sess.totalFrames,
			TimeRemaining: estimateRemaining(wallStart, sess.framesWritten, sess.totalFrames),
		})
	}
}

// encodeStepped is the manual fallback: seek to discrete timestamps,
// decode one frame each and advance. Pacing is sacrificed for
// robustness; progress keys on frame index instead of elapsed time.
func (e *Engine) encodeStepped(ctx context.Context, sess *session, sourcePath string, canvas *image.RGBA, settings enhance.Settings, fps float64) error {
	wallStart := time.Now()

	for i := 0; i < sess.totalFrames; i++ {
		if sess.cancelled() || ctx.Err() != nil {
			return ErrCancelled
		}

		timestamp := time.Duration(float64(i) / fps * float64(time.Second))
		frame, err := e.ffmpeg.ExtractFrameImage(ctx, sourcePath, timestamp)
		if err != nil {
			// A single bad frame is skipped, not fatal
			sess.framesSkipped++
			e.logger.Warn().Err(err).Int("frame", i).Msgf("%v: skipping frame", ErrFrameRender)
			continue
		}

		e.renderer.RenderFrame(frame, canvas, settings)
		if err := sess.encoder.WriteFrame(canvas); err != nil {
			return fmt.Errorf("encoder rejected frame: %w", err)
		}
		sess.framesWritten++

		sess.reporter.Emit(progress.Report{
			Stage:         progress.StageEncoding,
			Percent:       encodingPercent(float64(i+1), float64(sess.totalFrames)),
			CurrentFrame:  sess.framesWritten,
			TotalFrames:   sess.totalFrames,
			TimeRemaining: estimateRemaining(wallStart, i+1, sess.totalFrames),
		})
	}

	return nil
}

// encodingPercent maps completion linearly onto 20-90, clamped at 90.
func encodingPercent(done, total float64) float64 {
	if total <= 0 {
		return 90
	}
	p := 20 + done/total*70
	if p > 90 {
		p = 90
	}
	return p
}

// estimateRemaining projects wall time left from throughput so far.
func estimateRemaining(start time.Time, done, total int) time.Duration {
	if done <= 0 || total <= done {
		return 0
	}
	perFrame := time.Since(start) / time.Duration(done)
	return perFrame * time.Duration(total-done)
}
