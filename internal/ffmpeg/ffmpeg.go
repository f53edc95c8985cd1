package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int

	encodersOnce sync.Once
	encoders     map[string]bool
}

// New creates a new ffmpeg executor. An empty binary resolves ffmpeg
// from PATH; an explicit path expects ffprobe alongside it.
func New(logger zerolog.Logger, binary string, threads int) (*Executor, error) {
	if binary == "" {
		binary = "ffmpeg"
	}

	ffmpegPath, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	probe := "ffprobe"
	if strings.ContainsRune(binary, filepath.Separator) {
		probe = filepath.Join(filepath.Dir(ffmpegPath), "ffprobe")
	}
	ffprobePath, err := exec.LookPath(probe)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}, nil
}

// Run executes ffmpeg with the given arguments and streams output lines
// to the optional log handler.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// Threads must come before other arguments
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}

	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		streamLines(stderr, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		streamLines(stdout, opts.LogHandler)
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamLines forwards output lines to the handler, if any.
func streamLines(r io.Reader, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if logHandler != nil {
			logHandler(scanner.Text())
		}
	}
}

// SupportedEncoders returns the set of encoder names the local ffmpeg
// build reports. Parsed once per executor and cached.
func (e *Executor) SupportedEncoders(ctx context.Context) map[string]bool {
	e.encodersOnce.Do(func() {
		e.encoders = make(map[string]bool)

		cmd := exec.CommandContext(ctx, e.ffmpegPath, "-hide_banner", "-encoders")
		output, err := cmd.Output()
		if err != nil {
			e.logger.Warn().Err(err).Msg("encoder probe failed, assuming none supported")
			return
		}

		// Lines look like " V....D libx264   H.264 / AVC ..."
		// after a "------" separator.
		seenSeparator := false
		scanner := bufio.NewScanner(strings.NewReader(string(output)))
		for scanner.Scan() {
			line := scanner.Text()
			if !seenSeparator {
				if strings.Contains(line, "------") {
					seenSeparator = true
				}
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				e.encoders[fields[1]] = true
			}
		}

		e.logger.Debug().Int("encoders", len(e.encoders)).Msg("encoder probe complete")
	})

	return e.encoders
}
