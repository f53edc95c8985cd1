package export

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/keagan/reelpolish/internal/ffmpeg"
	"github.com/keagan/reelpolish/internal/progress"
	"github.com/keagan/reelpolish/pkg/util"
)

// session is the per-run state of one export: identifiers, clocks,
// the live encoder sink and the cancel flag. Created by Export, owned
// by exactly one invocation and dead once that invocation returns —
// it is never reused, which is what makes the single-flight and
// cancellation contracts enforceable.
type session struct {
	id       string
	reporter *progress.Reporter

	stopped atomic.Bool

	encoder *ffmpeg.EncodeSession

	outputPath string
	tempAudio  string

	framesWritten int
	framesSkipped int
	totalFrames   int
}

func newSession(reporter *progress.Reporter) *session {
	return &session{
		id:       uuid.NewString(),
		reporter: reporter,
	}
}

// cancel requests a cooperative stop. Checked at frame boundaries;
// a frame already in flight completes.
func (s *session) cancel() {
	s.stopped.Store(true)
}

func (s *session) cancelled() bool {
	return s.stopped.Load()
}

// cleanup releases everything the run acquired: the encoder sink, the
// intermediate audio file and, when the run did not complete, the
// partial output.
func (s *session) cleanup(keepOutput bool) {
	if s.encoder != nil {
		s.encoder.Abort()
		s.encoder = nil
	}
	if s.tempAudio != "" {
		util.CleanupFiles(s.tempAudio)
		s.tempAudio = ""
	}
	if !keepOutput && s.outputPath != "" {
		util.CleanupFiles(s.outputPath)
	}
}
