// Package progress carries the stage/percentage reporting shared by
// the analyzer and the export pipeline.
package progress

import (
	"time"
)

// Stage identifies where in its lifecycle an operation is.
type Stage string

const (
	StageAnalyzing  Stage = "analyzing"
	StageProcessing Stage = "processing"
	StageEncoding   Stage = "encoding"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Report is one progress emission. Percent is 0-100 and non-decreasing
// within a stage; resets across stage transitions are legal.
type Report struct {
	Stage         Stage
	Percent       float64
	CurrentFrame  int
	TotalFrames   int
	TimeRemaining time.Duration
	Message       string
}

// Func receives progress reports. Implementations must be
// fire-and-forget; the pipeline never waits on the callback.
type Func func(Report)

// Reporter throttles intra-stage emissions to bound callback overhead.
// Stage transitions always go through. Zero-valued callback is allowed
// and makes every Emit a no-op.
type Reporter struct {
	fn        Func
	interval  time.Duration
	lastStage Stage
	lastEmit  time.Time
	now       func() time.Time
}

// DefaultInterval is the minimum wall time between same-stage reports.
const DefaultInterval = 100 * time.Millisecond

// NewReporter wraps fn with throttling at DefaultInterval.
func NewReporter(fn Func) *Reporter {
	return &Reporter{
		fn:       fn,
		interval: DefaultInterval,
		now:      time.Now,
	}
}

// Emit forwards a report unless it falls inside the throttle window.
// Terminal and stage-changing reports are never dropped.
func (r *Reporter) Emit(report Report) {
	if r.fn == nil {
		return
	}

	now := r.now()
	stageChanged := report.Stage != r.lastStage
	terminal := report.Stage == StageComplete || report.Stage == StageError

	if !stageChanged && !terminal && now.Sub(r.lastEmit) < r.interval {
		return
	}

	r.lastStage = report.Stage
	r.lastEmit = now
	r.fn(report)
}

// Force bypasses throttling entirely. Used for milestone percentages
// that must be observed (95, 100).
func (r *Reporter) Force(report Report) {
	if r.fn == nil {
		return
	}
	r.lastStage = report.Stage
	r.lastEmit = r.now()
	r.fn(report)
}
