package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives the reporter's notion of time in tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testReporter(fn Func) (*Reporter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := NewReporter(fn)
	r.now = clock.now
	return r, clock
}

func TestReporterThrottlesSameStage(t *testing.T) {
	var got []Report
	r, clock := testReporter(func(rep Report) { got = append(got, rep) })

	r.Emit(Report{Stage: StageEncoding, Percent: 20})
	clock.advance(10 * time.Millisecond)
	r.Emit(Report{Stage: StageEncoding, Percent: 21})
	clock.advance(10 * time.Millisecond)
	r.Emit(Report{Stage: StageEncoding, Percent: 22})

	assert.Len(t, got, 1, "reports inside the window are dropped")

	clock.advance(DefaultInterval)
	r.Emit(Report{Stage: StageEncoding, Percent: 30})
	assert.Len(t, got, 2)
	assert.Equal(t, 30.0, got[1].Percent)
}

func TestReporterStageTransitionsAlwaysEmit(t *testing.T) {
	var got []Report
	r, _ := testReporter(func(rep Report) { got = append(got, rep) })

	r.Emit(Report{Stage: StageAnalyzing, Percent: 0})
	r.Emit(Report{Stage: StageProcessing, Percent: 12})
	r.Emit(Report{Stage: StageEncoding, Percent: 20})

	assert.Len(t, got, 3, "stage changes bypass the throttle")
}

func TestReporterTerminalAlwaysEmits(t *testing.T) {
	var got []Report
	r, _ := testReporter(func(rep Report) { got = append(got, rep) })

	r.Emit(Report{Stage: StageComplete, Percent: 100})
	r.Emit(Report{Stage: StageError, Message: "boom"})

	assert.Len(t, got, 2)
}

func TestReporterForceBypassesThrottle(t *testing.T) {
	var got []Report
	r, _ := testReporter(func(rep Report) { got = append(got, rep) })

	r.Emit(Report{Stage: StageFinalizing, Percent: 95})
	r.Force(Report{Stage: StageFinalizing, Percent: 95})

	assert.Len(t, got, 2)
}

func TestReporterNilCallback(t *testing.T) {
	r := NewReporter(nil)
	// Must not panic
	r.Emit(Report{Stage: StageEncoding, Percent: 50})
	r.Force(Report{Stage: StageComplete, Percent: 100})
}
