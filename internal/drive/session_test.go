package drive

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lane.driver/internal/config"
	"github.com/banshee-data/lane.driver/internal/monitoring"
	"github.com/banshee-data/lane.driver/internal/testutil"
	"github.com/banshee-data/lane.driver/internal/timeutil"
	"github.com/banshee-data/lane.driver/internal/vision"
)

// scriptedPipeline returns queued decisions in order, then repeats the last.
type scriptedPipeline struct {
	decisions []Decision
	err       error
	calls     int
}

func (p *scriptedPipeline) Decide(*vision.Frame) (Decision, error) {
	if p.err != nil {
		return Decision{}, p.err
	}
	i := min(p.calls, len(p.decisions)-1)
	p.calls++
	return p.decisions[i], nil
}

type recordingRecorder struct {
	resets []State
	ticks  []State
	err    error
}

func (r *recordingRecorder) RecordReset(st State) error {
	r.resets = append(r.resets, st)
	return r.err
}

func (r *recordingRecorder) RecordTick(st State, _ Decision) error {
	r.ticks = append(r.ticks, st)
	return r.err
}

// stalledRecorder blocks every call until release is closed.
type stalledRecorder struct {
	release chan struct{}
}

func (r *stalledRecorder) RecordReset(State) error {
	<-r.release
	return nil
}

func (r *stalledRecorder) RecordTick(State, Decision) error {
	<-r.release
	return nil
}

var ignoreIdentity = cmpopts.IgnoreFields(State{}, "ID", "StartedAt")

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession(&scriptedPipeline{})
	st := s.State()

	assert.Equal(t, 0.0, st.Speed)
	assert.Equal(t, 0.0, st.Steering)
	assert.Equal(t, uint64(0), st.Ticks)
	assert.NotEqual(t, uuid.Nil, st.ID)
}

func TestSessionStep_ReturnsFullCommand(t *testing.T) {
	s := NewSession(NewLanePipeline(config.EmptyDriverConfig()))

	c, err := s.Step(testutil.LaneFrame(320, 240, 68, 72, 30, 290))
	require.NoError(t, err)
	require.True(t, c.Full())
	assert.Equal(t, 0.2, *c.Speed)
	assert.Equal(t, 0.0, *c.Steering)
	assert.Equal(t, uint64(1), s.State().Ticks)
}

func TestSessionStep_MergesPartialCommands(t *testing.T) {
	p := &scriptedPipeline{decisions: []Decision{
		{Command: Command{Speed: Float(0.3), Steering: Float(0.4)}},
		{Command: Command{Speed: Float(0.9)}},
		{Command: Command{Steering: Float(-0.1)}},
	}}
	s := NewSession(p)

	_, err := s.Step(nil)
	require.NoError(t, err)
	before := s.State()

	c, err := s.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, *c.Speed)
	assert.Equal(t, before.Steering, *c.Steering, "steering must survive a speed-only command")

	c, err = s.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, *c.Speed)
	assert.Equal(t, -0.1, *c.Steering)
	assert.Equal(t, uint64(3), s.State().Ticks)
}

func TestSessionStep_ErrorLeavesStateUntouched(t *testing.T) {
	p := &scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(0.5), Steering: Float(0.5)}}}}
	s := NewSession(p)
	_, err := s.Step(nil)
	require.NoError(t, err)
	before := s.State()
	invalidBefore := monitoring.InvalidFrames.Value()

	p.err = vision.ErrInvalidFrame
	_, err = s.Step(nil)
	assert.True(t, errors.Is(err, vision.ErrInvalidFrame))

	if diff := cmp.Diff(before, s.State()); diff != "" {
		t.Errorf("state changed on failed tick (-before +after):\n%s", diff)
	}
	assert.Equal(t, invalidBefore+1, monitoring.InvalidFrames.Value())
}

func TestSessionStep_InvalidFrameFromRealPipeline(t *testing.T) {
	s := NewSession(NewLanePipeline(config.EmptyDriverConfig()))

	_, err := s.Step(&vision.Frame{Width: 320, Height: 240, Channels: 4, Pix: make([]uint8, 320*240*4)})
	require.ErrorIs(t, err, vision.ErrInvalidFrame)
	assert.Equal(t, uint64(0), s.State().Ticks)
}

func TestSessionReset_NoResidue(t *testing.T) {
	p := &scriptedPipeline{decisions: []Decision{
		{Command: Command{Speed: Float(0.8), Steering: Float(1.0)}},
		{Command: Command{Steering: Float(0.25)}},
	}}
	s := NewSession(p)
	_, err := s.Step(nil)
	require.NoError(t, err)

	s.Reset()
	c, err := s.Step(nil)
	require.NoError(t, err)

	// Speed was never set after the reset, so it is the default.
	assert.Equal(t, 0.0, *c.Speed)
	assert.Equal(t, 0.25, *c.Steering)
	assert.Equal(t, uint64(1), s.State().Ticks)
}

func TestSessionReset_Idempotent(t *testing.T) {
	s := NewSession(&scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(1)}}}})
	_, err := s.Step(nil)
	require.NoError(t, err)

	once := s.Reset()
	twice := s.Reset()
	assert.Equal(t, twice, s.State(), "Reset returns the state it installed")

	if diff := cmp.Diff(once, twice, ignoreIdentity); diff != "" {
		t.Errorf("second reset changed state (-once +twice):\n%s", diff)
	}
	assert.NotEqual(t, once.ID, twice.ID, "every reset starts a new session id")
}

func TestSessionReset_UsesClock(t *testing.T) {
	start := time.Date(2025, time.May, 4, 10, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s := NewSession(&scriptedPipeline{}, WithClock(clock))
	assert.True(t, s.State().StartedAt.Equal(start))

	clock.Advance(time.Minute)
	s.Reset()
	assert.True(t, s.State().StartedAt.Equal(start.Add(time.Minute)))
}

func TestSessionRecorder(t *testing.T) {
	rec := &recordingRecorder{}
	p := &scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(0.2), Steering: Float(0)}}}}
	s := NewSession(p, WithRecorder(rec))
	t.Cleanup(func() { _ = s.Close() })

	s.Flush()
	require.Len(t, rec.resets, 1, "session start is recorded")
	_, _ = s.Step(nil)
	_, _ = s.Step(nil)
	s.Reset()
	s.Flush()

	require.Len(t, rec.ticks, 2)
	assert.Equal(t, uint64(1), rec.ticks[0].Ticks)
	assert.Equal(t, uint64(2), rec.ticks[1].Ticks)
	require.Len(t, rec.resets, 2)
	assert.NotEqual(t, rec.resets[0].ID, rec.resets[1].ID)
}

func TestSessionRecorder_FailureDoesNotFailTick(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	monitoring.SetLogger(nil)

	rec := &recordingRecorder{err: errors.New("disk full")}
	p := &scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(0.2), Steering: Float(0.1)}}}}
	failures := monitoring.RecorderFailures.Value()
	s := NewSession(p, WithRecorder(rec))
	t.Cleanup(func() { _ = s.Close() })

	c, err := s.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.1, *c.Steering)
	s.Flush()
	// The session start and the tick both failed to record.
	assert.Equal(t, failures+2, monitoring.RecorderFailures.Value())
}

func TestSession_EndToEndScenarios(t *testing.T) {
	tests := []struct {
		name         string
		frame        *vision.Frame
		wantSteering float64
	}{
		{"centred lane", testutil.LaneFrame(320, 240, 68, 72, 30, 290), 0},
		{"black frame", vision.NewFrame(320, 240), math.Max(-100.0/160.0*2, -math.Pi/2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(NewLanePipeline(config.EmptyDriverConfig()))
			c, err := s.Step(tt.frame)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantSteering, *c.Steering, 1e-12)
			assert.Equal(t, 0.2, *c.Speed)
		})
	}
}

func TestSessionRecorder_StalledRecorderDoesNotBlockTicks(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	monitoring.SetLogger(nil)

	rec := &stalledRecorder{release: make(chan struct{})}
	p := &scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(0.2), Steering: Float(0)}}}}
	s := NewSession(p, WithRecorder(rec))

	done := make(chan State)
	go func() {
		for i := 0; i < recorderQueueSize*2; i++ {
			_, _ = s.Step(nil)
		}
		done <- s.Reset()
	}()

	select {
	case st := <-done:
		assert.Equal(t, uint64(0), st.Ticks)
	case <-time.After(5 * time.Second):
		t.Fatal("Reset blocked behind a stalled recorder")
	}

	close(rec.release)
	require.NoError(t, s.Close())
}

func TestSessionRecorder_FullQueueDrops(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	monitoring.SetLogger(nil)

	rec := &stalledRecorder{release: make(chan struct{})}
	s := NewSession(&scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(1)}}}}, WithRecorder(rec))
	drops := monitoring.RecorderDrops.Value()

	// One event is held by the stalled recorder and the queue holds the rest.
	for i := 0; i < recorderQueueSize+10; i++ {
		_, err := s.Step(nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, monitoring.RecorderDrops.Value()-drops, int64(10))

	close(rec.release)
	require.NoError(t, s.Close())
}

func TestSessionClose(t *testing.T) {
	rec := &recordingRecorder{}
	s := NewSession(&scriptedPipeline{decisions: []Decision{{Command: Command{Speed: Float(1)}}}}, WithRecorder(rec))
	_, err := s.Step(nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.Len(t, rec.ticks, 1, "Close drains queued events")

	// Driving after Close still works but is not recorded.
	c, err := s.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *c.Speed)
	s.Flush()
	assert.Len(t, rec.ticks, 1)
	require.NoError(t, s.Close(), "second Close is a no-op")
}
