package drive

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lane.driver/internal/monitoring"
	"github.com/banshee-data/lane.driver/internal/timeutil"
	"github.com/banshee-data/lane.driver/internal/vision"
)

// State is the command state carried between ticks of one session.
type State struct {
	ID        uuid.UUID `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Ticks     uint64    `json:"ticks"`
	Speed     float64   `json:"speed"`
	Steering  float64   `json:"steering"`
}

// Command returns the full command held by the state.
func (st State) Command() Command {
	return Command{Speed: Float(st.Speed), Steering: Float(st.Steering)}
}

// apply merges the present fields of c into the state.
func (st *State) apply(c Command) {
	merged := st.Command().Merge(c)
	st.Speed, st.Steering = *merged.Speed, *merged.Steering
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used to stamp session starts.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithRecorder adds a recorder. Recorder errors are logged and counted but
// never fail a tick.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorders = append(s.recorders, r) }
}

// Session owns the state of a single driving session. Step and Reset are
// serialised by one lock held for the whole tick; recorders run outside it.
type Session struct {
	mu        sync.Mutex
	pipeline  Pipeline
	clock     timeutil.Clock
	recorders []Recorder
	queues    []*recorderQueue
	closed    bool
	flushing  sync.WaitGroup
	state     State
}

// NewSession starts a session in its default state. Sessions with recorders
// must be closed to stop their recorder goroutines.
func NewSession(p Pipeline, opts ...Option) *Session {
	s := &Session{pipeline: p, clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(s)
	}
	for _, r := range s.recorders {
		s.queues = append(s.queues, startRecorder(r))
	}
	s.recorders = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restart()
	return s
}

// Step runs one tick. The pipeline's (possibly partial) command is merged
// into the session and the full command is returned. On error the session
// state is left untouched.
func (s *Session) Step(f *vision.Frame) (Command, error) {
	st, err := s.Advance(f)
	if err != nil {
		return Command{}, err
	}
	return st.Command(), nil
}

// Advance is Step returning the whole session state the tick left behind.
func (s *Session) Advance(f *vision.Frame) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.pipeline.Decide(f)
	if err != nil {
		monitoring.InvalidFrames.Add(1)
		return State{}, err
	}

	s.state.apply(d.Command)
	s.state.Ticks++
	monitoring.Ticks.Add(1)
	s.record(recordEvent{state: s.state, decision: d})
	return s.state, nil
}

// Reset discards the session state, starts again from the defaults and
// returns the new state.
func (s *Session) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restart()
	monitoring.Resets.Add(1)
	return s.state
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Flush waits until every event recorded before the call has reached its
// recorder.
func (s *Session) Flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.flushing.Add(1)
	queues := s.queues
	s.mu.Unlock()
	defer s.flushing.Done()

	waits := make([]<-chan struct{}, 0, len(queues))
	for _, q := range queues {
		waits = append(waits, q.barrier())
	}
	for _, w := range waits {
		<-w
	}
}

// Close drains the recorder queues and stops their goroutines. Ticks after
// Close still drive but are no longer recorded.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.flushing.Wait()
	for _, q := range s.queues {
		q.stop()
	}
	return nil
}

func (s *Session) restart() {
	s.state = State{ID: uuid.New(), StartedAt: s.clock.Now()}
	s.record(recordEvent{reset: true, state: s.state})
}

// record hands ev to every recorder. Callers hold s.mu.
func (s *Session) record(ev recordEvent) {
	if s.closed {
		return
	}
	for _, q := range s.queues {
		q.offer(ev)
	}
}
