package drive

import "github.com/banshee-data/lane.driver/internal/monitoring"

// recorderQueueSize is how many events a recorder may fall behind before
// further events are dropped.
const recorderQueueSize = 256

// Recorder observes session activity. Each recorder is fed from its own
// queue on its own goroutine, in tick order, so a slow recorder never holds
// up a tick. Implementations must not call back into the session.
type Recorder interface {
	// RecordReset is called when a session starts, including the first one.
	RecordReset(st State) error
	// RecordTick is called after a tick's decision has been merged.
	RecordTick(st State, d Decision) error
}

type recordEvent struct {
	reset    bool
	state    State
	decision Decision
	// flushed, when set, marks a barrier: it is closed once every event
	// queued before it has been recorded.
	flushed chan struct{}
}

type recorderQueue struct {
	r      Recorder
	events chan recordEvent
	done   chan struct{}
}

func startRecorder(r Recorder) *recorderQueue {
	q := &recorderQueue{
		r:      r,
		events: make(chan recordEvent, recorderQueueSize),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *recorderQueue) run() {
	defer close(q.done)
	for ev := range q.events {
		switch {
		case ev.flushed != nil:
			close(ev.flushed)
		case ev.reset:
			if err := q.r.RecordReset(ev.state); err != nil {
				monitoring.RecorderFailures.Add(1)
				monitoring.Logf("session %s: failed to record start: %v", ev.state.ID, err)
			}
		default:
			if err := q.r.RecordTick(ev.state, ev.decision); err != nil {
				monitoring.RecorderFailures.Add(1)
				monitoring.Logf("session %s: failed to record tick %d: %v", ev.state.ID, ev.state.Ticks, err)
			}
		}
	}
}

// offer queues ev without blocking. A full queue drops the event.
func (q *recorderQueue) offer(ev recordEvent) {
	select {
	case q.events <- ev:
	default:
		monitoring.RecorderDrops.Add(1)
		monitoring.Logf("session %s: recorder queue full, dropped event at tick %d", ev.state.ID, ev.state.Ticks)
	}
}

// barrier queues a flush marker, waiting for room if need be.
func (q *recorderQueue) barrier() <-chan struct{} {
	ch := make(chan struct{})
	q.events <- recordEvent{flushed: ch}
	return ch
}

func (q *recorderQueue) stop() {
	close(q.events)
	<-q.done
}
