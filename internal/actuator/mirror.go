package actuator

import (
	"fmt"
	"io"

	"github.com/banshee-data/lane.driver/internal/drive"
)

// Mirror writes each merged command as a text line:
//
//	S<speed> A<steering radians>
//
// Speed has three decimals and steering four. A reset writes a zero command
// so the vehicle stops while a new session starts.
type Mirror struct {
	w io.Writer
}

// NewMirror returns a Mirror writing to w. If w is an io.Closer, Close
// closes it.
func NewMirror(w io.Writer) *Mirror {
	return &Mirror{w: w}
}

// RecordReset satisfies drive.Recorder.
func (m *Mirror) RecordReset(st drive.State) error {
	return m.write(st.Speed, st.Steering)
}

// RecordTick satisfies drive.Recorder.
func (m *Mirror) RecordTick(st drive.State, _ drive.Decision) error {
	return m.write(st.Speed, st.Steering)
}

func (m *Mirror) write(speed, steering float64) error {
	if _, err := fmt.Fprintf(m.w, "S%.3f A%.4f\n", speed, steering); err != nil {
		return fmt.Errorf("actuator write: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it supports it.
func (m *Mirror) Close() error {
	if c, ok := m.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
