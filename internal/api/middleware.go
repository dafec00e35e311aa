package api

import (
	"net/http"
	"time"

	"github.com/banshee-data/lane.driver/internal/drive"
	"github.com/banshee-data/lane.driver/internal/monitoring"
)

// tickWriter remembers what a handler sent so the request can be logged
// once it completes.
type tickWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	state  *drive.State
}

// noteState attaches the session state a handler left behind to the request
// log line, when w is being logged.
func noteState(w http.ResponseWriter, st drive.State) {
	if tw, ok := w.(*tickWriter); ok {
		tw.state = &st
	}
}

func (tw *tickWriter) WriteHeader(code int) {
	tw.status = code
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *tickWriter) Write(p []byte) (int, error) {
	n, err := tw.ResponseWriter.Write(p)
	tw.bytes += n
	return n, err
}

func (tw *tickWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WithRequestLog wraps next so that every request is logged with its
// outcome. Drive and reset lines also carry the session and tick the request
// left behind.
func WithRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tw := &tickWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(tw, r)
		elapsed := time.Since(start).Round(time.Microsecond)

		if tw.state == nil {
			monitoring.Logf("%s %s %d %dB %v", r.Method, r.RequestURI, tw.status, tw.bytes, elapsed)
			return
		}
		st := tw.state
		monitoring.Logf("%s %s %d %dB %v session=%s tick=%d speed=%.3f steering=%.4f",
			r.Method, r.RequestURI, tw.status, tw.bytes, elapsed,
			st.ID, st.Ticks, st.Speed, st.Steering)
	})
}
