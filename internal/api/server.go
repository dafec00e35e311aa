package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/banshee-data/lane.driver/internal/drive"
	"github.com/banshee-data/lane.driver/internal/httputil"
	"github.com/banshee-data/lane.driver/internal/monitoring"
	"github.com/banshee-data/lane.driver/internal/version"
	"github.com/banshee-data/lane.driver/internal/vision"
)

// DefaultMaxBodyBytes bounds a drive request body. A base64 PNG of a 320x240
// frame is well under 1MB.
const DefaultMaxBodyBytes = 16 << 20

// Server bridges simulator HTTP requests to a driving session.
type Server struct {
	session *drive.Session
	static  http.Handler
	maxBody int64
}

// NewServer creates a Server for the given session. Non-POST requests that
// match no API route are passed to static, which may be nil.
func NewServer(session *drive.Session, static http.Handler) *Server {
	return &Server{
		session: session,
		static:  static,
		maxBody: DefaultMaxBodyBytes,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/drive", s.handleDrive)
	mux.HandleFunc("/api/session", s.showSession)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// handleRoot treats every POST as a drive request, as the simulator posts
// frames to whatever page it was loaded from. Anything else is static.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleDrive(w, r)
		return
	}
	s.serveStatic(w, r)
}

// serveStatic answers non-POST requests on the driving routes the same way
// the page routes are answered, so a browser GET of /reset is not an error.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if s.static == nil {
		http.NotFound(w, r)
		return
	}
	s.static.ServeHTTP(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.serveStatic(w, r)
		return
	}
	// The reset body carries nothing; drain it so the connection can be reused.
	_, _ = io.Copy(io.Discard, http.MaxBytesReader(w, r.Body, s.maxBody))

	st := s.session.Reset()
	monitoring.Logf("driver reset, session %s", st.ID)
	noteState(w, st)
	httputil.WriteJSONOK(w, map[string]string{"STATUS": "OK"})
}

func (s *Server) handleDrive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.serveStatic(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		monitoring.DecodeFailures.Add(1)
		httputil.BadRequest(w, fmt.Sprintf("failed to read frame: %v", err))
		return
	}

	frame, err := DecodeFrame(body)
	if err != nil {
		monitoring.DecodeFailures.Add(1)
		httputil.BadRequest(w, err.Error())
		return
	}

	st, err := s.session.Advance(frame)
	switch {
	case errors.Is(err, vision.ErrInvalidFrame):
		httputil.UnprocessableEntity(w, err.Error())
		return
	case err != nil:
		httputil.InternalServerError(w, fmt.Sprintf("tick failed: %v", err))
		return
	}

	noteState(w, st)
	httputil.WriteJSONOK(w, st.Command())
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.session.State())
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Current())
}

// showStats reports the process-wide driver counters.
func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, monitoring.Snapshot())
}
