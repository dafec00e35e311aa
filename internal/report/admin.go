package report

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/banshee-data/lane.driver/internal/db"
	"github.com/banshee-data/lane.driver/internal/httputil"
)

// DefaultTickLimit bounds how many ticks the debug pages draw.
const DefaultTickLimit = 500

// TickSource is the part of the journal the report pages read from.
type TickSource interface {
	LatestSession() (db.Session, error)
	Ticks(sessionID string, limit int) ([]db.TickRecord, error)
}

// AttachAdminRoutes mounts /debug/ticks (HTML) and /debug/ticks.png on mux.
// Both accept session_id (default: latest session) and limit.
func AttachAdminRoutes(mux *http.ServeMux, src TickSource) {
	debug := tsweb.Debugger(mux)
	debug.Handle("ticks", "Steering and lane offset of recent ticks (chart)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ticks, ok := loadTicks(w, r, src)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := RenderTickPage(&buf, sessionID, ticks); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}))
	debug.Handle("ticks.png", "Steering of recent ticks (PNG)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ticks, ok := loadTicks(w, r, src)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := WriteTickPlot(&buf, sessionID, ticks, 0); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
}

func loadTicks(w http.ResponseWriter, r *http.Request, src TickSource) (string, []db.TickRecord, bool) {
	limit := DefaultTickLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return "", nil, false
		}
		limit = n
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		latest, err := src.LatestSession()
		if errors.Is(err, db.ErrNoSessions) {
			httputil.WriteJSONError(w, http.StatusNotFound, "no sessions recorded")
			return "", nil, false
		}
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load latest session: %v", err))
			return "", nil, false
		}
		sessionID = latest.ID
	}

	ticks, err := src.Ticks(sessionID, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load ticks: %v", err))
		return "", nil, false
	}
	if len(ticks) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "session has no ticks")
		return "", nil, false
	}
	return sessionID, ticks, true
}
