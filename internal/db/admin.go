package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/lane.driver/internal/httputil"
	"github.com/banshee-data/lane.driver/internal/monitoring"
)

// AttachAdminRoutes mounts journal debugging endpoints under /debug/ on mux.
// These routes are meant for localhost or tailnet access only.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://journal.db", db.DB, &tailsql.DBOptions{
		Label: "Tick journal",
	})
	debug.Handle("tailsql/", "SQL live debugging of the tick journal", tsql.NewMux())

	debug.Handle("sessions", "Journalled sessions with summaries (JSON)", http.HandlerFunc(db.handleSessions))
	debug.Handle("backup", "Create and download a backup of the journal now", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *DB) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := db.Sessions(50)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	summaries := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		sum, err := db.SessionSummary(s.ID)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to summarise session %s: %v", s.ID, err))
			return
		}
		summaries = append(summaries, sum)
	}
	httputil.WriteJSONOK(w, summaries)
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("journal-backup-%d.db", time.Now().UnixNano()))
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.WriteFailures.Add(1)
		monitoring.Logf("failed to stream backup: %v", err)
	}
}
