package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lane.driver/internal/drive"
)

// ErrNoSessions is returned by LatestSession on an empty journal.
var ErrNoSessions = errors.New("journal has no sessions")

// Session is one journalled driving session.
type Session struct {
	ID        string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Ticks     int       `json:"ticks"`
}

// TickRecord is one journalled tick.
type TickRecord struct {
	SessionID string  `json:"session_id"`
	Tick      uint64  `json:"tick"`
	Offset    int     `json:"offset"`
	Center    int     `json:"center"`
	Score     int     `json:"score"`
	Speed     float64 `json:"speed"`
	Steering  float64 `json:"steering"`
}

// RecordReset journals the start of a session. It satisfies drive.Recorder.
func (db *DB) RecordReset(st drive.State) error {
	_, err := db.Exec(
		"INSERT OR IGNORE INTO sessions (session_id, started_at) VALUES (?, ?)",
		st.ID.String(), st.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", st.ID, err)
	}
	return nil
}

// RecordTick journals a merged tick. It satisfies drive.Recorder.
func (db *DB) RecordTick(st drive.State, d drive.Decision) error {
	_, err := db.Exec(
		`INSERT INTO ticks (
			session_id, tick, lane_offset, lane_center, score, speed, steering
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID.String(), int64(st.Ticks), d.Estimate.Offset, d.Estimate.Center, d.Estimate.Score,
		st.Speed, st.Steering,
	)
	if err != nil {
		return fmt.Errorf("failed to record tick %d of session %s: %w", st.Ticks, st.ID, err)
	}
	return nil
}

// Sessions lists the most recent sessions, newest first. A limit <= 0
// returns every session.
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT s.session_id, s.started_at, COUNT(t.tick)
		FROM sessions s
		LEFT JOIN ticks t ON t.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC, s.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startedAt int64
		if err := rows.Scan(&s.ID, &startedAt, &s.Ticks); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, startedAt).UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// LatestSession returns the most recently started session.
func (db *DB) LatestSession() (Session, error) {
	sessions, err := db.Sessions(1)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, ErrNoSessions
	}
	return sessions[0], nil
}

// Ticks returns the ticks of a session in tick order. A limit > 0 keeps only
// the last limit ticks.
func (db *DB) Ticks(sessionID string, limit int) ([]TickRecord, error) {
	query := `
		SELECT session_id, tick, lane_offset, lane_center, score, speed, steering
		FROM ticks WHERE session_id = ? ORDER BY tick`
	args := []interface{}{sessionID}
	if limit > 0 {
		query = `SELECT * FROM (
			SELECT session_id, tick, lane_offset, lane_center, score, speed, steering
			FROM ticks WHERE session_id = ? ORDER BY tick DESC LIMIT ?
		) ORDER BY tick`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []TickRecord
	for rows.Next() {
		var t TickRecord
		var tick int64
		if err := rows.Scan(&t.SessionID, &tick, &t.Offset, &t.Center, &t.Score, &t.Speed, &t.Steering); err != nil {
			return nil, err
		}
		t.Tick = uint64(tick)
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ticks, nil
}

// Summary describes how steady a session's driving was.
type Summary struct {
	SessionID      string  `json:"session_id"`
	Ticks          int     `json:"ticks"`
	LostTicks      int     `json:"lost_ticks"` // ticks with no lane pixels under either rail
	MeanSteering   float64 `json:"mean_steering"`
	StdDevSteering float64 `json:"stddev_steering"`
	MeanOffset     float64 `json:"mean_offset"`
	StdDevOffset   float64 `json:"stddev_offset"`
}

// Summarize computes a Summary over ticks.
func Summarize(sessionID string, ticks []TickRecord) Summary {
	s := Summary{SessionID: sessionID, Ticks: len(ticks)}
	if len(ticks) == 0 {
		return s
	}

	steering := make([]float64, len(ticks))
	offsets := make([]float64, len(ticks))
	for i, t := range ticks {
		steering[i] = t.Steering
		offsets[i] = float64(t.Offset)
		if t.Score == 0 {
			s.LostTicks++
		}
	}

	s.MeanSteering = stat.Mean(steering, nil)
	s.MeanOffset = stat.Mean(offsets, nil)
	if len(ticks) > 1 {
		s.StdDevSteering = stat.StdDev(steering, nil)
		s.StdDevOffset = stat.StdDev(offsets, nil)
	}
	return s
}

// SessionSummary loads a session's ticks and summarises them.
func (db *DB) SessionSummary(sessionID string) (Summary, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE session_id = ?", sessionID).Scan(&exists)
	if err != nil {
		return Summary{}, err
	}
	if exists == 0 {
		return Summary{}, fmt.Errorf("session %s: %w", sessionID, sql.ErrNoRows)
	}

	ticks, err := db.Ticks(sessionID, 0)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(sessionID, ticks), nil
}
