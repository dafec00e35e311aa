package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lane.driver/internal/config"
	"github.com/banshee-data/lane.driver/internal/drive"
	"github.com/banshee-data/lane.driver/internal/testutil"
	"github.com/banshee-data/lane.driver/internal/timeutil"
	"github.com/banshee-data/lane.driver/internal/vision"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return d
}

func TestNewDB_MigratesAndAppliesPragmas(t *testing.T) {
	d := newTestDB(t)

	version, dirty, err := d.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var journalMode string
	require.NoError(t, d.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, d.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func TestMigrateDownAndUp(t *testing.T) {
	d := newTestDB(t)

	require.NoError(t, d.MigrateDown())
	version, _, err := d.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, d.MigrateUp())
	version, _, err = d.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestJournal_RecordsSessionTicks(t *testing.T) {
	d := newTestDB(t)
	start := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)

	session := drive.NewSession(
		drive.NewLanePipeline(config.EmptyDriverConfig()),
		drive.WithClock(clock),
		drive.WithRecorder(d),
	)
	t.Cleanup(func() { _ = session.Close() })
	first := session.State().ID.String()

	_, err := session.Step(testutil.LaneFrame(320, 240, 68, 72, 30, 290))
	require.NoError(t, err)
	_, err = session.Step(vision.NewFrame(320, 240))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	session.Reset()
	_, err = session.Step(testutil.LaneFrame(320, 240, 68, 72, 50, 310))
	require.NoError(t, err)
	second := session.State().ID.String()
	session.Flush()

	sessions, err := d.Sessions(0)
	require.NoError(t, err)
	want := []Session{
		{ID: second, StartedAt: start.Add(time.Minute), Ticks: 1},
		{ID: first, StartedAt: start, Ticks: 2},
	}
	if diff := cmp.Diff(want, sessions); diff != "" {
		t.Errorf("Sessions mismatch (-want +got):\n%s", diff)
	}

	ticks, err := d.Ticks(first, 0)
	require.NoError(t, err)
	wantTicks := []TickRecord{
		{SessionID: first, Tick: 1, Offset: 0, Center: 160, Score: 2040, Speed: 0.2, Steering: 0},
		{SessionID: first, Tick: 2, Offset: -100, Center: 60, Score: 0, Speed: 0.2, Steering: -1.25},
	}
	if diff := cmp.Diff(wantTicks, ticks); diff != "" {
		t.Errorf("Ticks mismatch (-want +got):\n%s", diff)
	}

	latest, err := d.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)

	last, err := d.Ticks(first, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, uint64(2), last[0].Tick)
}

func TestLatestSession_Empty(t *testing.T) {
	d := newTestDB(t)
	_, err := d.LatestSession()
	assert.True(t, errors.Is(err, ErrNoSessions))
}

func TestRecordTick_DuplicateFails(t *testing.T) {
	d := newTestDB(t)
	session := drive.NewSession(drive.NewLanePipeline(config.EmptyDriverConfig()), drive.WithRecorder(d))
	t.Cleanup(func() { _ = session.Close() })
	session.Flush()
	st := session.State()
	st.Ticks = 1

	require.NoError(t, d.RecordTick(st, drive.Decision{}))
	assert.Error(t, d.RecordTick(st, drive.Decision{}))
}

func TestSummarize(t *testing.T) {
	ticks := []TickRecord{
		{Offset: -10, Score: 100, Steering: -0.125},
		{Offset: 10, Score: 100, Steering: 0.125},
		{Offset: -100, Score: 0, Steering: -1.25},
	}
	s := Summarize("abc", ticks)

	assert.Equal(t, 3, s.Ticks)
	assert.Equal(t, 1, s.LostTicks)
	assert.InDelta(t, -1.25/3, s.MeanSteering, 1e-12)
	assert.InDelta(t, -100.0/3, s.MeanOffset, 1e-12)
	assert.Greater(t, s.StdDevSteering, 0.0)

	single := Summarize("abc", ticks[:1])
	assert.Equal(t, 0.0, single.StdDevOffset)
	assert.False(t, math.IsNaN(single.StdDevSteering))

	empty := Summarize("abc", nil)
	assert.Equal(t, Summary{SessionID: "abc"}, empty)
}

func TestSessionSummary(t *testing.T) {
	d := newTestDB(t)
	session := drive.NewSession(drive.NewLanePipeline(config.EmptyDriverConfig()), drive.WithRecorder(d))
	for i := 0; i < 3; i++ {
		_, err := session.Step(vision.NewFrame(320, 240))
		require.NoError(t, err)
	}
	require.NoError(t, session.Close())

	s, err := d.SessionSummary(session.State().ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Ticks)
	assert.Equal(t, 3, s.LostTicks)
	assert.InDelta(t, -1.25, s.MeanSteering, 1e-12)

	_, err = d.SessionSummary("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func debugRequest(path string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.RemoteAddr = "127.0.0.1:4321"
	return r
}

func TestAttachAdminRoutes(t *testing.T) {
	d := newTestDB(t)
	session := drive.NewSession(drive.NewLanePipeline(config.EmptyDriverConfig()), drive.WithRecorder(d))
	_, err := session.Step(vision.NewFrame(320, 240))
	require.NoError(t, err)
	require.NoError(t, session.Close())

	mux := http.NewServeMux()
	require.NoError(t, d.AttachAdminRoutes(mux))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, debugRequest("/debug/sessions"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var summaries []Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Ticks)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, debugRequest("/debug/backup"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	backup, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(backup[:16]))
}
