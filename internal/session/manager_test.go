package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uav-flightlog/backend/internal/models"
	"github.com/uav-flightlog/backend/internal/testutil"
)

func waitFor(t *testing.T, m *Manager, id string) *models.ConversionSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := m.WaitForSession(ctx, id)
	require.NoError(t, err)
	return s
}

func TestManager_StartSession(t *testing.T) {
	files := testutil.WriteSampleFiles(t)
	m := NewManager(newTestConverter(t, files, true), nil, 0)

	sess, err := m.StartSession(ConvertRequest{LogPath: files.Log, Flight: testFlight})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusConverting, sess.Status)
	assert.Equal(t, filepath.Join(files.Dir, "out", "00000042_20190123_Flight2.xlsx"), sess.WorkbookPath)

	done := waitFor(t, m, sess.ID)
	require.Equal(t, models.SessionStatusComplete, done.Status, "errors: %v", done.Errors)
	assert.Equal(t, float64(100), done.Progress)
	assert.Equal(t, 3, done.TableCount)
	assert.Equal(t, 3, done.EntryCount)
	assert.False(t, done.CacheHit)

	values, err := m.GetValues(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"GPS", "BARO", "MSG"}, values.MessageTypes())

	again, err := m.StartSession(ConvertRequest{LogPath: files.Log, Flight: testFlight})
	require.NoError(t, err)
	assert.True(t, waitFor(t, m, again.ID).CacheHit)
	assert.Len(t, m.ListSessions(), 2)
}

func TestManager_SessionError(t *testing.T) {
	files := testutil.WriteSampleFiles(t)
	m := NewManager(newTestConverter(t, files, false), nil, 0)

	sess, err := m.StartSession(ConvertRequest{LogPath: filepath.Join(files.Dir, "missing.log"), Flight: testFlight})
	require.NoError(t, err)

	done := waitFor(t, m, sess.ID)
	assert.Equal(t, models.SessionStatusError, done.Status)
	require.Len(t, done.Errors, 1)
	assert.Contains(t, done.Errors[0].Reason, "missing.log")

	_, err = m.GetValues(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotReady)
}

func TestManager_RejectsBadFlight(t *testing.T) {
	files := testutil.WriteSampleFiles(t)
	m := NewManager(newTestConverter(t, files, false), nil, 0)

	_, err := m.StartSession(ConvertRequest{LogPath: files.Log, Flight: models.FlightInfo{Date: "20190123"}})
	assert.Error(t, err)
	assert.Empty(t, m.ListSessions())
}

func TestManager_UnknownSession(t *testing.T) {
	m := NewManager(NewConverter(ConverterConfig{}, nil, nil, nil), nil, 0)

	_, ok := m.GetSession("nope")
	assert.False(t, ok)
	assert.False(t, m.TouchSession("nope"))
	assert.False(t, m.DeleteSession("nope"))
	_, err := m.GetValues("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_GetSessionReturnsCopy(t *testing.T) {
	m := NewManager(NewConverter(ConverterConfig{}, nil, nil, nil), nil, 0)
	s := models.NewConversionSession("id-1", "a.log", testFlight)
	s.Status = models.SessionStatusComplete
	m.sessions["id-1"] = &SessionState{Session: s, LastAccessed: time.Now()}

	got, ok := m.GetSession("id-1")
	require.True(t, ok)
	got.Status = models.SessionStatusError
	got.Warnings = append(got.Warnings, models.ParseError{Reason: "x"})

	again, _ := m.GetSession("id-1")
	assert.Equal(t, models.SessionStatusComplete, again.Status)
	assert.Empty(t, again.Warnings)
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager(NewConverter(ConverterConfig{}, nil, nil, nil), nil, 2)

	add := func(id string, status models.SessionStatus, idle time.Duration) {
		s := models.NewConversionSession(id, id+".log", testFlight)
		s.Status = status
		m.sessions[id] = &SessionState{Session: s, LastAccessed: time.Now().Add(-idle)}
	}
	add("old", models.SessionStatusComplete, 2*time.Hour)
	add("recent", models.SessionStatusComplete, time.Minute)
	add("running", models.SessionStatusConverting, 3*time.Hour)

	assert.Equal(t, 1, m.CleanupOldSessions(time.Hour))
	_, ok := m.GetSession("old")
	assert.False(t, ok)
	_, ok = m.GetSession("running")
	assert.True(t, ok, "unfinished sessions are never cleaned up")

	// At capacity the least recently used finished session goes first.
	add("older", models.SessionStatusError, 10*time.Minute)
	m.cleanupOldSessionsIfNeeded()
	_, ok = m.GetSession("older")
	assert.False(t, ok)
	_, ok = m.GetSession("recent")
	assert.False(t, ok)
	assert.Len(t, m.ListSessions(), 1)
}
