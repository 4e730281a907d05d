package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uav-flightlog/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxSessions limits retained sessions to bound memory use
const DefaultMaxSessions = 10

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotReady is returned when a session has no values yet.
	ErrSessionNotReady = errors.New("session not complete")
)

// Manager runs conversions as sessions and keeps their results.
type Manager struct {
	sessions    map[string]*SessionState
	mu          sync.RWMutex
	converter   *Converter
	log         *zap.Logger
	maxSessions int
}

// SessionState holds the session metadata and the converted values.
type SessionState struct {
	Session      *models.ConversionSession
	Result       *ConvertResult
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
}

// NewManager creates a session manager around a converter.
func NewManager(converter *Converter, log *zap.Logger, maxSessions int) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*SessionState),
		converter:   converter,
		log:         log.Named("session"),
		maxSessions: maxSessions,
	}
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// StartSession begins converting a log in the background.
func (m *Manager) StartSession(req ConvertRequest) (*models.ConversionSession, error) {
	if err := validateFlight(req.Flight); err != nil {
		return nil, err
	}

	// Clean up old sessions if at limit
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	session := models.NewConversionSession(sessionID, req.LogPath, req.Flight)
	session.WorkbookPath = m.converter.WorkbookPathFor(req)
	session.Status = models.SessionStatusConverting

	state := &SessionState{
		Session:      session,
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = state
	snapshot := copySession(session)
	m.mu.Unlock()

	go m.runConvert(sessionID, req)

	return snapshot, nil
}

func (m *Manager) runConvert(sessionID string, req ConvertRequest) {
	log := m.log.With(zap.String("session", shortID(sessionID)))

	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			log.Error("conversion panicked", zap.Any("panic", r))
			m.updateSessionError(sessionID, fmt.Sprintf("conversion panicked: %v", r))
		}
	}()

	start := time.Now()
	log.Info("starting conversion", zap.String("log", req.LogPath))

	result, err := m.converter.ConvertTimed(context.Background(), req, func(p float64) {
		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.Session.Progress = p
		}
		m.mu.Unlock()
	})
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		m.updateSessionError(sessionID, err.Error())
		return
	}

	elapsed := time.Since(start)
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.Result = result
	s := state.Session
	s.Status = models.SessionStatusComplete
	s.Progress = 100
	s.WorkbookPath = result.WorkbookPath
	s.DuckDBPath = result.DuckDBPath
	s.TableCount = result.Tables
	s.EntryCount = result.Values.Len()
	s.ColumnCount = result.Values.ColumnCount()
	s.CacheHit = result.CacheHit
	s.ProcessingTimeMs = elapsed.Milliseconds()
	s.Warnings = make([]models.ParseError, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		if w != nil {
			s.Warnings = append(s.Warnings, *w)
		}
	}

	log.Info("conversion complete",
		zap.Int("entries", s.EntryCount),
		zap.Int("columns", s.ColumnCount),
		zap.Int("warnings", len(s.Warnings)),
		zap.Bool("cache_hit", s.CacheHit),
		zap.Duration("elapsed", elapsed))
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Errors = append(state.Session.Errors, models.ParseError{
		Reason: reason,
	})
}

// cleanupOldSessionsIfNeeded removes the least recently used finished
// sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.sessions) >= m.maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, state := range m.sessions {
			if !finished(state.Session) {
				continue
			}
			if oldestID == "" || state.LastAccessed.Before(oldest) {
				oldestID, oldest = id, state.LastAccessed
			}
		}
		if oldestID == "" {
			return
		}
		delete(m.sessions, oldestID)
		m.log.Info("evicted session to free memory", zap.String("session", shortID(oldestID)))
	}
}

func finished(s *models.ConversionSession) bool {
	return s.Status == models.SessionStatusComplete || s.Status == models.SessionStatusError
}

// CleanupOldSessions removes finished sessions not accessed within maxAge,
// keeping those used within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if !finished(state.Session) {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) || state.LastAccessed.After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		removed++
		m.log.Info("cleaned up aged session",
			zap.String("session", shortID(id)),
			zap.Duration("idle", time.Since(state.LastAccessed).Round(time.Second)))
	}
	return removed
}

func copySession(s *models.ConversionSession) *models.ConversionSession {
	c := *s
	c.Warnings = append([]models.ParseError(nil), s.Warnings...)
	c.Errors = append([]models.ParseError(nil), s.Errors...)
	return &c
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.ConversionSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return copySession(state.Session), true
}

// TouchSession updates the LastAccessed timestamp for a session so it is
// not cleaned up while in use.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetValues returns the converted values of a complete session. The
// returned list is shared and must not be modified.
func (m *Manager) GetValues(id string) (models.ValuesList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return models.ValuesList{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if state.Result == nil {
		return models.ValuesList{}, fmt.Errorf("%w: %s", ErrSessionNotReady, state.Session.Status)
	}
	state.LastAccessed = time.Now()
	return state.Result.Values, nil
}

// ListSessions returns snapshots of all sessions.
func (m *Manager) ListSessions() []*models.ConversionSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ConversionSession, 0, len(m.sessions))
	for _, state := range m.sessions {
		out = append(out, copySession(state.Session))
	}
	return out
}

// DeleteSession forgets a session. Files it produced are kept.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// WaitForSession polls until the session finishes or ctx is done.
func (m *Manager) WaitForSession(ctx context.Context, id string) (*models.ConversionSession, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		s, ok := m.GetSession(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		if finished(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-ticker.C:
		}
	}
}
