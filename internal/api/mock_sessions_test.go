// mock_sessions_test.go - In-memory session manager for handler tests
package api

import (
	"fmt"
	"sync"

	"github.com/uav-flightlog/backend/internal/models"
	"github.com/uav-flightlog/backend/internal/session"
)

// mockSessions implements SessionManager with preloaded sessions.
type mockSessions struct {
	mu       sync.RWMutex
	sessions map[string]*models.ConversionSession
	values   map[string]models.ValuesList
	started  []session.ConvertRequest
	touched  map[string]int
	startErr error
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		sessions: make(map[string]*models.ConversionSession),
		values:   make(map[string]models.ValuesList),
		touched:  make(map[string]int),
	}
}

// addComplete registers a finished session holding values.
func (m *mockSessions) addComplete(id string, values models.ValuesList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.NewConversionSession(id, id+".log", models.FlightInfo{Date: "20190123", Number: "2"})
	s.Status = models.SessionStatusComplete
	s.Progress = 100
	m.sessions[id] = s
	m.values[id] = values
}

// addPending registers a session that has not finished converting.
func (m *mockSessions) addPending(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.NewConversionSession(id, id+".log", models.FlightInfo{Date: "20190123", Number: "2"})
	s.Status = models.SessionStatusConverting
	m.sessions[id] = s
}

func (m *mockSessions) StartSession(req session.ConvertRequest) (*models.ConversionSession, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, req)
	id := fmt.Sprintf("session-%d", len(m.started))
	s := models.NewConversionSession(id, req.LogPath, req.Flight)
	s.Status = models.SessionStatusConverting
	m.sessions[id] = s
	c := *s
	return &c, nil
}

func (m *mockSessions) GetSession(id string) (*models.ConversionSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	c := *s
	return &c, true
}

func (m *mockSessions) ListSessions() []*models.ConversionSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.ConversionSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		c := *s
		out = append(out, &c)
	}
	return out
}

func (m *mockSessions) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	m.touched[id]++
	return true
}

func (m *mockSessions) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	delete(m.values, id)
	return true
}

func (m *mockSessions) GetValues(id string) (models.ValuesList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[id]; !ok {
		return models.ValuesList{}, fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	values, ok := m.values[id]
	if !ok {
		return models.ValuesList{}, session.ErrSessionNotReady
	}
	return values, nil
}
