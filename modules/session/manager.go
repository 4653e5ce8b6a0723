package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Metrics - server counters
type Metrics struct {
	TotalSessions       int       `json:"totalSessions"`
	ActiveSessions      int       `json:"activeSessions"`
	TotalConnections    int       `json:"totalConnections"`
	GenerationAttempts  int       `json:"generationAttempts"`
	GenerationSuccesses int       `json:"generationSuccesses"`
	GenerationFailures  int       `json:"generationFailures"`
	StartTime           time.Time `json:"startTime"`
}

// SessionInfo - per-session summary for the metrics endpoint
type SessionInfo struct {
	SessionID    string    `json:"sessionId"`
	Phase        Phase     `json:"phase"`
	ClientCount  int       `json:"clientCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Age          string    `json:"age"`
	Inactive     string    `json:"inactive"`
}

// Manager - registry of live sessions
type Manager struct {
	idleTTL time.Duration
	maxAge  time.Duration

	mutex    sync.RWMutex
	sessions map[string]*Session

	metricsMu sync.RWMutex
	metrics   Metrics
}

func NewManager(idleTTL, maxAge time.Duration) *Manager {
	return &Manager{
		idleTTL:  idleTTL,
		maxAge:   maxAge,
		sessions: make(map[string]*Session),
		metrics:  Metrics{StartTime: time.Now()},
	}
}

// NewSessionID - fresh random session id
func NewSessionID() string {
	return uuid.NewString()
}

// GetOrCreate returns the session for id, creating it when missing.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, exists := m.sessions[id]
	if !exists {
		s = newSession(id)
		m.sessions[id] = s

		m.metricsMu.Lock()
		m.metrics.TotalSessions++
		m.metrics.ActiveSessions++
		total, active := m.metrics.TotalSessions, m.metrics.ActiveSessions
		m.metricsMu.Unlock()

		log.Printf("✅ [Session] Created session %s (total: %d, active: %d)", id, total, active)
	}
	return s
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) countConnection() {
	m.metricsMu.Lock()
	m.metrics.TotalConnections++
	m.metricsMu.Unlock()
}

// CountAttempt records the outcome of one generation attempt.
func (m *Manager) CountAttempt(succeeded bool) {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	m.metrics.GenerationAttempts++
	if succeeded {
		m.metrics.GenerationSuccesses++
	} else {
		m.metrics.GenerationFailures++
	}
}

// Metrics returns a copy of the counters.
func (m *Manager) Metrics() Metrics {
	m.metricsMu.RLock()
	defer m.metricsMu.RUnlock()
	return m.metrics
}

// Sessions lists all live sessions.
func (m *Manager) Sessions() []SessionInfo {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for id, s := range m.sessions {
		createdAt, lastActivity := s.times()
		infos = append(infos, SessionInfo{
			SessionID:    id,
			Phase:        s.Phase(),
			ClientCount:  s.clientCount(),
			CreatedAt:    createdAt,
			LastActivity: lastActivity,
			Age:          now.Sub(createdAt).String(),
			Inactive:     now.Sub(lastActivity).String(),
		})
	}
	return infos
}

// CleanupInactive drops sessions with no clients that have been idle longer
// than the idle TTL. Sessions with a generation in flight are kept.
func (m *Manager) CleanupInactive() int {
	return m.cleanup(func(s *Session, now time.Time) (bool, string) {
		_, lastActivity := s.times()
		if s.clientCount() == 0 && now.Sub(lastActivity) > m.idleTTL && s.Phase() != PhaseGenerating {
			return true, "inactive"
		}
		return false, ""
	})
}

// CleanupExpired drops sessions older than the max age.
func (m *Manager) CleanupExpired() int {
	return m.cleanup(func(s *Session, now time.Time) (bool, string) {
		createdAt, _ := s.times()
		if now.Sub(createdAt) > m.maxAge && s.Phase() != PhaseGenerating {
			return true, "expired"
		}
		return false, ""
	})
}

func (m *Manager) cleanup(shouldDrop func(s *Session, now time.Time) (bool, string)) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	cleaned := 0
	for id, s := range m.sessions {
		drop, reason := shouldDrop(s, now)
		if !drop {
			continue
		}
		s.closeClients()
		delete(m.sessions, id)
		cleaned++

		m.metricsMu.Lock()
		m.metrics.ActiveSessions--
		m.metricsMu.Unlock()

		log.Printf("🧹 [Session] Cleaned up %s session: %s", reason, id)
	}

	if cleaned > 0 {
		log.Printf("🗑️  [Session] Cleaned up %d sessions (active: %d)", cleaned, len(m.sessions))
	}
	return cleaned
}

// StartCleanupRoutine runs both cleanup passes periodically until stop is closed.
func (m *Manager) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		inactiveTicker := time.NewTicker(5 * time.Minute)
		expiredTicker := time.NewTicker(30 * time.Minute)
		defer inactiveTicker.Stop()
		defer expiredTicker.Stop()

		for {
			select {
			case <-inactiveTicker.C:
				m.CleanupInactive()
			case <-expiredTicker.C:
				m.CleanupExpired()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🔄 [Session] Started cleanup routine (inactive: 5min, expired: 30min)")
}
