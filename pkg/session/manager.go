package session

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// evictFraction of sessions removed when the hard cap is exceeded
const evictFraction = 0.2

// Eviction reasons passed to the flush hook
const (
	ReasonEnded    = "ended"
	ReasonIdle     = "idle"
	ReasonCapacity = "capacity"
)

// Flusher receives a session's final state before it is removed, so
// metrics and durable persistence can happen outside the manager
type Flusher interface {
	FlushSession(s *Session, reason string)
}

// Limits are the per-session resource bounds
type Limits struct {
	TokenBudget int
	MaxTurns    int
	IdleTTL     time.Duration
	MaxSessions int
}

// Manager owns the session map. All access is serialized through its
// mutex; concurrent calls against the same session id are not supported
// by the engine and must be serialized by the caller.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	limits   Limits
	flusher  Flusher
	logger   *log.Logger
}

func NewManager(limits Limits, flusher Flusher, logger *log.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		limits:   limits,
		flusher:  flusher,
		logger:   logger,
	}
}

// Create starts a new session with the configured budget
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		StartedAt:    now,
		LastActivity: now,
		Active:       true,
	}
	s.Tokens.Budget = m.limits.TokenBudget
	m.sessions[s.ID] = s

	m.logger.Printf("[SESSION] Created %s (budget=%d, max_turns=%d)", s.ID, m.limits.TokenBudget, m.limits.MaxTurns)
	return s
}

// Get returns the session, or nil if unknown or ended
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// GetOrCreate resolves the id, creating a fresh session when it is empty
// or unknown
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if s := m.Get(id); s != nil {
			return s
		}
	}
	return m.Create()
}

// MaxTurns exposes the configured refinement-turn cap
func (m *Manager) MaxTurns() int {
	return m.limits.MaxTurns
}

// CheckTurnLimit returns a terminal error when the session has exhausted
// its refinement turns. No backend work may happen after that.
func (m *Manager) CheckTurnLimit(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.RefinementTurnsUsed >= m.limits.MaxTurns {
		return fmt.Errorf("session %s reached its %d-turn limit; start a new session", s.ID, m.limits.MaxTurns)
	}
	return nil
}

// RecordTurns appends the user/assistant turn pair, bumps the refinement
// counter and token accounting, and touches activity
func (m *Manager) RecordTurns(s *Session, userTurn, assistantTurn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Turns = append(s.Turns, userTurn, assistantTurn)
	s.RefinementTurnsUsed++
	s.Tokens.Input += userTurn.TokensIn + assistantTurn.TokensIn
	s.Tokens.Output += userTurn.TokensOut + assistantTurn.TokensOut
	s.Tokens.Total = s.Tokens.Input + s.Tokens.Output
	s.LastActivity = time.Now()
}

// SetPersona records the response voice active for this session
func (m *Manager) SetPersona(s *Session, personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ActivePersona = personaID
}

// End terminates a session explicitly and flushes it
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.Active = false
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok && m.flusher != nil {
		m.flusher.FlushSession(s, ReasonEnded)
	}
	return ok
}

// Cleanup evicts idle sessions, then trims the least-recently-active 20%
// when the hard cap is exceeded. Flush always runs before removal.
func (m *Manager) Cleanup() int {
	m.mu.Lock()

	var evicted []*Session
	reasons := make(map[string]string)
	now := time.Now()

	for id, s := range m.sessions {
		if m.limits.IdleTTL > 0 && now.Sub(s.LastActivity) > m.limits.IdleTTL {
			evicted = append(evicted, s)
			reasons[s.ID] = ReasonIdle
			delete(m.sessions, id)
		}
	}

	if m.limits.MaxSessions > 0 && len(m.sessions) > m.limits.MaxSessions {
		remaining := make([]*Session, 0, len(m.sessions))
		for _, s := range m.sessions {
			remaining = append(remaining, s)
		}
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].LastActivity.Before(remaining[j].LastActivity)
		})

		trim := int(float64(len(remaining)) * evictFraction)
		if trim < 1 {
			trim = 1
		}
		for _, s := range remaining[:trim] {
			evicted = append(evicted, s)
			reasons[s.ID] = ReasonCapacity
			delete(m.sessions, s.ID)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Active = false
		if m.flusher != nil {
			m.flusher.FlushSession(s, reasons[s.ID])
		}
	}

	if len(evicted) > 0 {
		m.logger.Printf("[SESSION] Evicted %d sessions", len(evicted))
	}
	return len(evicted)
}

// Count returns the live session count
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper runs Cleanup on an interval until stop is closed
func (m *Manager) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
