package session

import (
	"time"

	"github.com/google/uuid"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one user or assistant message within a session. Append-only.
type Turn struct {
	ID         uuid.UUID                  `json:"id"`
	Role       string                     `json:"role"`
	Content    string                     `json:"content"`
	CreatedAt  time.Time                  `json:"created_at"`
	Analysis   *analysis.QuestionAnalysis `json:"analysis,omitempty"`
	Plan       *store.RoutePlan           `json:"plan,omitempty"`
	Sources    []store.Attribution        `json:"sources,omitempty"`
	Confidence float64                    `json:"confidence,omitempty"`
	TokensIn   int                        `json:"tokens_in,omitempty"`
	TokensOut  int                        `json:"tokens_out,omitempty"`
}

// Session owns one conversation's turns, token accounting and lifecycle
type Session struct {
	ID                  string           `json:"id"`
	Turns               []Turn           `json:"turns"`
	ActivePersona       string           `json:"active_persona"`
	Tokens              store.TokenUsage `json:"tokens"`
	StartedAt           time.Time        `json:"started_at"`
	LastActivity        time.Time        `json:"last_activity"`
	Active              bool             `json:"active"`
	RefinementTurnsUsed int              `json:"refinement_turns_used"`
}

// Snapshot builds the session view embedded in a BlendResult
func (s *Session) Snapshot(maxTurns int) *store.SessionSnapshot {
	remaining := maxTurns - s.RefinementTurnsUsed
	if remaining < 0 {
		remaining = 0
	}
	return &store.SessionSnapshot{
		ID:             s.ID,
		TurnsUsed:      s.RefinementTurnsUsed,
		TurnsRemaining: remaining,
		TokenUsage:     s.Tokens,
	}
}
