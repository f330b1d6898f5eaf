package dto

import (
	"time"

	"datachat-be/pkg/store"
)

type AskRequest struct {
	Query     string `json:"query" validate:"required,min=2"`
	SessionId string `json:"session_id,omitempty"`
	Mode      string `json:"mode,omitempty" validate:"omitempty,oneof=auto simple full"`
}

type AskResponse struct {
	Result *store.BlendResult `json:"result"`
}

type AnalyzeRequest struct {
	Query     string `json:"query" validate:"required,min=2"`
	SessionId string `json:"session_id,omitempty"`
}

type DiagnoseRequest struct {
	Query string `json:"query" validate:"required,min=2"`
	Mode  string `json:"mode,omitempty" validate:"omitempty,oneof=auto simple full"`
}

type SessionSummaryResponse struct {
	Id             string    `json:"id"`
	TurnsUsed      int       `json:"turns_used"`
	TurnsRemaining int       `json:"turns_remaining"`
	TokensUsed     int       `json:"tokens_used"`
	TokenBudget    int       `json:"token_budget"`
	ActivePersona  string    `json:"active_persona,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	LastActivity   time.Time `json:"last_activity"`
}

type TurnHistoryResponse struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
