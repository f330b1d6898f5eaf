package service

import (
	"context"

	"datachat-be/internal/dto"
	"datachat-be/internal/pkg/logger"
	"datachat-be/internal/pkg/serverutils"
	"datachat-be/pkg/engine"
	"datachat-be/pkg/session"
	"datachat-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

type IQueryService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*store.BlendResult, error)
	Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*engine.Preview, error)
	Diagnose(ctx context.Context, req *dto.DiagnoseRequest) (*engine.Diagnosis, error)
	GetSession(ctx context.Context, id string) (*dto.SessionSummaryResponse, error)
	History(ctx context.Context, id string) ([]dto.TurnHistoryResponse, error)
	EndSession(ctx context.Context, id string) error
}

type queryService struct {
	engine   *engine.Engine
	sessions *session.Manager
	logger   logger.ILogger
}

func NewQueryService(eng *engine.Engine, sessions *session.Manager, logger logger.ILogger) IQueryService {
	return &queryService{
		engine:   eng,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *queryService) Ask(ctx context.Context, req *dto.AskRequest) (*store.BlendResult, error) {
	mode := engine.Mode(req.Mode)
	if mode == "" {
		mode = engine.ModeAuto
	}

	result := s.engine.Execute(ctx, req.Query, req.SessionId, mode)

	s.logger.Info("QUERY", "Executed query", map[string]interface{}{
		"session_id": result.Session.ID,
		"category":   result.Category,
		"confidence": result.Confidence,
		"total_ms":   result.Timing.TotalMs,
	})
	return result, nil
}

func (s *queryService) Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*engine.Preview, error) {
	preview, err := s.engine.Analyze(ctx, req.Query, req.SessionId)
	if err != nil {
		s.logger.Error("QUERY", "Analyze failed", map[string]interface{}{"error": err.Error()})
		return nil, serverutils.NewAppError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return preview, nil
}

func (s *queryService) Diagnose(ctx context.Context, req *dto.DiagnoseRequest) (*engine.Diagnosis, error) {
	mode := engine.Mode(req.Mode)
	if mode == "" {
		mode = engine.ModeAuto
	}

	diag, err := s.engine.Diagnose(ctx, req.Query, mode)
	if err != nil {
		s.logger.Error("QUERY", "Diagnose failed", map[string]interface{}{"error": err.Error()})
		return nil, serverutils.NewAppError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return diag, nil
}

func (s *queryService) GetSession(ctx context.Context, id string) (*dto.SessionSummaryResponse, error) {
	sess := s.sessions.Get(id)
	if sess == nil {
		return nil, serverutils.NewAppError(fiber.StatusNotFound, "session not found")
	}

	snapshot := sess.Snapshot(s.sessions.MaxTurns())
	return &dto.SessionSummaryResponse{
		Id:             sess.ID,
		TurnsUsed:      snapshot.TurnsUsed,
		TurnsRemaining: snapshot.TurnsRemaining,
		TokensUsed:     sess.Tokens.Total,
		TokenBudget:    sess.Tokens.Budget,
		ActivePersona:  sess.ActivePersona,
		StartedAt:      sess.StartedAt,
		LastActivity:   sess.LastActivity,
	}, nil
}

func (s *queryService) History(ctx context.Context, id string) ([]dto.TurnHistoryResponse, error) {
	sess := s.sessions.Get(id)
	if sess == nil {
		return nil, serverutils.NewAppError(fiber.StatusNotFound, "session not found")
	}

	history := make([]dto.TurnHistoryResponse, len(sess.Turns))
	for i, turn := range sess.Turns {
		history[i] = dto.TurnHistoryResponse{
			Role:       turn.Role,
			Content:    turn.Content,
			Confidence: turn.Confidence,
			CreatedAt:  turn.CreatedAt,
		}
	}
	return history, nil
}

func (s *queryService) EndSession(ctx context.Context, id string) error {
	if !s.sessions.End(id) {
		return serverutils.NewAppError(fiber.StatusNotFound, "session not found")
	}
	s.logger.Info("QUERY", "Ended session", map[string]interface{}{"session_id": id})
	return nil
}
