package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/telemetry"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IWorkerService interface {
	Consume(ctx context.Context) error
}

// workerService drains the turn-persist topic and writes completed turns
// to Postgres, off the request path.
type workerService struct {
	bus   *telemetry.Bus
	turns contract.TurnRepository
}

func NewWorkerService(bus *telemetry.Bus, turns contract.TurnRepository) IWorkerService {
	return &workerService{
		bus:   bus,
		turns: turns,
	}
}

func (ws *workerService) Consume(ctx context.Context) error {
	messages, err := ws.bus.Subscribe(ctx, telemetry.TopicTurnPersist)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ws.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ws *workerService) processMessage(ctx context.Context, msg *message.Message) {
	var record telemetry.TurnRecord
	if err := json.Unmarshal(msg.Payload, &record); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn record: %v", err)
		msg.Ack() // invalid payloads would retry forever
		return
	}

	steps, err := json.Marshal(record.Steps)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal steps for session %s: %v", record.SessionID, err)
		msg.Ack()
		return
	}
	timing, err := json.Marshal(record.Timing)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal timing for session %s: %v", record.SessionID, err)
		msg.Ack()
		return
	}

	turn := &entity.EngineTurn{
		Id:         uuid.New(),
		SessionId:  record.SessionID,
		Query:      record.Query,
		Response:   record.Response,
		Category:   record.Category,
		Persona:    record.Persona,
		Path:       string(record.Path),
		Confidence: record.Confidence,
		TokensIn:   record.TokensIn,
		TokensOut:  record.TokensOut,
		Steps:      datatypes.JSON(steps),
		Timing:     datatypes.JSON(timing),
		CreatedAt:  record.CreatedAt,
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	if err := ws.turns.Create(ctx, turn); err != nil {
		log.Printf("[ERROR] Failed to persist turn for session %s: %v", record.SessionID, err)
		msg.Nack() // retriable
		return
	}

	log.Printf("[INFO] Persisted turn for session %s (%s)", record.SessionID, record.Category)
	msg.Ack()
}
