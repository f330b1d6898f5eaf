package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"datachat-be/pkg/events"
	enginenats "datachat-be/pkg/nats"
	"datachat-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// In-process topics consumed by background workers.
const (
	TopicTurnPersist = "engine.turn.persist"
	TopicMetrics     = "engine.metrics"
)

// TurnRecord is the persistence payload emitted after every completed turn.
type TurnRecord struct {
	SessionID  string              `json:"session_id"`
	Query      string              `json:"query"`
	Response   string              `json:"response"`
	Category   string              `json:"category"`
	Persona    string              `json:"persona"`
	Path       store.Path          `json:"path"`
	Confidence float64             `json:"confidence"`
	TokensIn   int                 `json:"tokens_in"`
	TokensOut  int                 `json:"tokens_out"`
	Steps      []store.StepSummary `json:"steps,omitempty"`
	Timing     store.Timing        `json:"timing"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Bus fans engine side effects out to in-process workers and, when
// configured, mirrors them onto NATS. Emission never blocks a turn.
type Bus struct {
	pubSub  *gochannel.GoChannel
	natsPub *enginenats.Publisher
	logger  *log.Logger
}

func NewBus(pubSub *gochannel.GoChannel, natsPub *enginenats.Publisher, logger *log.Logger) *Bus {
	return &Bus{
		pubSub:  pubSub,
		natsPub: natsPub,
		logger:  logger,
	}
}

// Emit publishes a metrics event. Failures are logged, never returned.
func (b *Bus) Emit(eventType string, data map[string]interface{}) {
	evt := events.New(eventType, data)

	payload, err := json.Marshal(evt.Payload())
	if err != nil {
		b.logger.Printf("[TELEMETRY] marshal %s failed: %v", eventType, err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", eventType)
	if err := b.pubSub.Publish(TopicMetrics, msg); err != nil {
		b.logger.Printf("[TELEMETRY] publish %s failed: %v", eventType, err)
	}

	if b.natsPub != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := b.natsPub.Publish(ctx, evt); err != nil {
				b.logger.Printf("[TELEMETRY] nats mirror %s failed: %v", eventType, err)
			}
		}()
	}
}

// EmitTurn queues a completed turn for background persistence.
func (b *Bus) EmitTurn(record TurnRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		b.logger.Printf("[TELEMETRY] marshal turn record failed: %v", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(TopicTurnPersist, msg); err != nil {
		b.logger.Printf("[TELEMETRY] publish turn record failed: %v", err)
	}
}

// Subscribe exposes the underlying channel for worker services.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

// Close shuts the in-process channel down.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
