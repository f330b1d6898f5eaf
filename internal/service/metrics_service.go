package service

import (
	"context"
	"encoding/json"

	"datachat-be/internal/pkg/logger"
	"datachat-be/pkg/telemetry"
)

type IMetricsService interface {
	Consume(ctx context.Context) error
}

// metricsService mirrors engine events into the isolated metrics log.
type metricsService struct {
	bus    *telemetry.Bus
	logger logger.ILogger
}

func NewMetricsService(bus *telemetry.Bus, logger logger.ILogger) IMetricsService {
	return &metricsService{
		bus:    bus,
		logger: logger,
	}
}

func (ms *metricsService) Consume(ctx context.Context) error {
	messages, err := ms.bus.Subscribe(ctx, telemetry.TopicMetrics)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var payload map[string]interface{}
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				msg.Ack()
				continue
			}
			ms.logger.Info("METRICS", msg.Metadata.Get("event_type"), payload)
			msg.Ack()
		}
	}()

	return nil
}
