package events

import "time"

// Engine event codes published on the bus.
const (
	TypeTurnCompleted  = "TURN_COMPLETED"
	TypeCacheHit       = "CACHE_HIT"
	TypeRouteRecorded  = "ROUTE_RECORDED"
	TypeSessionFlushed = "SESSION_FLUSHED"
	TypeBudgetStop     = "BUDGET_STOP"
	TypeStepFailed     = "STEP_FAILED"
)

// Event defines the contract for all engine events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by most publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// New builds a BaseEvent stamped with the current time.
func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
