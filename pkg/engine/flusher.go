package engine

import (
	"datachat-be/pkg/events"
	"datachat-be/pkg/session"
	"datachat-be/pkg/telemetry"
)

// DrilldownInvalidator drops a session's cached drilldown slot
type DrilldownInvalidator interface {
	Invalidate(sessionID string)
}

// BusFlusher publishes a session's final state when the manager evicts
// or ends it, so persistence and metrics happen off the request path.
// It also drops the session's drilldown slot, which lives and dies with
// the session.
type BusFlusher struct {
	bus        *telemetry.Bus
	drilldowns DrilldownInvalidator
}

func NewBusFlusher(bus *telemetry.Bus, drilldowns DrilldownInvalidator) *BusFlusher {
	return &BusFlusher{bus: bus, drilldowns: drilldowns}
}

func (f *BusFlusher) FlushSession(s *session.Session, reason string) {
	if f.drilldowns != nil {
		f.drilldowns.Invalidate(s.ID)
	}
	if f.bus == nil {
		return
	}
	f.bus.Emit(events.TypeSessionFlushed, map[string]interface{}{
		"session_id":   s.ID,
		"reason":       reason,
		"turns":        len(s.Turns),
		"tokens_total": s.Tokens.Total,
		"persona":      s.ActivePersona,
		"started_at":   s.StartedAt,
	})
}
