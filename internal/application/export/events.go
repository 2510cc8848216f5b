package export

import (
	"context"

	"github.com/alexisbeaulieu97/exportrun/internal/ports"
)

type runEvent struct {
	eventType string
	payload   interface{}
}

func (e runEvent) EventType() string {
	return e.eventType
}

func (e runEvent) Payload() interface{} {
	return e.payload
}

func publishEvent(ctx context.Context, publisher ports.EventPublisher, logger ports.Logger, eventType string, payload map[string]interface{}) {
	if publisher == nil {
		return
	}
	event := runEvent{
		eventType: eventType,
		payload:   payload,
	}
	if err := publisher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn(ctx, "failed to publish run event", "event_type", eventType, "error", err)
	}
}
