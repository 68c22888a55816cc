package events

import "time"

// Event is anything published on the event bus.
type Event interface {
	// EventType is the subject suffix, e.g. "interaction".
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is a generic Event, used when reconstructing events from the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string { return e.Type }

func (e BaseEvent) Payload() map[string]interface{} { return e.Data }

func (e BaseEvent) Timestamp() time.Time { return e.OccurredAt }
