package events

import (
	"time"

	"github.com/google/uuid"
)

const InteractionEventType = "interaction"

// InteractionEvent records one successful component invocation.
type InteractionEvent struct {
	ID         uuid.UUID              `json:"id"`
	Component  string                 `json:"component"`
	Method     string                 `json:"method"`
	Path       string                 `json:"path"`
	Changed    []string               `json:"changed"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

var _ Event = InteractionEvent{}

func NewInteractionEvent(component, method, path string, changed []string, fields map[string]interface{}) InteractionEvent {
	return InteractionEvent{
		ID:         uuid.New(),
		Component:  component,
		Method:     method,
		Path:       path,
		Changed:    changed,
		Fields:     fields,
		OccurredAt: time.Now().UTC(),
	}
}

func (e InteractionEvent) EventType() string { return InteractionEventType }

func (e InteractionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"id":          e.ID.String(),
		"component":   e.Component,
		"method":      e.Method,
		"path":        e.Path,
		"changed":     e.Changed,
		"fields":      e.Fields,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func (e InteractionEvent) Timestamp() time.Time { return e.OccurredAt }
