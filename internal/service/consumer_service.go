package service

import (
	"context"
	"encoding/json"

	"visuallm-be/internal/model"
	"visuallm-be/internal/pkg/logger"
	"visuallm-be/internal/repository"
	"visuallm-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/datatypes"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder is the outbound bus, satisfied by the NATS publisher.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	traceRepo  repository.TraceRepository // nil without a database
	forwarder  EventForwarder             // nil without NATS
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	traceRepo repository.TraceRepository,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		traceRepo:  traceRepo,
		forwarder:  forwarder,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()
	return nil
}

// processMessage records one interaction. Traces are best effort: storage and
// forwarding failures are logged and the message is acked anyway.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event events.InteractionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal interaction", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info("Consumer", "Interaction", map[string]interface{}{
		"component": event.Component,
		"method":    event.Method,
		"path":      event.Path,
		"changed":   event.Changed,
	})

	if cs.traceRepo != nil {
		if err := cs.traceRepo.Create(ctx, toTrace(event)); err != nil {
			cs.logger.Error("Consumer", "Failed to store trace", map[string]interface{}{
				"event_id": event.ID.String(),
				"error":    err.Error(),
			})
		}
	}

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			cs.logger.Warn("Consumer", "Failed to forward interaction", map[string]interface{}{
				"event_id": event.ID.String(),
				"error":    err.Error(),
			})
		}
	}

	msg.Ack()
}

func toTrace(event events.InteractionEvent) *model.InteractionTrace {
	trace := &model.InteractionTrace{
		ID:        event.ID,
		Component: event.Component,
		Method:    event.Method,
		Path:      event.Path,
		Changed:   datatypes.JSONSlice[string](event.Changed),
		CreatedAt: event.OccurredAt,
	}
	if len(event.Fields) > 0 {
		if raw, err := json.Marshal(event.Fields); err == nil {
			trace.Fields = datatypes.JSON(raw)
		}
	}
	return trace
}
