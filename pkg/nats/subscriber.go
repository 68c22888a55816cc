package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"visuallm-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. A returned error redelivers the message.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads events back from the stream.
type Subscriber struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	ctx jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe consumes eventType events with an ephemeral consumer starting at new
// messages.
func (s *Subscriber) Subscribe(ctx context.Context, eventType string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: SubjectPrefix + eventType,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			// Redelivery cannot fix a malformed payload.
			_ = msg.Term()
			return
		}
		event := events.BaseEvent{
			Type:       strings.TrimPrefix(msg.Subject(), SubjectPrefix),
			Data:       payload,
			OccurredAt: time.Now(),
		}
		if raw, ok := payload["occurred_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				event.OccurredAt = t
			}
		}
		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.ctx = cc
	return nil
}

func (s *Subscriber) Close() {
	if s.ctx != nil {
		s.ctx.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
