package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
// A nil Publisher is valid and drops everything, so callers do not need to
// branch on whether the event bus is configured.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishGeneration publishes a generation lifecycle event.
func (p *Publisher) PublishGeneration(ctx context.Context, ev GenerationEvent) error {
	return p.publish(ctx, SubjectGenerationEvent, ev)
}

// PublishSupport publishes a support pipeline event.
func (p *Publisher) PublishSupport(ctx context.Context, ev SupportEvent) error {
	return p.publish(ctx, SubjectSupportEvent, ev)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
