package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/nutcracker-app/nutcracker/internal/events"
)

const consumerName = "audit-persister"

// Consumer drains lifecycle events from JetStream into the audit_logs table.
type Consumer struct {
	client *events.Client
	repo   *Repository
}

func NewConsumer(client *events.Client, repo *Repository) *Consumer {
	return &Consumer{client: client, repo: repo}
}

// Run consumes events until ctx is cancelled. Failed inserts are not acked so
// JetStream redelivers them.
func (c *Consumer) Run(ctx context.Context) error {
	consumer, err := c.client.EnsureConsumer(ctx, consumerName, events.SubjectWildcard)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", consumerName)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		batch, err := consumer.Fetch(50, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, jetstream.ErrNoMessages) {
				continue
			}
			slog.Warn("fetching audit events", "error", err)
			continue
		}
		for msg := range batch.Messages() {
			if err := c.repo.Insert(ctx, msg.Subject(), msg.Data()); err != nil {
				slog.Error("persisting audit event", "subject", msg.Subject(), "error", err)
				continue
			}
			if err := msg.Ack(); err != nil {
				slog.Warn("acking audit event", "error", err)
			}
		}
	}
}
