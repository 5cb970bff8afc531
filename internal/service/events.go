package service

import (
	"context"
	"log/slog"

	"github.com/iliyamo/role-auth/internal/queue"
)

// EventPublisher delivers user lifecycle events.  *queue.Publisher is the
// RabbitMQ implementation.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.UserEvent) error
}

// NopPublisher drops events.  Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.UserEvent) error { return nil }

// emit publishes ev and logs, rather than returns, a failure: the state
// change it describes has already been committed.
func emit(ctx context.Context, pub EventPublisher, log *slog.Logger, ev queue.UserEvent) {
	if err := pub.Publish(ctx, ev); err != nil {
		log.Error("publish user event failed", "type", ev.Type, "user_id", ev.UserID, "err", err)
	}
}
