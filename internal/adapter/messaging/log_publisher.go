package messaging

import (
	"context"
	"log"

	"github.com/rl1809/campus-market/internal/core/domain"
)

// LogPublisher is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	log.Printf("event: %s order=%s item=%s actor=%s", event.Type, event.OrderID, event.ItemID, event.ActorID)
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
