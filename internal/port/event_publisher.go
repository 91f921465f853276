package port

import (
	"context"

	"github.com/rl1809/campus-market/internal/core/domain"
)

type EventPublisher interface {
	// Publish delivers an order lifecycle event to the display layer
	Publish(ctx context.Context, event domain.OrderEvent) error
}
