package domain

import "time"

type OrderEventType string

const (
	EventOrderPlaced    OrderEventType = "order.placed"
	EventOrderCancelled OrderEventType = "order.cancelled"
	EventOrderCompleted OrderEventType = "order.completed"
)

// OrderEvent is published to the display layer. It never carries OTP material.
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    string         `json:"orderId"`
	BuyerID    string         `json:"buyerId"`
	ItemID     string         `json:"itemId"`
	ActorID    string         `json:"actorId"`
	OccurredAt time.Time      `json:"occurredAt"`
}
