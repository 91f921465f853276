package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusCompleted
}

type Order struct {
	ID          string          `json:"id"`
	BuyerID     string          `json:"buyerId"`
	ItemID      string          `json:"itemId"`
	TotalAmount decimal.Decimal `json:"totalAmount"` // price snapshot at placement
	Status      OrderStatus     `json:"status"`
	OTPHash     []byte          `json:"-"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OrderView is an order with its item and both parties resolved for display.
// Item is nil when the listing has since been deleted by its seller.
type OrderView struct {
	Order
	Item   *Item    `json:"item"`
	Buyer  *Contact `json:"buyer"`
	Seller *Contact `json:"seller"`
}
