package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/campus-market/internal/core/authz"
	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

const compensationTimeout = 5 * time.Second

// PendingOrders is the result of ListPendingOrders. OTPs maps order ID to the
// plaintext code issued by that very call.
type PendingOrders struct {
	Orders []domain.OrderView `json:"orders"`
	OTPs   map[string]string  `json:"otps"`
}

type OrderService struct {
	users  port.UserRepository
	items  port.ItemRepository
	orders port.OrderRepository
	otp    *OTPManager

	mu         sync.RWMutex
	closed     bool
	eventQueue chan domain.OrderEvent
}

func NewOrderService(
	users port.UserRepository,
	items port.ItemRepository,
	orders port.OrderRepository,
	otp *OTPManager,
	queueSize int,
) *OrderService {
	return &OrderService{
		users:      users,
		items:      items,
		orders:     orders,
		otp:        otp,
		eventQueue: make(chan domain.OrderEvent, queueSize),
	}
}

// PlaceOrder turns every cart entry into a pending order priced at the item's
// current price, then empties the cart. Items stay listed: other buyers may
// place orders on them too.
//
// The steps are not atomic. If an order insert or the cart clear fails, the
// orders created so far are deleted and the cart is left as it was.
func (s *OrderService) PlaceOrder(ctx context.Context, caller domain.Identity) ([]domain.Order, error) {
	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if len(user.Cart) == 0 {
		return []domain.Order{}, nil
	}

	items, err := s.items.GetItems(ctx, user.Cart)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	byID := make(map[string]domain.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	created := make([]domain.Order, 0, len(user.Cart))
	for _, itemID := range user.Cart {
		item, ok := byID[itemID]
		if !ok {
			log.Printf("order: skipping deleted item %s in cart of %s", itemID, caller.UserID)
			continue
		}

		now := time.Now().UTC()
		order := domain.Order{
			ID:          uuid.NewString(),
			BuyerID:     caller.UserID,
			ItemID:      item.ID,
			TotalAmount: item.Price,
			Status:      domain.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return nil, s.compensate(ctx, created, fmt.Errorf("create order: %w", err))
		}
		created = append(created, order)
	}

	if err := s.users.SaveCart(ctx, caller.UserID, []string{}); err != nil {
		return nil, s.compensate(ctx, created, fmt.Errorf("clear cart: %w", err))
	}

	for _, order := range created {
		s.emit(domain.EventOrderPlaced, order, caller.UserID)
	}
	log.Printf("order: %s placed %d orders", caller.UserID, len(created))

	return created, nil
}

// compensate deletes orders created by a failed PlaceOrder. It runs detached
// from the request context so a cancelled request still rolls back.
func (s *OrderService) compensate(ctx context.Context, created []domain.Order, cause error) error {
	if len(created) == 0 {
		return cause
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	errs := []error{cause}
	for _, order := range created {
		if _, err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
			log.Printf("order: CRITICAL rollback failed for order %s: %v", order.ID, err)
			errs = append(errs, fmt.Errorf("rollback order %s: %w", order.ID, err))
			continue
		}
		log.Printf("order: rolled back order %s", order.ID)
	}
	return errors.Join(errs...)
}

// CancelOrder hard-deletes an order. Only its buyer or the seller of its item
// may cancel, in any status.
func (s *OrderService) CancelOrder(ctx context.Context, caller domain.Identity, orderID string) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrNotFound
	}

	if !authz.IsBuyer(*order, caller.UserID) {
		item, err := s.items.GetItem(ctx, order.ItemID)
		if err != nil {
			return fmt.Errorf("get item: %w", err)
		}
		if !authz.CanCancel(*order, item, caller.UserID) {
			return ErrForbidden
		}
	}

	deleted, err := s.orders.DeleteOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.emit(domain.EventOrderCancelled, *order, caller.UserID)
	log.Printf("order: %s cancelled order %s", caller.UserID, orderID)
	return nil
}

// ListPendingOrders returns the caller's pending purchases.
//
// This read writes: every call issues a new OTP for each returned order and
// overwrites its stored hash, so codes from earlier calls no longer verify.
func (s *OrderService) ListPendingOrders(ctx context.Context, caller domain.Identity) (PendingOrders, error) {
	orders, err := s.orders.ListOrdersByBuyer(ctx, caller.UserID, domain.OrderStatusPending)
	if err != nil {
		return PendingOrders{}, fmt.Errorf("list pending orders: %w", err)
	}

	otps, err := s.otp.Issue(ctx, orders)
	if err != nil {
		return PendingOrders{}, fmt.Errorf("issue otps: %w", err)
	}

	views, err := s.views(ctx, orders)
	if err != nil {
		return PendingOrders{}, err
	}
	return PendingOrders{Orders: views, OTPs: otps}, nil
}

func (s *OrderService) ListBoughtOrders(ctx context.Context, caller domain.Identity) ([]domain.OrderView, error) {
	orders, err := s.orders.ListOrdersByBuyer(ctx, caller.UserID, domain.OrderStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list bought orders: %w", err)
	}
	return s.views(ctx, orders)
}

func (s *OrderService) ListSoldOrders(ctx context.Context, caller domain.Identity) ([]domain.OrderView, error) {
	return s.listSellerOrders(ctx, caller, domain.OrderStatusCompleted)
}

// ListDeliveries returns every order, pending or completed, on the caller's items.
func (s *OrderService) ListDeliveries(ctx context.Context, caller domain.Identity) ([]domain.OrderView, error) {
	return s.listSellerOrders(ctx, caller, "")
}

func (s *OrderService) listSellerOrders(ctx context.Context, caller domain.Identity, status domain.OrderStatus) ([]domain.OrderView, error) {
	itemIDs, err := s.items.ListItemIDsBySeller(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list seller items: %w", err)
	}
	if len(itemIDs) == 0 {
		return []domain.OrderView{}, nil
	}

	orders, err := s.orders.ListOrdersByItems(ctx, itemIDs, status)
	if err != nil {
		return nil, fmt.Errorf("list seller orders: %w", err)
	}
	return s.views(ctx, orders)
}

// VerifyOrder completes an order when otp matches its latest code. Any
// authenticated caller may verify.
func (s *OrderService) VerifyOrder(ctx context.Context, caller domain.Identity, orderID, otp string) error {
	order, err := s.otp.Verify(ctx, orderID, otp)
	if err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			log.Printf("order: %s failed otp verification for order %s", caller.UserID, orderID)
		}
		return err
	}

	s.emit(domain.EventOrderCompleted, *order, caller.UserID)
	log.Printf("order: %s verified order %s", caller.UserID, orderID)
	return nil
}

// CompletedOrder returns a completed order for receipt rendering, visible to
// its buyer and seller only.
func (s *OrderService) CompletedOrder(ctx context.Context, caller domain.Identity, orderID string) (*domain.OrderView, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrNotFound
	}

	item, err := s.items.GetItem(ctx, order.ItemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if !authz.CanViewReceipt(*order, item, caller.UserID) {
		return nil, ErrForbidden
	}
	if order.Status != domain.OrderStatusCompleted {
		return nil, ErrOrderNotCompleted
	}

	views, err := s.views(ctx, []domain.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *OrderService) emit(typ domain.OrderEventType, order domain.Order, actorID string) {
	event := domain.OrderEvent{
		Type:       typ,
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		ItemID:     order.ItemID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.eventQueue <- event:
	default:
		log.Printf("order: event queue full, dropping %s for order %s", typ, order.ID)
	}
}

func (s *OrderService) GetEventQueue() <-chan domain.OrderEvent {
	return s.eventQueue
}

func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.eventQueue)
}
