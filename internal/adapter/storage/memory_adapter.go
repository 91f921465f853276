package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rl1809/campus-market/internal/core/domain"
)

// MemoryAdapter keeps every entity in process memory. Each method is atomic
// on its own, matching the single-document guarantee of the real stores.
type MemoryAdapter struct {
	mu sync.RWMutex

	users      map[string]domain.User
	items      map[string]domain.Item
	orders     map[string]domain.Order
	reviews    []domain.Review
	itemOrder  []string
	orderOrder []string
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		users:  make(map[string]domain.User),
		items:  make(map[string]domain.Item),
		orders: make(map[string]domain.Order),
	}
}

func (m *MemoryAdapter) CreateUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	user.Cart = slices.Clone(user.Cart)
	m.users[user.ID] = user
	return nil
}

func (m *MemoryAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	u.Cart = slices.Clone(u.Cart)
	return &u, nil
}

func (m *MemoryAdapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			u.Cart = slices.Clone(u.Cart)
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]domain.User, 0, len(userIDs))
	for _, id := range dedupe(userIDs) {
		if u, ok := m.users[id]; ok {
			u.Cart = slices.Clone(u.Cart)
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *MemoryAdapter) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNoSuchUser
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.ContactNumber != nil {
		u.ContactNumber = *update.ContactNumber
	}
	m.users[userID] = u
	return nil
}

func (m *MemoryAdapter) SaveCart(ctx context.Context, userID string, itemIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNoSuchUser
	}
	u.Cart = slices.Clone(itemIDs)
	m.users[userID] = u
	return nil
}

func (m *MemoryAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[item.ID] = item
	m.itemOrder = append(m.itemOrder, item.ID)
	return nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *MemoryAdapter) GetItems(ctx context.Context, itemIDs []string) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.Item, 0, len(itemIDs))
	for _, id := range dedupe(itemIDs) {
		if item, ok := m.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context, categories []domain.Category) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.Item, 0, len(m.items))
	for _, id := range m.itemOrder {
		item, ok := m.items[id]
		if !ok {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, item.Category) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MemoryAdapter) ListItemIDsBySeller(ctx context.Context, sellerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, id := range m.itemOrder {
		if item, ok := m.items[id]; ok && item.SellerID == sellerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryAdapter) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[itemID]; !ok {
		return false, nil
	}
	delete(m.items, itemID)
	m.itemOrder = slices.DeleteFunc(m.itemOrder, func(id string) bool { return id == itemID })
	return true, nil
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order.OTPHash = slices.Clone(order.OTPHash)
	m.orders[order.ID] = order
	m.orderOrder = append(m.orderOrder, order.ID)
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	order.OTPHash = slices.Clone(order.OTPHash)
	return &order, nil
}

func (m *MemoryAdapter) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[orderID]; !ok {
		return false, nil
	}
	delete(m.orders, orderID)
	m.orderOrder = slices.DeleteFunc(m.orderOrder, func(id string) bool { return id == orderID })
	return true, nil
}

func (m *MemoryAdapter) SetOTPHash(ctx context.Context, orderID string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return ErrNoSuchOrder
	}
	order.OTPHash = slices.Clone(hash)
	order.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = order
	return nil
}

func (m *MemoryAdapter) CompleteOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return ErrNoSuchOrder
	}
	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = order
	return nil
}

func (m *MemoryAdapter) ListOrdersByBuyer(ctx context.Context, buyerID string, status domain.OrderStatus) ([]domain.Order, error) {
	return m.listOrders(func(o domain.Order) bool {
		return o.BuyerID == buyerID && o.Status == status
	}), nil
}

func (m *MemoryAdapter) ListOrdersByItems(ctx context.Context, itemIDs []string, status domain.OrderStatus) ([]domain.Order, error) {
	return m.listOrders(func(o domain.Order) bool {
		return slices.Contains(itemIDs, o.ItemID) && (status == "" || o.Status == status)
	}), nil
}

func (m *MemoryAdapter) CompletedItemIDs(ctx context.Context) ([]string, error) {
	orders := m.listOrders(func(o domain.Order) bool { return o.Status == domain.OrderStatusCompleted })
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ItemID)
	}
	return dedupe(ids), nil
}

func (m *MemoryAdapter) listOrders(keep func(domain.Order) bool) []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := []domain.Order{}
	for _, id := range m.orderOrder {
		order := m.orders[id]
		if keep(order) {
			order.OTPHash = slices.Clone(order.OTPHash)
			orders = append(orders, order)
		}
	}
	return orders
}

func (m *MemoryAdapter) CreateReview(ctx context.Context, review domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reviews = append(m.reviews, review)
	return nil
}

func (m *MemoryAdapter) ListReviewsBySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reviews := []domain.Review{}
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].SellerID == sellerID {
			reviews = append(reviews, m.reviews[i])
		}
	}
	return reviews, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
