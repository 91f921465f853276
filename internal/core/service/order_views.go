package service

import (
	"context"
	"fmt"

	"github.com/rl1809/campus-market/internal/core/domain"
)

// views resolves the item, buyer and seller of each order with one bulk read
// per entity kind.
func (s *OrderService) views(ctx context.Context, orders []domain.Order) ([]domain.OrderView, error) {
	if len(orders) == 0 {
		return []domain.OrderView{}, nil
	}

	items, err := s.items.GetItems(ctx, uniqueIDs(orders, func(o domain.Order) string { return o.ItemID }))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	itemsByID := make(map[string]domain.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	userIDs := uniqueIDs(orders, func(o domain.Order) string { return o.BuyerID })
	for _, item := range items {
		userIDs = append(userIDs, item.SellerID)
	}
	users, err := s.users.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get order parties: %w", err)
	}
	contacts := make(map[string]*domain.Contact, len(users))
	for _, user := range users {
		contacts[user.ID] = user.Contact()
	}

	views := make([]domain.OrderView, 0, len(orders))
	for _, order := range orders {
		view := domain.OrderView{Order: order, Buyer: contacts[order.BuyerID]}
		if item, ok := itemsByID[order.ItemID]; ok {
			view.Item = &item
			view.Seller = contacts[item.SellerID]
		}
		views = append(views, view)
	}
	return views, nil
}

func uniqueIDs[T any](records []T, key func(T) string) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		id := key(r)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
