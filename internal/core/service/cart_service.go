package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

type CartService struct {
	users port.UserRepository
	items port.ItemRepository
}

func NewCartService(users port.UserRepository, items port.ItemRepository) *CartService {
	return &CartService{users: users, items: items}
}

func (s *CartService) AddToCart(ctx context.Context, caller domain.Identity, itemID string) ([]string, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if item.SellerID == caller.UserID {
		return nil, ErrSelfDealing
	}

	cart, err := s.loadCart(ctx, caller)
	if err != nil {
		return nil, err
	}
	if slices.Contains(cart, itemID) {
		return nil, ErrAlreadyInCart
	}

	cart = append(cart, itemID)
	if err := s.users.SaveCart(ctx, caller.UserID, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// RemoveFromCart drops itemID from the cart. Removing an item that is not in
// the cart is a no-op, not an error.
func (s *CartService) RemoveFromCart(ctx context.Context, caller domain.Identity, itemID string) ([]string, error) {
	cart, err := s.loadCart(ctx, caller)
	if err != nil {
		return nil, err
	}

	updated := slices.DeleteFunc(slices.Clone(cart), func(id string) bool { return id == itemID })
	if len(updated) == len(cart) {
		return cart, nil
	}

	if err := s.users.SaveCart(ctx, caller.UserID, updated); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return updated, nil
}

// ListCart resolves the cart in storage order. Items deleted by their seller
// after being added are skipped.
func (s *CartService) ListCart(ctx context.Context, caller domain.Identity) ([]domain.Item, error) {
	cart, err := s.loadCart(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

func (s *CartService) resolve(ctx context.Context, cart []string) ([]domain.Item, error) {
	if len(cart) == 0 {
		return []domain.Item{}, nil
	}

	found, err := s.items.GetItems(ctx, cart)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	byID := make(map[string]domain.Item, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}

	items := make([]domain.Item, 0, len(cart))
	for _, id := range cart {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *CartService) loadCart(ctx context.Context, caller domain.Identity) ([]string, error) {
	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if user.Cart == nil {
		return []string{}, nil
	}
	return user.Cart, nil
}
