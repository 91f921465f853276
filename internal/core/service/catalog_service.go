package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/campus-market/internal/core/authz"
	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/port"
)

// maxPrice is the largest price a DECIMAL(12,2) column holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

type CatalogService struct {
	users  port.UserRepository
	items  port.ItemRepository
	orders port.OrderRepository
}

func NewCatalogService(users port.UserRepository, items port.ItemRepository, orders port.OrderRepository) *CatalogService {
	return &CatalogService{users: users, items: items, orders: orders}
}

type NewItem struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    domain.Category `json:"category"`
	Description string          `json:"description"`
}

// ItemDetail is a single listing with its seller's contact details.
type ItemDetail struct {
	domain.Item
	Seller *domain.Contact `json:"seller"`
}

// Search lists items whose name or description contains query and whose
// category is one of categories (all when empty). Items with a completed
// order are sold and never returned.
func (s *CatalogService) Search(ctx context.Context, query string, categories []domain.Category) ([]domain.Item, error) {
	for _, c := range categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unsupported category %q", ErrInvalidItem, c)
		}
	}

	items, err := s.items.ListItems(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	soldIDs, err := s.orders.CompletedItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("completed item ids: %w", err)
	}
	sold := make(map[string]struct{}, len(soldIDs))
	for _, id := range soldIDs {
		sold[id] = struct{}{}
	}

	return visibleItems(items, query, categories, sold), nil
}

func (s *CatalogService) CreateItem(ctx context.Context, caller domain.Identity, in NewItem) (domain.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Price = in.Price.Round(2)

	switch {
	case in.Name == "":
		return domain.Item{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	case in.Description == "":
		return domain.Item{}, fmt.Errorf("%w: description is required", ErrInvalidItem)
	case in.Price.IsNegative():
		return domain.Item{}, fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	case in.Price.GreaterThan(maxPrice):
		return domain.Item{}, fmt.Errorf("%w: price must not exceed %s", ErrInvalidItem, maxPrice.StringFixed(2))
	case !in.Category.Valid():
		return domain.Item{}, fmt.Errorf("%w: unsupported category %q", ErrInvalidItem, in.Category)
	}

	item := domain.Item{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Price:       in.Price,
		Category:    in.Category,
		Description: in.Description,
		SellerID:    caller.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}

	log.Printf("catalog: %s listed item %s", caller.UserID, item.ID)
	return item, nil
}

// GetItem fetches a listing directly. Unlike Search it returns sold items too.
func (s *CatalogService) GetItem(ctx context.Context, itemID string) (*ItemDetail, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}

	seller, err := s.users.GetUser(ctx, item.SellerID)
	if err != nil {
		return nil, fmt.Errorf("get seller: %w", err)
	}

	detail := &ItemDetail{Item: *item}
	if seller != nil {
		detail.Seller = seller.Contact()
	}
	return detail, nil
}

// DeleteItem removes a listing owned by caller. Orders referencing it are kept.
func (s *CatalogService) DeleteItem(ctx context.Context, caller domain.Identity, itemID string) error {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return ErrNotFound
	}
	if !authz.OwnsItem(*item, caller.UserID) {
		return ErrForbidden
	}

	deleted, err := s.items.DeleteItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	log.Printf("catalog: %s deleted item %s", caller.UserID, itemID)
	return nil
}
